package main

import "github.com/qw31415/claude-vision-api/cmd"

func main() {
	cmd.Execute()
}
