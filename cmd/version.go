package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/qw31415/claude-vision-api/cmd.Version=...".
var (
	Version = "1.0.0"
	Commit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		short, _ := cmd.Flags().GetBool("short")
		if short {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "claude-vision-api %s (commit %s, %s)\n", Version, Commit, runtime.Version())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "Show only version number")
}
