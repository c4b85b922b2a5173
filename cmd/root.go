// Package cmd implements the command line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "claude-vision-api",
	Short: "Chat and vision proxy for the Anthropic Messages API",
	Long: `claude-vision-api forwards chat and image-analysis requests to the
Anthropic Messages API, keeps short-lived conversation sessions and relays
streamed replies as server-sent events.

Configuration is read from environment variables and, optionally, a config file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json); environment variables take precedence")
}
