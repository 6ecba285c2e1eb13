package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "coderun",
	Short: "Multi-language code execution server",
	// Running the binary without a subcommand serves.
	RunE:          serveCmd.RunE,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: config.yaml in . or ./config)")
	rootCmd.AddCommand(serveCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
