package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatrelay",
	Short: "Multi-provider chat command router",
	Long:  "ChatRelay multiplexes chat back-ends behind one provider interface, detects bot-addressed messages, and hands recognized commands to the pipeline subsystem.",
}

// Execute runs the CLI entry point.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
