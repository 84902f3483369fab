package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "rainn",
		Short:        "Agent runtime operator tool",
		Long:         "rainn runs agent processes against local files, sweeps expired runs, and exchanges flow definitions.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newSweepCommand())
	rootCmd.AddCommand(newFlowCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
