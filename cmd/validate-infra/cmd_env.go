package main

import (
	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Check required variables, placeholders and URL formats",
	Args:  cobra.NoArgs,
	RunE:  runE(single(envValidator)),
}

func init() {
	envCmd.Flags().StringSlice("required", nil, "variables that must be set (comma-separated)")
	rootCmd.AddCommand(envCmd)
}
