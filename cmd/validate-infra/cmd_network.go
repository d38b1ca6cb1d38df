package main

import (
	"github.com/spf13/cobra"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Check DNS, HTTPS egress, the DigitalOcean API, registries and the VPC",
	Args:  cobra.NoArgs,
	RunE:  runE(single(networkValidator)),
}

func init() {
	rootCmd.AddCommand(networkCmd)
}
