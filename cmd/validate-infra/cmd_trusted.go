package main

import (
	"github.com/spf13/cobra"
)

var trustedCmd = &cobra.Command{
	Use:   "trusted-sources",
	Short: "Report egress IP and VPC details needed for database firewalls",
	Args:  cobra.NoArgs,
	RunE:  runE(single(trustedSourcesValidator)),
}

func init() {
	rootCmd.AddCommand(trustedCmd)
}
