package main

import (
	"github.com/spf13/cobra"

	"github.com/vertti/validate-infra/pkg/validator"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Check the environment and every configured service",
	Long: "Checks required variables, then runs every service validator whose configuration is present. " +
		"Unconfigured services are skipped. Network basics run only with --network.",
	Args: cobra.NoArgs,
	RunE: runE(buildAll),
}

func init() {
	allCmd.Flags().StringSlice("required", nil, "variables that must be set (comma-separated)")
	allCmd.Flags().Bool("network", false, "also run network basics")
	rootCmd.AddCommand(allCmd)
}

func buildAll(rt *runEnv, _ []string) ([]validator.Validator, bool, error) {
	vs := []validator.Validator{envValidator(rt)}
	if rt.settings.Network {
		vs = append(vs, networkValidator(rt))
	}
	return append(vs, serviceValidators(rt)...), true, nil
}
