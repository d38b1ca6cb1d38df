package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vertti/validate-infra/pkg/sqlcheck"
	"github.com/vertti/validate-infra/pkg/validator"
)

var databaseCmd = &cobra.Command{
	Use:     "database [postgresql|mysql|mongodb]",
	Aliases: []string{"db"},
	Short:   "Check database connectivity and permissions",
	Long: "Without an argument, checks required variables and every configured database. " +
		"With a database kind (postgresql, mysql, mongodb or pg, postgres, mongo), checks only that one.",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"postgresql", "mysql", "mongodb", "pg", "postgres", "mongo"},
	RunE:      runE(buildDatabase),
}

func init() {
	databaseCmd.Flags().StringSlice("required", nil, "variables that must be set (comma-separated)")
	rootCmd.AddCommand(databaseCmd)
}

func buildDatabase(rt *runEnv, args []string) ([]validator.Validator, bool, error) {
	if len(args) == 0 {
		vs := append([]validator.Validator{envValidator(rt)}, databaseValidators(rt)...)
		return vs, true, nil
	}
	kind := strings.ToLower(args[0])
	if kind == "mongodb" || kind == "mongo" {
		return []validator.Validator{mongoValidator(rt)}, false, nil
	}
	d, ok := sqlcheck.ParseDialect(kind)
	if !ok {
		return nil, false, fmt.Errorf("unknown database %q (want postgresql, mysql or mongodb)", args[0])
	}
	if d == sqlcheck.MySQL {
		return []validator.Validator{mysqlValidator(rt)}, false, nil
	}
	return []validator.Validator{postgresValidator(rt)}, false, nil
}
