package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vertti/validate-infra/pkg/config"
	"github.com/vertti/validate-infra/pkg/envcheck"
	"github.com/vertti/validate-infra/pkg/logger"
	"github.com/vertti/validate-infra/pkg/output"
	"github.com/vertti/validate-infra/pkg/runner"
	"github.com/vertti/validate-infra/pkg/validator"
	"github.com/vertti/validate-infra/pkg/vpc"
)

// ErrCheckFailed is returned when a check fails.
var ErrCheckFailed = errors.New("check failed")

// Replaced in tests.
var (
	envGetter   envcheck.EnvGetter = &envcheck.RealEnvGetter{}
	newDetector                    = vpc.New
	newLogger                      = logger.New
)

// runEnv is what every subcommand needs: settings, the resolved service
// environment and the shared reachability probes.
type runEnv struct {
	settings config.Settings
	services config.Services
	probes   validator.Probes
	log      *zap.Logger
}

func setup(cmd *cobra.Command) (*runEnv, error) {
	s, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, err := newLogger(s.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	svc := config.ResolveServices(s, envGetter, newDetector(s.VPCCIDR))
	log.Debug("settings loaded",
		zap.Bool("parallel", s.Parallel),
		zap.Duration("run_timeout", s.RunTimeout),
		zap.Bool("vpc", svc.VPC.Inside()))
	return &runEnv{
		settings: s,
		services: svc,
		probes:   validator.RealProbes(s.TCPTimeout, log),
		log:      log,
	}, nil
}

// runValidators runs vs, prints the report and returns ErrCheckFailed when
// any check failed. The returned error causes Cobra to exit with code 1.
// With skipUnconfigured, validators lacking configuration are reported as
// skipped rather than failing.
func runValidators(cmd *cobra.Command, rt *runEnv, vs []validator.Validator, skipUnconfigured bool) error {
	defer func() { _ = rt.log.Sync() }()

	outcomes := runner.Run(cmd.Context(), vs, runner.Options{
		Parallel:         rt.settings.Parallel,
		Timeout:          rt.settings.RunTimeout,
		SkipUnconfigured: skipUnconfigured,
		Logger:           rt.log,
	})
	summary := output.Render(cmd.OutOrStdout(), outcomes, rt.settings.Verbose)
	if summary.ExitCode() != 0 {
		return ErrCheckFailed
	}
	return nil
}

// runE adapts a validator builder into a cobra RunE.
func runE(build func(rt *runEnv, args []string) ([]validator.Validator, bool, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		vs, skip, err := build(rt, args)
		if err != nil {
			return err
		}
		return runValidators(cmd, rt, vs, skip)
	}
}
