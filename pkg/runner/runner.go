// Package runner orchestrates validators: it orders them by service kind,
// runs them sequentially or concurrently under one run timeout, and returns
// their outcomes in that fixed order.
package runner

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/logger"
	"github.com/vertti/validate-infra/pkg/validator"
)

// Options control a run.
type Options struct {
	// Parallel runs validators concurrently. Outcome order is unaffected.
	Parallel bool
	// Timeout bounds the whole run. Zero means no bound beyond ctx.
	Timeout time.Duration
	// SkipUnconfigured reports validators without configuration as skipped
	// instead of running them.
	SkipUnconfigured bool
	Logger           *zap.Logger
}

// Run executes vs and returns one Outcome per validator, ordered by kind.
// Validators of the same kind keep their relative order.
func Run(ctx context.Context, vs []validator.Validator, opts Options) []validator.Outcome {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	ordered := make([]validator.Validator, len(vs))
	copy(ordered, vs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Kind() < ordered[j].Kind() })

	outcomes := make([]validator.Outcome, len(ordered))
	if !opts.Parallel {
		for i, v := range ordered {
			outcomes[i] = runOne(ctx, v, opts, log)
		}
		return outcomes
	}

	// Each goroutine writes only its own slot.
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range ordered {
		g.Go(func() error {
			outcomes[i] = runOne(gctx, v, opts, log)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func runOne(ctx context.Context, v validator.Validator, opts Options, log *zap.Logger) validator.Outcome {
	name := v.Name()
	if opts.SkipUnconfigured && !v.Configured() {
		log.Debug("validator skipped", zap.String("validator", name))
		return validator.Outcome{Name: name, Skipped: true}
	}
	if err := ctx.Err(); err != nil {
		return validator.Outcome{
			Name: name,
			Checks: check.List{check.Failed(name, "Not run: run timeout exceeded",
				check.Wrap(check.KindOperationFailed, "run", err))},
		}
	}

	start := time.Now()
	log.Debug("validator started", zap.String("validator", name), zap.Stringer("kind", v.Kind()))
	out := v.Run(ctx)
	if out.Name == "" {
		out.Name = name
	}
	log.Debug("validator finished",
		zap.String("validator", name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("passed", out.Checks.Passed()),
		zap.Int("failed", len(out.Checks.Failed())))
	return out
}

// Checks concatenates the outcomes' checks in order.
func Checks(outcomes []validator.Outcome) check.List {
	lists := make([]check.List, len(outcomes))
	for i, o := range outcomes {
		lists[i] = o.Checks
	}
	return check.Concat(lists...)
}
