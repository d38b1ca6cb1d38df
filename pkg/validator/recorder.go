package validator

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vertti/validate-infra/pkg/check"
)

// Recorder accumulates the checks and notes of one validator run. Step names
// are prefixed with the service name, so "CREATE" becomes "PostgreSQL CREATE".
// A Recorder is owned by a single goroutine.
type Recorder struct {
	service string
	log     *zap.Logger
	out     Outcome
}

// NewRecorder returns a Recorder for service. A nil logger discards logs.
func NewRecorder(service string, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		service: service,
		log:     log.With(zap.String("service", service)),
		out:     Outcome{Name: service},
	}
}

func (r *Recorder) name(step string) string {
	if r.service == "" {
		return step
	}
	return r.service + " " + step
}

// Logger returns the service-scoped logger.
func (r *Recorder) Logger() *zap.Logger {
	return r.log
}

// Add appends finished results unchanged except for a missing hint, which
// is derived from the failure's classification.
func (r *Recorder) Add(results ...check.Result) {
	for _, res := range results {
		if !res.OK() && res.Hint == "" {
			res.Hint = check.HintFor(res.Err)
		}
		r.out.Checks.Add(res)
	}
}

// Pass records a passing step.
func (r *Recorder) Pass(step, detail string) {
	r.out.Checks.Add(check.Pass(r.name(step), detail))
}

// Fail records a failing step. An empty detail uses the error text.
func (r *Recorder) Fail(step, detail string, err error) {
	if detail == "" && err != nil {
		detail = err.Error()
	}
	if err == nil {
		err = check.Errorf(check.KindOperationFailed, "%s", detail)
	}
	r.log.Debug("step failed",
		zap.String("step", step),
		zap.String("kind", string(check.Classify(err))),
		zap.Error(err))
	r.out.Checks.Add(check.Failed(r.name(step), detail, err))
}

// Record passes the step with detail when err is nil and fails it otherwise.
// It reports whether the step passed.
func (r *Recorder) Record(step string, err error, detail string) bool {
	if err != nil {
		r.Fail(step, "", err)
		return false
	}
	r.Pass(step, detail)
	return true
}

// Info adds an informational note.
func (r *Recorder) Info(format string, args ...interface{}) {
	r.out.Notes = append(r.out.Notes, Note{Level: LevelInfo, Text: fmt.Sprintf(format, args...)})
}

// Warn adds a warning note.
func (r *Recorder) Warn(format string, args ...interface{}) {
	r.out.Notes = append(r.out.Notes, Note{Level: LevelWarn, Text: fmt.Sprintf(format, args...)})
}

// Verbose adds a note shown only in verbose mode.
func (r *Recorder) Verbose(format string, args ...interface{}) {
	r.out.Notes = append(r.out.Notes, Note{Level: LevelVerbose, Text: fmt.Sprintf(format, args...)})
}

// Cleanup reports the result of removing a test resource. A failure becomes
// a warning, never a failing check.
func (r *Recorder) Cleanup(what string, err error) {
	if err == nil {
		r.log.Debug("cleanup done", zap.String("step", what))
		return
	}
	r.log.Warn("cleanup failed",
		zap.String("step", what),
		zap.String("kind", string(check.KindCleanupFailed)),
		zap.Error(err))
	r.Warn("Cleanup of %s failed: %v", what, err)
}

// Skip marks the run as skipped.
func (r *Recorder) Skip(reason string) {
	r.out.Skipped = true
	if reason != "" {
		r.Info("%s", reason)
	}
}

// Outcome returns what has been recorded so far.
func (r *Recorder) Outcome() Outcome {
	out := r.out
	out.Checks = check.Concat(r.out.Checks)
	out.Notes = append([]Note(nil), r.out.Notes...)
	return out
}
