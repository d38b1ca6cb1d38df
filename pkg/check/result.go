package check

import "strings"

// Status represents the outcome of a check.
type Status string

const (
	StatusOK   Status = "OK"
	StatusFail Status = "FAIL"
)

// Result holds the outcome of a single check.
type Result struct {
	Name    string   // e.g., "PostgreSQL TCP", "Env: DATABASE_URL"
	Status  Status   // OK or FAIL
	Details []string // human-readable details
	Hint    string   // guidance printed under a failing check
	Err     error    // underlying error for failures
}

// OK returns true if the check passed.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Detail joins the detail lines into a single message.
func (r Result) Detail() string {
	return strings.Join(r.Details, "\n")
}

// Pass returns a passing result with an optional detail line.
func Pass(name, detail string) Result {
	r := Result{Name: name, Status: StatusOK}
	if detail != "" {
		r.Details = []string{detail}
	}
	return r
}

// Failed returns a failing result for err. The error's classification
// supplies the hint.
func Failed(name, detail string, err error) Result {
	r := Result{Name: name}
	r = r.Fail(detail, err)
	r.Hint = HintFor(err)
	return r
}
