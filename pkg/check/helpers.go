package check

import "fmt"

// Fail sets the result to failed status with a detail message.
func (r *Result) Fail(detail string, err error) Result {
	r.Status = StatusFail
	if detail != "" {
		r.Details = append(r.Details, detail)
	}
	r.Err = err
	return *r
}

// AddDetail appends a detail line to the result.
func (r *Result) AddDetail(detail string) *Result {
	r.Details = append(r.Details, detail)
	return r
}

// AddDetailf appends a formatted detail line to the result.
func (r *Result) AddDetailf(format string, args ...interface{}) *Result {
	return r.AddDetail(fmt.Sprintf(format, args...))
}

// WithHint sets the hint shown below a failing result.
func (r *Result) WithHint(hint string) *Result {
	r.Hint = hint
	return r
}
