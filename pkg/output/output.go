// Package output renders validator outcomes and the final summary.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jwalton/go-supportscolor"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/validator"
)

var (
	green  = "\033[32m"
	red    = "\033[31m"
	yellow = "\033[33m"
	dim    = "\033[2m"
	bold   = "\033[1m"
	reset  = "\033[0m"
)

func init() {
	if !supportscolor.Stdout().SupportsColor {
		green, red, yellow, dim, bold, reset = "", "", "", "", "", ""
	}
}

// indent aligns detail lines under the check name: "[PASS] " and "[FAIL] "
// are both 7 columns wide.
const indent = "       "

// Printer writes reports to W. Passing details and verbose notes are shown
// only when Verbose is set; failures always show their detail and hint.
type Printer struct {
	W       io.Writer
	Verbose bool
}

// New returns a Printer writing to w.
func New(w io.Writer, verbose bool) *Printer {
	return &Printer{W: w, Verbose: verbose}
}

// formatLabel dims the "label:" prefix of a detail line.
func formatLabel(s string) string {
	label, rest, ok := strings.Cut(s, ": ")
	if !ok || strings.Contains(label, " ") {
		return s
	}
	return dim + label + ":" + reset + " " + rest
}

// Header prints a section title.
func (p *Printer) Header(title string) {
	_, _ = fmt.Fprintf(p.W, "\n%s== %s ==%s\n", bold, title, reset)
}

// Result prints one check result.
func (p *Printer) Result(r check.Result) {
	if r.OK() {
		_, _ = fmt.Fprintf(p.W, "%s[PASS]%s %s\n", green, reset, r.Name)
		if !p.Verbose {
			return
		}
	} else {
		_, _ = fmt.Fprintf(p.W, "%s[FAIL]%s %s\n", red, reset, r.Name)
	}
	for _, d := range r.Details {
		for _, line := range strings.Split(d, "\n") {
			_, _ = fmt.Fprintf(p.W, "%s%s\n", indent, formatLabel(line))
		}
	}
	if !r.OK() && r.Hint != "" {
		_, _ = fmt.Fprintf(p.W, "%s%sHint: %s%s\n", indent, yellow, r.Hint, reset)
	}
}

// Note prints a report line that is not a check.
func (p *Printer) Note(n validator.Note) {
	switch n.Level {
	case validator.LevelWarn:
		_, _ = fmt.Fprintf(p.W, "%s[WARN]%s %s\n", yellow, reset, n.Text)
	case validator.LevelVerbose:
		if p.Verbose {
			_, _ = fmt.Fprintf(p.W, "%s%s%s%s\n", indent, dim, n.Text, reset)
		}
	default:
		_, _ = fmt.Fprintf(p.W, "%s[INFO]%s %s\n", dim, reset, n.Text)
	}
}

// Outcome prints a validator's notes followed by its checks.
func (p *Printer) Outcome(o validator.Outcome) {
	p.Header(o.Name)
	if o.Skipped {
		_, _ = fmt.Fprintf(p.W, "%s[SKIP]%s %s not configured\n", dim, reset, o.Name)
	}
	for _, n := range o.Notes {
		p.Note(n)
	}
	for _, r := range o.Checks {
		p.Result(r)
	}
}

// Summary is the aggregate of a run's checks.
type Summary struct {
	Passed int
	Total  int
	Failed check.List
}

// Summarize aggregates checks. It is the only place a check list becomes
// an exit code.
func Summarize(checks check.List) Summary {
	return Summary{
		Passed: checks.Passed(),
		Total:  len(checks),
		Failed: checks.Failed(),
	}
}

// ExitCode is 0 when no check failed and 1 otherwise.
func (s Summary) ExitCode() int {
	if len(s.Failed) == 0 {
		return 0
	}
	return 1
}

// Report formats the summary without color.
func (s Summary) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary: %d/%d checks passed\n", s.Passed, s.Total)
	if len(s.Failed) > 0 {
		b.WriteString("Failed checks:\n")
		for _, r := range s.Failed {
			detail := strings.ReplaceAll(r.Detail(), "\n", "; ")
			if detail == "" {
				fmt.Fprintf(&b, "  - %s\n", r.Name)
				continue
			}
			fmt.Fprintf(&b, "  - %s: %s\n", r.Name, detail)
		}
	}
	return b.String()
}

// Summary prints s with color.
func (p *Printer) Summary(s Summary) {
	color := green
	if s.ExitCode() != 0 {
		color = red
	}
	_, _ = fmt.Fprintf(p.W, "\n%s%s%s", color, s.Report(), reset)
}

// Render prints every outcome in order and then the summary of their
// concatenated checks.
func Render(w io.Writer, outcomes []validator.Outcome, verbose bool) Summary {
	p := New(w, verbose)
	lists := make([]check.List, 0, len(outcomes))
	for _, o := range outcomes {
		p.Outcome(o)
		lists = append(lists, o.Checks)
	}
	s := Summarize(check.Concat(lists...))
	p.Summary(s)
	return s
}
