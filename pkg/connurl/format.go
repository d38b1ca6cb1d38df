package connurl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/vertti/validate-infra/pkg/check"
)

type urlPattern struct {
	name string
	re   *regexp.Regexp
}

// Checked in order; the first match names the URL type.
var urlPatterns = []urlPattern{
	{"postgresql", regexp.MustCompile(`^postgres(ql)?://[^:]+:[^@]+@[^:/]+:\d+/.+`)},
	{"mysql", regexp.MustCompile(`^mysql://[^:]+:[^@]+@[^:/]+:\d+/.+`)},
	{"mongodb", regexp.MustCompile(`^mongodb(\+srv)?://[^:]+:[^@]+@[^/]+/.+`)},
	{"redis", regexp.MustCompile(`^rediss?://[^@]*@?[^:/]+:\d+`)},
	{"http", regexp.MustCompile(`^https?://.+`)},
}

// ErrUnresolved reports bindable variables left in a value.
type ErrUnresolved struct {
	Vars []string
}

func (e *ErrUnresolved) Error() string {
	vars := e.Vars
	if len(vars) > 3 {
		vars = vars[:3]
	}
	return "Unresolved variables: " + strings.Join(vars, ", ")
}

// ValidateFormat checks that raw looks like a usable connection URL.
// It returns a description of the recognised format, or a classified error.
// Unexpanded placeholders yield an unresolved_template error wrapping
// *ErrUnresolved.
func ValidateFormat(raw string) (string, error) {
	if raw == "" {
		return "", check.Wrap(check.KindNotConfigured, "url format", errors.New("Empty URL"))
	}
	if vars := Placeholders(raw); len(vars) > 0 {
		return "", check.Wrap(check.KindUnresolvedTemplate, "url format", &ErrUnresolved{Vars: vars})
	}
	for _, p := range urlPatterns {
		if p.re.MatchString(raw) {
			return fmt.Sprintf("Valid %s URL format", p.name), nil
		}
	}
	if strings.Contains(raw, "://") {
		return "URL format (unknown scheme)", nil
	}
	return "", check.Wrap(check.KindNotConfigured, "url format", errors.New("Invalid URL format"))
}
