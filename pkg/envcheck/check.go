package envcheck

import (
	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/connurl"
)

// Check verifies that a required environment variable is set to a resolved
// value.
type Check struct {
	Name      string    // env var name
	ShowChars int       // characters of the value left unmasked (default 8)
	Getter    EnvGetter // injected for testing
}

// Run executes the environment variable check.
func (c *Check) Run() check.Result {
	result := check.Result{Name: "Env: " + c.Name}

	value, _ := c.Getter.LookupEnv(c.Name)
	if value == "" {
		return result.Fail("Not set",
			check.Errorf(check.KindNotConfigured, "environment variable %s is not set", c.Name))
	}

	if connurl.HasPlaceholder(value) {
		result.WithHint(check.KindUnresolvedTemplate.Hint())
		return result.Fail("Unresolved: "+truncate(value, 50),
			check.Errorf(check.KindUnresolvedTemplate, "environment variable %s has unresolved placeholders", c.Name))
	}

	show := c.ShowChars
	if show == 0 {
		show = 8
	}
	result.Status = check.StatusOK
	result.AddDetail(connurl.Mask(value, show))
	return result
}

// truncate keeps the first n characters of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ check.Checker = (*Check)(nil)
