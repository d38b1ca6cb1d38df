package envcheck

import (
	"context"
	"sort"
	"strings"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/connurl"
	"github.com/vertti/validate-infra/pkg/validator"
)

// DefaultRequired are the variables every deployment is expected to set.
var DefaultRequired = []string{"DATABASE_URL", "REDIS_URL"}

// platformPrefixes select the variables scanned for unresolved placeholders.
var platformPrefixes = []string{
	"DATABASE_", "REDIS_", "MONGO", "MYSQL_", "POSTGRES_", "PG_",
	"KAFKA_", "OPENSEARCH_", "SPACES_", "DO_", "DIGITALOCEAN_",
	"MODEL_", "INFERENCE_", "GRADIENT_", "CA_CERT", "APP_",
}

// URLVars are validated for connection-URL format when set.
var URLVars = []string{
	"DATABASE_URL", "DATABASE_PRIVATE_URL",
	"MYSQL_URL", "MYSQL_PRIVATE_URL",
	"REDIS_URL", "REDIS_PRIVATE_URL",
	"MONGODB_URI", "MONGODB_PRIVATE_URI",
	"OPENSEARCH_URL", "OPENSEARCH_PRIVATE_URL",
	"INFERENCE_ENDPOINT",
}

var secretMarkers = []string{"PASSWORD", "SECRET", "KEY", "TOKEN", "CREDENTIAL"}

// Validator checks the deployment environment itself: required variables,
// leftover placeholders, URL formats and secrets leaking into plain
// variables.
type Validator struct {
	Required []string // defaults to DefaultRequired
	Getter   EnvGetter
}

func (v *Validator) Kind() validator.Kind { return validator.KindEnv }
func (v *Validator) Name() string         { return "Environment" }
func (v *Validator) Configured() bool     { return true }

func (v *Validator) required() []string {
	if len(v.Required) == 0 {
		return DefaultRequired
	}
	return v.Required
}

// Run executes all environment checks.
func (v *Validator) Run(_ context.Context) validator.Outcome {
	rec := validator.NewRecorder("", nil)
	required := v.required()

	for _, name := range required {
		c := &Check{Name: name, Getter: v.Getter}
		rec.Add(c.Run())
	}

	seen := make(map[string]bool, len(required))
	for _, name := range required {
		seen[name] = true
	}
	vars := PlatformVars(v.Getter)
	if len(vars) > 0 {
		rec.Info("Found %d DigitalOcean-related variables", len(vars))
	}
	for _, kv := range vars {
		if connurl.HasPlaceholder(kv.Value) {
			if seen[kv.Name] {
				continue
			}
			rec.Add(check.Failed("Env: "+kv.Name, "Unresolved: "+truncate(kv.Value, 40),
				check.Errorf(check.KindUnresolvedTemplate, "%s has unresolved placeholders", kv.Name)))
			continue
		}
		rec.Verbose("  %s=%s", kv.Name, displayValue(kv.Name, kv.Value))
	}

	for _, name := range URLVars {
		value, _ := v.Getter.LookupEnv(name)
		if value == "" {
			continue
		}
		msg, err := connurl.ValidateFormat(value)
		if err != nil {
			rec.Add(check.Failed("URL: "+name, err.Error(), err))
			continue
		}
		rec.Add(check.Pass("URL: "+name, msg))
	}

	for _, w := range ExposedSecrets(v.Getter) {
		rec.Warn("%s", w)
	}

	return rec.Outcome()
}

// Var is a name/value pair from the environment.
type Var struct {
	Name  string
	Value string
}

// PlatformVars returns the platform-related variables sorted by name.
func PlatformVars(g EnvGetter) []Var {
	var out []Var
	for _, kv := range g.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !isPlatformVar(name) {
			continue
		}
		out = append(out, Var{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func isPlatformVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, p := range platformPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

// ExposedSecrets warns about plain variables whose value carries a password.
func ExposedSecrets(g EnvGetter) []string {
	var warnings []string
	for _, kv := range g.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || isSecretName(name) {
			continue
		}
		upper := strings.ToUpper(name)
		if strings.Contains(strings.ToLower(value), "password=") && !strings.Contains(upper, "URL") {
			warnings = append(warnings, name+" may contain exposed password")
		}
	}
	sort.Strings(warnings)
	return warnings
}

func isSecretName(name string) bool {
	upper := strings.ToUpper(name)
	for _, m := range secretMarkers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}

func displayValue(name, value string) string {
	if isSecretName(name) || strings.Contains(strings.ToUpper(name), "CERT") {
		return connurl.Mask(value, 8)
	}
	if short := truncate(value, 40); short != value {
		return short + "..."
	}
	return value
}
