package gradientcheck

import (
	"strings"
	"time"

	"github.com/vertti/validate-infra/pkg/envcheck"
)

// DefaultEndpoint is the serverless inference endpoint.
const DefaultEndpoint = "https://inference.do-ai.run"

// Config is the resolved inference API configuration.
type Config struct {
	AccessKey string
	Endpoint  string
	// Explicit is true when the endpoint or key came from the environment.
	Explicit bool
	Timeout  time.Duration
}

// ConfigFromEnv resolves the access key and endpoint aliases.
func ConfigFromEnv(r *envcheck.Resolver, timeout time.Duration) Config {
	key := r.Any("MODEL_ACCESS_KEY", "GRADIENT_ACCESS_KEY", "DO_AI_ACCESS_KEY")
	endpoint := r.Any("INFERENCE_ENDPOINT", "GRADIENT_ENDPOINT")
	cfg := Config{
		AccessKey: key,
		Endpoint:  strings.TrimRight(endpoint, "/"),
		Explicit:  key != "" || endpoint != "",
		Timeout:   timeout,
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return cfg
}
