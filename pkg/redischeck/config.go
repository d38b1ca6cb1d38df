package redischeck

import (
	"time"

	"github.com/vertti/validate-infra/pkg/envcheck"
)

// Aliases are the variables searched for a Redis or Valkey URL, in order.
var Aliases = []envcheck.Alias{
	envcheck.Pair("REDIS_URL"),
	envcheck.Pair("VALKEY_URL"),
	envcheck.Pair("CACHE_URL"),
}

// Config is the resolved cache configuration.
type Config struct {
	URL            string
	Source         string
	ConnectTimeout time.Duration
}

// ConfigFromEnv resolves the first cache URL.
func ConfigFromEnv(r *envcheck.Resolver, timeout time.Duration) Config {
	url, source := r.First(Aliases...)
	return Config{URL: url, Source: source, ConnectTimeout: timeout}
}
