package mongocheck

import (
	"strings"
	"time"

	"github.com/vertti/validate-infra/pkg/envcheck"
)

// Aliases are the variables searched for a MongoDB URI, in order.
var Aliases = []envcheck.Alias{
	envcheck.Pair("MONGODB_URI"),
	envcheck.Pair("MONGODB_URL"),
	envcheck.Pair("MONGO_URL"),
}

// Config is the resolved MongoDB configuration.
type Config struct {
	URI            string
	Source         string
	ConnectTimeout time.Duration
}

// ConfigFromEnv resolves the first MongoDB URI. Values with another
// engine's scheme are passed over.
func ConfigFromEnv(r *envcheck.Resolver, timeout time.Duration) Config {
	cfg := Config{ConnectTimeout: timeout}
	for _, a := range Aliases {
		uri := r.Resolve(a.Public, a.Private)
		if uri == "" {
			continue
		}
		if strings.Contains(uri, "://") && !IsMongoURI(uri) && !strings.Contains(uri, "${") {
			continue
		}
		cfg.URI, cfg.Source = uri, a.Public
		return cfg
	}
	return cfg
}

// IsMongoURI reports whether uri uses a MongoDB scheme.
func IsMongoURI(uri string) bool {
	return strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://")
}

// IsSRV reports whether uri uses DNS seed-list discovery.
func (c Config) IsSRV() bool {
	return strings.HasPrefix(c.URI, "mongodb+srv://")
}

// firstHost rewrites a seed-list URI so that only its first host remains,
// leaving a URI the generic parser can decompose.
func firstHost(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	authEnd := strings.IndexAny(rest, "/?")
	if authEnd < 0 {
		authEnd = len(rest)
	}
	authority, tail := rest[:authEnd], rest[authEnd:]

	userinfo := ""
	if at := strings.LastIndex(authority, "@"); at >= 0 {
		userinfo, authority = authority[:at+1], authority[at+1:]
	}
	if comma := strings.Index(authority, ","); comma >= 0 {
		authority = authority[:comma]
	}
	return scheme + "://" + userinfo + authority + tail
}
