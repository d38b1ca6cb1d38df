package sqlcheck

import (
	"strings"
	"time"

	"github.com/vertti/validate-infra/pkg/envcheck"
)

// Dialect selects the relational engine.
type Dialect string

const (
	Postgres Dialect = "postgresql"
	MySQL    Dialect = "mysql"
)

// ParseDialect accepts the CLI names and aliases of a dialect.
func ParseDialect(s string) (Dialect, bool) {
	switch strings.ToLower(s) {
	case "postgresql", "postgres", "pg":
		return Postgres, true
	case "mysql":
		return MySQL, true
	}
	return "", false
}

// Aliases lists, per dialect, the variables searched in order.
var Aliases = map[Dialect][]envcheck.Alias{
	Postgres: {
		envcheck.Pair("DATABASE_URL"),
		envcheck.Pair("POSTGRES_URL"),
		envcheck.Pair("PG_URL"),
	},
	MySQL: {
		envcheck.Pair("MYSQL_URL"),
		envcheck.Pair("MYSQL_DATABASE_URL"),
	},
}

// Config is the resolved connection configuration for one dialect.
type Config struct {
	Dialect        Dialect
	URL            string
	Source         string // variable the URL was read from
	ConnectTimeout time.Duration
}

// Detect returns the dialect a URL's scheme names, or "" when the scheme
// is not relational.
func Detect(url string) Dialect {
	switch {
	case strings.HasPrefix(url, "postgresql://"), strings.HasPrefix(url, "postgres://"):
		return Postgres
	case strings.HasPrefix(url, "mysql://"):
		return MySQL
	}
	return ""
}

// ConfigFromEnv resolves the first URL for d. A URL whose scheme names a
// different engine is passed over, so DATABASE_URL may hold a MySQL URL
// without being mistaken for PostgreSQL. URLs with no recognisable scheme
// are kept so that placeholders surface as configuration failures.
func ConfigFromEnv(r *envcheck.Resolver, d Dialect, timeout time.Duration) Config {
	cfg := Config{Dialect: d, ConnectTimeout: timeout}
	for _, a := range Aliases[d] {
		url := r.Resolve(a.Public, a.Private)
		if url == "" {
			continue
		}
		if detected := Detect(url); detected == d || (detected == "" && !knownOtherScheme(url)) {
			cfg.URL, cfg.Source = url, a.Public
			return cfg
		}
	}
	return cfg
}

func knownOtherScheme(url string) bool {
	for _, p := range []string{"mongodb://", "mongodb+srv://", "redis://", "rediss://"} {
		if strings.HasPrefix(url, p) {
			return true
		}
	}
	return false
}

func (c Config) varNames() string {
	var names []string
	for _, a := range Aliases[c.Dialect] {
		names = append(names, a.Public)
	}
	return strings.Join(names, ", ")
}
