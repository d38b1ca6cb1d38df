package searchcheck

import (
	"strconv"
	"time"

	"github.com/vertti/validate-infra/pkg/connurl"
	"github.com/vertti/validate-infra/pkg/envcheck"
)

const (
	// DefaultPort is the managed OpenSearch HTTPS port.
	DefaultPort     = 25060
	defaultUsername = "doadmin"
)

// Config is the resolved OpenSearch configuration.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	UseSSL   bool
	URL      string // empty when built from OPENSEARCH_HOST
	Source   string
	Timeout  time.Duration
}

// Address is the base URL of the cluster.
func (c Config) Address() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + connurl.Descriptor{Host: c.Host, Port: c.Port}.Address()
}

// ConfigFromEnv resolves OPENSEARCH_URL (or its private pair) first, then
// the individual OPENSEARCH_HOST variables.
func ConfigFromEnv(r *envcheck.Resolver, timeout time.Duration) Config {
	if url, source := r.First(envcheck.Pair("OPENSEARCH_URL")); url != "" {
		d := connurl.Parse(url)
		cfg := Config{
			Host:     d.Host,
			Port:     d.Port,
			Username: d.Username,
			Password: d.Password,
			UseSSL:   d.Scheme == "https",
			URL:      url,
			Source:   source,
			Timeout:  timeout,
		}
		if cfg.Port == 0 {
			cfg.Port = DefaultPort
		}
		if cfg.Username == "" {
			cfg.Username = defaultUsername
		}
		return cfg
	}

	host := r.Any("OPENSEARCH_HOST", "OPENSEARCH_HOSTNAME")
	if host == "" {
		return Config{Timeout: timeout}
	}
	port, err := strconv.Atoi(r.AnyOr(strconv.Itoa(DefaultPort), "OPENSEARCH_PORT"))
	if err != nil {
		port = DefaultPort
	}
	return Config{
		Host:     host,
		Port:     port,
		Username: r.AnyOr(defaultUsername, "OPENSEARCH_USERNAME"),
		Password: r.Any("OPENSEARCH_PASSWORD"),
		UseSSL:   true,
		Source:   "OPENSEARCH_HOST",
		Timeout:  timeout,
	}
}
