package kafkacheck

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/vertti/validate-infra/pkg/envcheck"
)

const (
	// DefaultPort is the managed Kafka SASL port used with KAFKA_HOST.
	DefaultPort = 25073
	// PlainPort is assumed when a broker address has no port.
	PlainPort = 9092
)

// Config is the resolved Kafka configuration.
type Config struct {
	Broker         string
	Username       string
	Password       string
	CACert         string
	Timeout        time.Duration
	ConsumeTimeout time.Duration
}

// ConfigFromEnv resolves the broker from KAFKA_BROKER(S) or KAFKA_HOST and
// KAFKA_PORT. A broker list keeps only its first entry.
func ConfigFromEnv(r *envcheck.Resolver, timeout, consume time.Duration) Config {
	broker := r.Any("KAFKA_BROKER", "KAFKA_BROKERS")
	if first, _, ok := strings.Cut(broker, ","); ok {
		broker = strings.TrimSpace(first)
	}
	if broker == "" {
		if host := r.Any("KAFKA_HOST", "KAFKA_HOSTNAME"); host != "" {
			broker = host + ":" + r.AnyOr(strconv.Itoa(DefaultPort), "KAFKA_PORT")
		}
	}
	return Config{
		Broker:         broker,
		Username:       r.Any("KAFKA_USERNAME"),
		Password:       r.Any("KAFKA_PASSWORD"),
		CACert:         r.Any("KAFKA_CA_CERT", "CA_CERT"),
		Timeout:        timeout,
		ConsumeTimeout: consume,
	}
}

// HostPort splits Broker, defaulting the port to PlainPort.
func (c Config) HostPort() (string, int) {
	host, port, err := net.SplitHostPort(c.Broker)
	if err != nil {
		return c.Broker, PlainPort
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return host, PlainPort
	}
	return host, p
}

// Address is Broker with the default port applied.
func (c Config) Address() string {
	host, port := c.HostPort()
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// TLSConfig returns the client TLS settings. TLS is used whenever SASL
// credentials or a CA certificate are configured; the CA replaces the
// system roots.
func (c Config) TLSConfig() (*tls.Config, error) {
	if c.Username == "" && c.CACert == "" {
		return nil, nil
	}
	host, _ := c.HostPort()
	cfg := &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	if c.CACert != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(normalizePEM(c.CACert))) {
			return nil, errors.New("KAFKA_CA_CERT does not contain a PEM certificate")
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// normalizePEM restores newlines in a certificate stored with literal \n
// escapes.
func normalizePEM(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
