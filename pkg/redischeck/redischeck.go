// Package redischeck validates a Redis or Valkey cache with a
// set, get and delete round trip on a short-lived key.
package redischeck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/connurl"
	"github.com/vertti/validate-infra/pkg/validator"
)

const (
	// TestKey is the key written and removed by the probe.
	TestKey = "_validate_infra_test"
	// TestTTL bounds the key's lifetime if cleanup never runs.
	TestTTL = 60 * time.Second
)

// Service validates one cache endpoint.
type Service struct {
	Config Config
	Open   Connector // nil means no client is available

	// NewValue returns the value written to TestKey. Defaults to a UUID.
	NewValue func() string
}

// New returns a Service using go-redis.
func New(cfg Config) *Service {
	return &Service{Config: cfg, Open: Connect}
}

// Validator wraps New in the shared validator state machine.
func Validator(cfg Config, probes validator.Probes) validator.Validator {
	return validator.New(New(cfg), probes)
}

func (s *Service) Profile() validator.Profile {
	return validator.Profile{
		Name:          "Redis",
		Kind:          validator.KindCache,
		ConnectStep:   "PING",
		ConnectDetail: "PONG received",
		InfoStep:      "Server",
		InstallHint:   "Redis client (go-redis) not available in this build",
	}
}

func (s *Service) Validate() error {
	if s.Config.URL == "" {
		return check.Errorf(check.KindNotConfigured, "No Redis URL found (REDIS_URL, VALKEY_URL, CACHE_URL)")
	}
	if vars := connurl.Placeholders(s.Config.URL); len(vars) > 0 {
		return check.Wrap(check.KindUnresolvedTemplate, "config", &connurl.ErrUnresolved{Vars: vars})
	}
	return nil
}

func (s *Service) tls() bool {
	return strings.HasPrefix(s.Config.URL, "rediss://")
}

func (s *Service) Describe() []string {
	d := connurl.Parse(s.Config.URL)
	tls := "disabled"
	if s.tls() {
		tls = "enabled"
	}
	lines := []string{
		"Found Redis URL in " + s.Config.Source,
		fmt.Sprintf("Host: %s:%d", d.Host, d.Port),
		"TLS: " + tls,
	}
	if d.Password != "" {
		lines = append(lines, "Password: "+connurl.Mask(d.Password, 4))
	}
	return lines
}

func (s *Service) Endpoint() validator.Endpoint {
	d := connurl.Parse(s.Config.URL)
	return validator.Endpoint{Host: d.Host, Port: d.Port}
}

func (s *Service) Driver() error {
	if s.Open == nil {
		return check.Errorf(check.KindDriverMissing, "no Redis client")
	}
	return nil
}

func (s *Service) Connect(ctx context.Context) (validator.Session, error) {
	cache, err := s.Open(ctx, s.Config)
	if err != nil {
		return nil, err
	}
	value := uuid.NewString()
	if s.NewValue != nil {
		value = s.NewValue()
	}
	return &session{cache: cache, value: value}, nil
}

type session struct {
	cache Cache
	value string
}

func (s *session) Info(ctx context.Context) (string, error) {
	v, err := s.cache.ServerVersion(ctx)
	if err != nil {
		return "", err
	}
	return "Version: " + v, nil
}

func (s *session) Close() error {
	return s.cache.Close()
}

// Probe writes TestKey, reads it back, deletes it and checks it is gone.
// The key is removed in cleanup if the cycle stops before DELETE.
func (s *session) Probe(ctx context.Context, rec *validator.Recorder) {
	if err := s.cache.Set(ctx, TestKey, s.value, TestTTL); err != nil {
		rec.Fail("SET", "", err)
		return
	}
	rec.Pass("SET", "Set key "+TestKey)

	deleted := false
	defer func() {
		if deleted {
			return
		}
		rec.Cleanup("key "+TestKey, s.cache.Del(context.WithoutCancel(ctx), TestKey))
	}()

	got, found, err := s.cache.Get(ctx, TestKey)
	switch {
	case err != nil:
		rec.Fail("GET", "", err)
		return
	case !found:
		rec.Fail("GET", "Key missing after SET", nil)
		return
	case got != s.value:
		rec.Fail("GET", "Value mismatch: "+got, nil)
		return
	}
	rec.Pass("GET", "Retrieved correct value")

	if err := s.cache.Del(ctx, TestKey); err != nil {
		rec.Fail("DELETE", "", err)
		return
	}
	deleted = true
	if _, found, err := s.cache.Get(ctx, TestKey); err != nil {
		rec.Fail("DELETE", "", err)
		return
	} else if found {
		rec.Fail("DELETE", "Key still present after DELETE", nil)
		return
	}
	rec.Pass("DELETE", "Deleted test key")
}
