package redischeck

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vertti/validate-infra/pkg/check"
)

// Cache is the part of a Redis connection the probe uses. Errors are
// classified with check.Kind.
type Cache interface {
	ServerVersion(ctx context.Context) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns found=false for a missing key.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Del(ctx context.Context, key string) error
	Close() error
}

// Connector opens a client and proves it with PING.
type Connector func(ctx context.Context, cfg Config) (Cache, error)

const hintPassword = "Check password in REDIS_URL"

type redisCache struct {
	client *redis.Client
}

// Connect opens a go-redis client from the URL and sends PING. TLS
// (rediss://) skips certificate verification, as managed clusters present
// a private CA.
func Connect(ctx context.Context, cfg Config) (Cache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, check.Wrap(check.KindNotConfigured, "parse url", err)
	}
	if opts.TLSConfig != nil {
		opts.TLSConfig.InsecureSkipVerify = true
	}
	if cfg.ConnectTimeout > 0 {
		opts.DialTimeout = cfg.ConnectTimeout
		opts.ReadTimeout = cfg.ConnectTimeout
		opts.WriteTimeout = cfg.ConnectTimeout
	}
	opts.MaxRetries = 0
	opts.PoolSize = 1

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, classify("ping", err)
	}
	return &redisCache{client: client}, nil
}

func (c *redisCache) ServerVersion(ctx context.Context) (string, error) {
	info, err := c.client.Info(ctx, "server").Result()
	if err != nil {
		return "", classify("info", err)
	}
	return parseVersion(info), nil
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return classify("set", c.client.Set(ctx, key, value, ttl).Err())
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify("get", err)
	}
	return v, true, nil
}

func (c *redisCache) Del(ctx context.Context, key string) error {
	return classify("del", c.client.Del(ctx, key).Err())
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*redisCache)(nil)

// parseVersion reads the server version from an INFO server reply. Valkey
// reports both valkey_version and a compatible redis_version; the former
// wins.
func parseVersion(info string) string {
	var redisVersion string
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if !ok {
			continue
		}
		switch key {
		case "valkey_version":
			return value
		case "redis_version":
			redisVersion = value
		}
	}
	if redisVersion == "" {
		return "unknown"
	}
	return redisVersion
}

// classify labels go-redis errors. Server errors carry their class as the
// first word of the reply.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var rerr redis.Error
	if errors.As(err, &rerr) {
		msg := rerr.Error()
		switch {
		case strings.HasPrefix(msg, "NOAUTH"), strings.HasPrefix(msg, "WRONGPASS"),
			strings.Contains(msg, "invalid password"), strings.Contains(msg, "invalid username-password"):
			return &check.Error{Kind: check.KindAuthFailed, Op: op, Hint: hintPassword, Err: err}
		case strings.HasPrefix(msg, "NOPERM"):
			return &check.Error{Kind: check.KindPermissionDenied, Op: op, Err: err}
		case strings.HasPrefix(msg, "READONLY"):
			return &check.Error{Kind: check.KindPermissionDenied, Op: op, Hint: "Connected to read-only replica", Err: err}
		}
		return &check.Error{Kind: check.KindOperationFailed, Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &check.Error{Kind: check.KindUnreachable, Op: op, Hint: "Check network connectivity and trusted sources", Err: err}
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return &check.Error{Kind: check.KindUnreachable, Op: op, Hint: "Check if Redis is running and firewall rules", Err: err}
	}
	return &check.Error{Kind: check.KindOperationFailed, Op: op, Err: err}
}
