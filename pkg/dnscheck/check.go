package dnscheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/vertti/validate-infra/pkg/check"
)

// DefaultTimeout bounds a lookup when Check.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Resolver abstracts name resolution for testability.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// RealResolver uses net.DefaultResolver.
type RealResolver struct{}

func (r *RealResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return net.DefaultResolver.LookupHost(ctx, host)
}

func (r *RealResolver) LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error) {
	return net.DefaultResolver.LookupSRV(ctx, service, proto, name)
}

// Check verifies that a hostname resolves.
type Check struct {
	Name     string // result name, defaults to "dns: host"
	Host     string
	Timeout  time.Duration
	Resolver Resolver // injected for testing
}

// Run executes the DNS check.
func (c *Check) Run() check.Result {
	return c.RunContext(context.Background())
}

// RunContext executes the DNS check under ctx.
func (c *Check) RunContext(ctx context.Context) check.Result {
	result := check.Result{Name: c.Name}
	if result.Name == "" {
		result.Name = "dns: " + c.Host
	}
	if c.Host == "" {
		return result.Fail("no hostname to resolve", check.Errorf(check.KindNotConfigured, "empty host"))
	}

	if ip := net.ParseIP(c.Host); ip != nil {
		result.Status = check.StatusOK
		result.AddDetailf("%s is an IP address", c.Host)
		return result
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addrs, err := c.Resolver.LookupHost(ctx, c.Host)
	if err != nil {
		return result.Fail(fmt.Sprintf("DNS resolution failed for %s: %s", c.Host, reason(err)),
			check.Wrap(check.KindUnreachable, "resolve", err))
	}
	if len(addrs) == 0 {
		return result.Fail(fmt.Sprintf("DNS resolution returned no addresses for %s", c.Host),
			check.Errorf(check.KindUnreachable, "no addresses for %s", c.Host))
	}

	result.Status = check.StatusOK
	result.AddDetailf("Resolved %s to %s", c.Host, addrs[0])
	return result
}

// ResolveSRV looks up the _<service>._tcp SRV records of host and returns
// the first target with its port.
func ResolveSRV(ctx context.Context, r Resolver, service, host string) (string, int, error) {
	_, records, err := r.LookupSRV(ctx, service, "tcp", host)
	if err != nil {
		return "", 0, check.Wrap(check.KindUnreachable, "resolve srv", err)
	}
	if len(records) == 0 {
		return "", 0, check.Errorf(check.KindUnreachable, "no SRV records for %s", host)
	}
	return strings.TrimSuffix(records[0].Target, "."), int(records[0].Port), nil
}

func reason(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timed out"
		}
		return dnsErr.Err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	return err.Error()
}

var _ check.Checker = (*Check)(nil)
