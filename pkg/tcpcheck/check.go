package tcpcheck

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vertti/validate-infra/pkg/check"
)

// DefaultTimeout bounds a dial when Check.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// TCPDialer abstracts network dialing for testability.
type TCPDialer interface {
	DialTimeout(network, address string, timeout time.Duration) (net.Conn, error)
}

// RealTCPDialer uses the real net package.
type RealTCPDialer struct{}

// DialTimeout dials the network address with a timeout.
func (d *RealTCPDialer) DialTimeout(network, address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout(network, address, timeout)
}

// Check verifies TCP connectivity to a host:port.
type Check struct {
	Name    string        // result name, defaults to "tcp: host:port"
	Host    string        // host to connect to
	Port    int           // port to connect to
	Timeout time.Duration // connection timeout (default 5s)
	Dialer  TCPDialer     // injected for testing
}

// Run executes the TCP connectivity check.
func (c *Check) Run() check.Result {
	address := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	result := check.Result{Name: c.Name}
	if result.Name == "" {
		result.Name = "tcp: " + address
	}

	if c.Host == "" {
		return result.Fail("no host to connect to",
			check.Errorf(check.KindNotConfigured, "empty host"))
	}
	if c.Port <= 0 {
		return result.Fail(fmt.Sprintf("no port known for %s", c.Host),
			check.Errorf(check.KindNotConfigured, "missing port"))
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	conn, err := c.Dialer.DialTimeout("tcp", address, timeout)
	if err != nil {
		msg := Describe(c.Host, address, timeout, err)
		return result.Fail(msg, check.Wrap(check.KindUnreachable, "dial", err))
	}
	defer func() { _ = conn.Close() }()

	result.Status = check.StatusOK
	result.AddDetailf("TCP connection to %s successful", address)
	return result
}

// Describe turns a dial error into a message that distinguishes refused
// connections, timeouts and DNS failures.
func Describe(host, address string, timeout time.Duration, err error) string {
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return fmt.Sprintf("DNS resolution failed for %s: %v", host, dnsErr.Err)
	case isTimeout(err):
		return fmt.Sprintf("TCP connection to %s timed out after %s", address, timeout)
	case errors.Is(err, syscall.ECONNREFUSED), strings.Contains(strings.ToLower(err.Error()), "refused"):
		return fmt.Sprintf("TCP connection to %s failed (connection refused)", address)
	case strings.Contains(err.Error(), "no such host"):
		return fmt.Sprintf("DNS resolution failed for %s: %v", host, err)
	default:
		return fmt.Sprintf("TCP connection to %s failed: %v", address, err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "i/o timeout")
}

var _ check.Checker = (*Check)(nil)
