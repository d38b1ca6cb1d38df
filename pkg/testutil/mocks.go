package testutil

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// MockHTTPClient is a test double for HTTP clients.
type MockHTTPClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.DoFunc(req)
}

// MockResponse creates an http.Response with given status and body.
func MockResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

// MockDialer is a test double for tcpcheck.TCPDialer.
type MockDialer struct {
	DialFunc func(network, address string, timeout time.Duration) (net.Conn, error)
	Calls    []string
}

func (m *MockDialer) DialTimeout(network, address string, timeout time.Duration) (net.Conn, error) {
	m.Calls = append(m.Calls, address)
	return m.DialFunc(network, address, timeout)
}

// OKDialer returns a dialer whose every dial succeeds.
func OKDialer() *MockDialer {
	return &MockDialer{DialFunc: func(string, string, time.Duration) (net.Conn, error) {
		return &MockConn{}, nil
	}}
}

// FailDialer returns a dialer whose every dial fails with err.
func FailDialer(err error) *MockDialer {
	return &MockDialer{DialFunc: func(string, string, time.Duration) (net.Conn, error) {
		return nil, err
	}}
}

// MockConn is a minimal net.Conn implementation for testing.
type MockConn struct{}

func (m *MockConn) Read(b []byte) (n int, err error)   { return 0, nil }
func (m *MockConn) Write(b []byte) (n int, err error)  { return len(b), nil }
func (m *MockConn) Close() error                       { return nil }
func (m *MockConn) LocalAddr() net.Addr                { return nil }
func (m *MockConn) RemoteAddr() net.Addr               { return nil }
func (m *MockConn) SetDeadline(time.Time) error        { return nil }
func (m *MockConn) SetReadDeadline(time.Time) error    { return nil }
func (m *MockConn) SetWriteDeadline(time.Time) error   { return nil }

// MockEnvGetter is a map-backed envcheck.EnvGetter.
type MockEnvGetter struct {
	Vars map[string]string
}

func (m *MockEnvGetter) LookupEnv(key string) (string, bool) {
	v, ok := m.Vars[key]
	return v, ok
}

func (m *MockEnvGetter) Environ() []string {
	out := make([]string, 0, len(m.Vars))
	for k, v := range m.Vars {
		out = append(out, k+"="+v)
	}
	return out
}

// MockResolver is a test double for dnscheck.Resolver.
type MockResolver struct {
	LookupHostFunc func(ctx context.Context, host string) ([]string, error)
	LookupSRVFunc  func(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

func (m *MockResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return m.LookupHostFunc(ctx, host)
}

func (m *MockResolver) LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error) {
	if m.LookupSRVFunc == nil {
		return "", nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
	}
	return m.LookupSRVFunc(ctx, service, proto, name)
}

// StaticResolver resolves every host to addrs.
func StaticResolver(addrs ...string) *MockResolver {
	return &MockResolver{LookupHostFunc: func(context.Context, string) ([]string, error) {
		return addrs, nil
	}}
}

// Ptr returns a pointer to the value (useful for optional fields in tests).
func Ptr[T any](v T) *T {
	return &v
}

// ContainsDetail checks if any detail string contains the given substring.
func ContainsDetail(details []string, substr string) bool {
	for _, d := range details {
		if strings.Contains(d, substr) {
			return true
		}
	}
	return false
}
