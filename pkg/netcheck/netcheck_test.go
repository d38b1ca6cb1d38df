package netcheck

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/testutil"
	"github.com/vertti/validate-infra/pkg/validator"
	"github.com/vertti/validate-infra/pkg/vpc"
)

type mockTLS struct {
	err   error
	hosts []string
}

func (m *mockTLS) Handshake(_ context.Context, host string, _ int, _ time.Duration) error {
	m.hosts = append(m.hosts, host)
	return m.err
}

func statusClient(byURL map[string]int) *testutil.MockHTTPClient {
	return &testutil.MockHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
		status, ok := byURL[req.URL.String()]
		if !ok {
			status = 200
		}
		return testutil.MockResponse(status, ""), nil
	}}
}

func newValidator(addr string) (*Validator, *mockTLS) {
	tlsDialer := &mockTLS{}
	return &Validator{
		Probes: validator.Probes{
			Dialer:   testutil.OKDialer(),
			Resolver: testutil.StaticResolver("203.0.113.1"),
		},
		HTTP: statusClient(map[string]int{doAPI: 401}),
		TLS:  tlsDialer,
		VPC:  vpc.FixedAddr(addr),
	}, tlsDialer
}

func find(out validator.Outcome, name string) check.Result {
	for _, r := range out.Checks {
		if r.Name == name {
			return r
		}
	}
	return check.Result{}
}

func TestNetworkAllPass(t *testing.T) {
	v, tlsDialer := newValidator("")
	out := v.Run(context.Background())

	assert.Equal(t, 7, len(out.Checks))
	assert.True(t, out.Checks.OK(), "%v", out.Checks.Failed())
	assert.Equal(t, "DNS resolution working (tested: google.com, api.digitalocean.com, registry.digitalocean.com)",
		find(out, "DNS Resolution").Detail())
	assert.Equal(t, "DigitalOcean API reachable (auth required, as expected)", find(out, "DigitalOcean API").Detail())
	assert.Equal(t, "Not in VPC - internal DNS check skipped", find(out, "Internal DNS").Detail())
	assert.Equal(t, "No VPC interface detected (using public network)", find(out, "VPC Connectivity").Detail())
	assert.Equal(t, []string{"registry.digitalocean.com", "ghcr.io"}, tlsDialer.hosts)
	assert.Equal(t, "No VPC interface - using public network", out.Notes[0].Text)
}

func TestNetworkInsideVPC(t *testing.T) {
	v, _ := newValidator("10.10.0.4")
	dialer := testutil.OKDialer()
	v.Probes.Dialer = dialer
	out := v.Run(context.Background())

	assert.Equal(t, "VPC interface detected: 10.10.0.4", find(out, "VPC Connectivity").Detail())
	assert.Equal(t, "Internal metadata service reachable", find(out, "Internal DNS").Detail())
	assert.Contains(t, dialer.Calls, "169.254.169.254:80")
}

func TestNetworkMetadataUnavailableStillPasses(t *testing.T) {
	v, _ := newValidator("10.10.0.4")
	v.Probes.Dialer = &testutil.MockDialer{DialFunc: func(_, address string, _ time.Duration) (net.Conn, error) {
		if address == "169.254.169.254:80" {
			return nil, errors.New("i/o timeout")
		}
		return &testutil.MockConn{}, nil
	}}
	out := v.Run(context.Background())

	internal := find(out, "Internal DNS")
	assert.True(t, internal.OK())
	assert.Equal(t, "Internal DNS - metadata service not available (may be normal)", internal.Detail())
}

func TestNetworkDNSFailure(t *testing.T) {
	v, _ := newValidator("")
	v.Probes.Resolver = &testutil.MockResolver{LookupHostFunc: func(_ context.Context, host string) ([]string, error) {
		if host == "api.digitalocean.com" {
			return nil, &net.DNSError{Err: "server misbehaving", Name: host}
		}
		return []string{"203.0.113.1"}, nil
	}}
	out := v.Run(context.Background())

	dns := find(out, "DNS Resolution")
	require.False(t, dns.OK())
	assert.Contains(t, dns.Detail(), "api.digitalocean.com")
	assert.Len(t, out.Checks.Failed(), 1)
}

func TestNetworkAPIStatuses(t *testing.T) {
	tests := []struct {
		status int
		ok     bool
		detail string
	}{
		{200, true, "DigitalOcean API reachable"},
		{404, true, "DigitalOcean API reachable (auth required, as expected)"},
		{502, false, "DigitalOcean API returned unexpected error: 502"},
	}
	for _, tt := range tests {
		v, _ := newValidator("")
		v.HTTP = statusClient(map[string]int{doAPI: tt.status})
		res := find(v.Run(context.Background()), "DigitalOcean API")
		assert.Equal(t, tt.ok, res.OK(), tt.status)
		assert.Equal(t, tt.detail, res.Detail(), tt.status)
	}
}

func TestNetworkHTTPSFailure(t *testing.T) {
	v, _ := newValidator("")
	v.HTTP = &testutil.MockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	out := v.Run(context.Background())

	res := find(out, "External HTTPS")
	assert.False(t, res.OK())
	assert.Contains(t, res.Detail(), "Failed to connect to DigitalOcean API (https://api.digitalocean.com/v2/)")
	assert.Equal(t, check.KindUnreachable, check.Classify(res.Err))
}

func TestNetworkRegistryTLSFailure(t *testing.T) {
	v, tlsDialer := newValidator("")
	tlsDialer.err = errors.New("x509: certificate has expired")
	out := v.Run(context.Background())

	res := find(out, "GitHub Container Registry")
	assert.False(t, res.OK())
	assert.Equal(t, "GHCR TLS failed: x509: certificate has expired", res.Detail())
}

func TestNetworkRegistryTCPFailureSkipsTLS(t *testing.T) {
	v, tlsDialer := newValidator("")
	v.Probes.Dialer = &testutil.MockDialer{DialFunc: func(_, address string, _ time.Duration) (net.Conn, error) {
		if address == "ghcr.io:443" {
			return nil, errors.New("connection refused")
		}
		return &testutil.MockConn{}, nil
	}}
	out := v.Run(context.Background())

	assert.False(t, find(out, "GitHub Container Registry").OK())
	assert.Equal(t, []string{"registry.digitalocean.com"}, tlsDialer.hosts)
}

func TestValidatorIdentity(t *testing.T) {
	v := New(validator.Probes{}, vpc.Fixed(false), time.Second)
	assert.Equal(t, validator.KindNetwork, v.Kind())
	assert.Equal(t, "Network", v.Name())
	assert.True(t, v.Configured())
}
