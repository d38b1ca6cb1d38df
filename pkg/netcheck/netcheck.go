// Package netcheck validates outbound connectivity from the runtime: DNS,
// HTTPS egress, the DigitalOcean API, container registries and the VPC.
package netcheck

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/dnscheck"
	"github.com/vertti/validate-infra/pkg/httpcheck"
	"github.com/vertti/validate-infra/pkg/tcpcheck"
	"github.com/vertti/validate-infra/pkg/validator"
)

// MetadataAddr is the link-local metadata service.
const MetadataAddr = "169.254.169.254"

// DNSHosts are resolved by the DNS Resolution check.
var DNSHosts = []string{"google.com", "api.digitalocean.com", "registry.digitalocean.com"}

// Topology reports the VPC address, "" outside the VPC.
type Topology interface {
	Address() string
}

type target struct {
	url, name string
}

var httpsTargets = []target{
	{"https://api.digitalocean.com/v2/", "DigitalOcean API"},
	{"https://www.google.com/", "Google"},
}

const doAPI = "https://api.digitalocean.com/v2/"

type registry struct {
	check, host, ok, tlsFailed string
}

var registries = []registry{
	{"DO Container Registry", "registry.digitalocean.com", "Container Registry reachable (TLS verified)", "Container Registry TLS failed"},
	{"GitHub Container Registry", "ghcr.io", "GitHub Container Registry reachable (TLS verified)", "GHCR TLS failed"},
}

// Validator runs the network basics. It is always configured.
type Validator struct {
	Probes      validator.Probes
	HTTP        httpcheck.HTTPClient
	TLS         TLSDialer
	VPC         Topology
	HTTPTimeout time.Duration
}

// New returns a Validator on the real network.
func New(probes validator.Probes, vpc Topology, httpTimeout time.Duration) *Validator {
	return &Validator{
		Probes:      probes,
		HTTP:        &httpcheck.RealHTTPClient{Timeout: httpTimeout},
		TLS:         RealTLSDialer{},
		VPC:         vpc,
		HTTPTimeout: httpTimeout,
	}
}

func (v *Validator) Kind() validator.Kind { return validator.KindNetwork }
func (v *Validator) Name() string         { return "Network" }
func (v *Validator) Configured() bool     { return true }

func (v *Validator) Run(ctx context.Context) validator.Outcome {
	rec := validator.NewRecorder("", v.Probes.Logger)
	addr := v.VPC.Address()
	if addr != "" {
		rec.Info("VPC detected: %s", addr)
	} else {
		rec.Info("No VPC interface - using public network")
	}

	v.dns(ctx, rec)
	v.externalHTTPS(ctx, rec)
	v.doAPI(ctx, rec)
	for _, r := range registries {
		v.registry(ctx, rec, r)
	}
	v.internalDNS(rec, addr)

	if addr != "" {
		rec.Pass("VPC Connectivity", "VPC interface detected: "+addr)
	} else {
		rec.Pass("VPC Connectivity", "No VPC interface detected (using public network)")
	}
	return rec.Outcome()
}

func (v *Validator) dns(ctx context.Context, rec *validator.Recorder) {
	for _, host := range DNSHosts {
		c := &dnscheck.Check{Host: host, Timeout: v.Probes.TCPTimeout, Resolver: v.Probes.Resolver}
		if res := c.RunContext(ctx); !res.OK() {
			rec.Fail("DNS Resolution", res.Detail(), res.Err)
			return
		}
	}
	rec.Pass("DNS Resolution", fmt.Sprintf("DNS resolution working (tested: %s)", strings.Join(DNSHosts, ", ")))
}

func (v *Validator) request(url, method string) *httpcheck.Check {
	return &httpcheck.Check{URL: url, Method: method, Timeout: v.HTTPTimeout, Client: v.HTTP}
}

func (v *Validator) externalHTTPS(ctx context.Context, rec *validator.Recorder) {
	for _, t := range httpsTargets {
		if _, err := v.request(t.url, http.MethodHead).Do(ctx); err != nil {
			rec.Fail("External HTTPS", fmt.Sprintf("Failed to connect to %s (%s): %v", t.name, t.url, err), err)
			return
		}
	}
	rec.Pass("External HTTPS", "External HTTPS connectivity working")
}

// doAPI expects the unauthenticated API to refuse the request.
func (v *Validator) doAPI(ctx context.Context, rec *validator.Recorder) {
	resp, err := v.request(doAPI, http.MethodGet).Do(ctx)
	switch {
	case err != nil:
		rec.Fail("DigitalOcean API", fmt.Sprintf("Failed to reach DigitalOcean API: %v", err), err)
	case resp.Status == http.StatusUnauthorized, resp.Status == http.StatusForbidden, resp.Status == http.StatusNotFound:
		rec.Pass("DigitalOcean API", "DigitalOcean API reachable (auth required, as expected)")
	case resp.Status >= 200 && resp.Status < 400:
		rec.Pass("DigitalOcean API", "DigitalOcean API reachable")
	default:
		rec.Fail("DigitalOcean API", fmt.Sprintf("DigitalOcean API returned unexpected error: %d", resp.Status),
			&check.Error{Kind: check.KindOperationFailed, Status: resp.Status, Err: fmt.Errorf("HTTP %d", resp.Status)})
	}
}

func (v *Validator) registry(ctx context.Context, rec *validator.Recorder, r registry) {
	tcp := &tcpcheck.Check{Host: r.host, Port: 443, Timeout: v.Probes.TCPTimeout, Dialer: v.Probes.Dialer}
	if res := tcp.Run(); !res.OK() {
		rec.Fail(r.check, res.Detail(), res.Err)
		return
	}
	if err := v.TLS.Handshake(ctx, r.host, 443, v.HTTPTimeout); err != nil {
		rec.Fail(r.check, fmt.Sprintf("%s: %v", r.tlsFailed, err), check.Wrap(check.KindUnreachable, "tls handshake", err))
		return
	}
	rec.Pass(r.check, r.ok)
}

// internalDNS probes the metadata service inside the VPC. It never fails.
func (v *Validator) internalDNS(rec *validator.Recorder, addr string) {
	if addr == "" {
		rec.Pass("Internal DNS", "Not in VPC - internal DNS check skipped")
		return
	}
	tcp := &tcpcheck.Check{Host: MetadataAddr, Port: 80, Timeout: 2 * time.Second, Dialer: v.Probes.Dialer}
	if tcp.Run().OK() {
		rec.Pass("Internal DNS", "Internal metadata service reachable")
		return
	}
	rec.Pass("Internal DNS", "Internal DNS - metadata service not available (may be normal)")
}

var _ validator.Validator = (*Validator)(nil)
