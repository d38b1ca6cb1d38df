// Package trustcheck reports what a managed database firewall needs to know
// about this runtime: its VPC address, its egress IP and whether private and
// public service endpoints answer.
package trustcheck

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vertti/validate-infra/pkg/connurl"
	"github.com/vertti/validate-infra/pkg/envcheck"
	"github.com/vertti/validate-infra/pkg/httpcheck"
	"github.com/vertti/validate-infra/pkg/tcpcheck"
	"github.com/vertti/validate-infra/pkg/validator"
	"github.com/vertti/validate-infra/pkg/vpc"
)

// EgressSource is a service that echoes the caller's public IP. With a
// JSONPath the IP is read from a JSON body, otherwise the body is the IP.
type EgressSource struct {
	URL      string
	JSONPath string
}

// EgressSources are tried in order until one returns an IPv4 address.
var EgressSources = []EgressSource{
	{URL: "https://api.ipify.org?format=json", JSONPath: "ip"},
	{URL: "https://icanhazip.com"},
	{URL: "https://ifconfig.me/ip"},
}

const (
	metadataHost = "169.254.169.254"
	metadataURL  = "http://169.254.169.254/metadata/v1/id"
	userAgent    = "curl/7.68.0"
)

// Endpoint is a service whose firewall may restrict access.
type Endpoint struct {
	Name    string
	Private string // private URL variable
	Public  string // public URL variable
	Port    int    // used when the URL carries no port
}

// Endpoints are checked in order.
var Endpoints = []Endpoint{
	{"PostgreSQL", "DATABASE_PRIVATE_URL", "DATABASE_URL", 5432},
	{"MySQL", "MYSQL_PRIVATE_URL", "MYSQL_URL", 3306},
	{"MongoDB", "MONGODB_PRIVATE_URI", "MONGODB_URI", 27017},
	{"Redis/Valkey", "REDIS_PRIVATE_URL", "REDIS_URL", 6379},
	{"OpenSearch", "OPENSEARCH_PRIVATE_URL", "OPENSEARCH_URL", 25060},
}

// Validator runs the trusted sources report. It is always configured.
type Validator struct {
	Env         envcheck.EnvGetter
	VPC         *vpc.Detector
	Probes      validator.Probes
	HTTP        httpcheck.HTTPClient
	HTTPTimeout time.Duration
	Retry       int           // extra attempts per egress source on transport failure
	RetryDelay  time.Duration // between those attempts
}

// New returns a Validator on the real network.
func New(env envcheck.EnvGetter, detector *vpc.Detector, probes validator.Probes, httpTimeout time.Duration) *Validator {
	return &Validator{
		Env:         env,
		VPC:         detector,
		Probes:      probes,
		HTTP:        &httpcheck.RealHTTPClient{Timeout: httpTimeout},
		HTTPTimeout: httpTimeout,
		Retry:       1,
		RetryDelay:  500 * time.Millisecond,
	}
}

func (v *Validator) Kind() validator.Kind { return validator.KindTrustedSources }
func (v *Validator) Name() string         { return "Trusted Sources" }
func (v *Validator) Configured() bool     { return true }

func (v *Validator) Run(ctx context.Context) validator.Outcome {
	rec := validator.NewRecorder("", v.Probes.Logger)

	v.interfaces(rec)
	addr := v.VPC.Address()
	if addr != "" {
		rec.Pass("VPC Configuration", "VPC IP: "+addr)
	} else {
		rec.Pass("VPC Configuration", "No VPC interface (using public network)")
	}

	v.egress(ctx, rec)
	v.metadata(ctx, rec)

	for _, ep := range Endpoints {
		v.endpoint(rec, ep, addr != "")
	}

	if addr == "" {
		rec.Warn("Not in VPC - trusted sources must use the egress IP shown above")
		rec.Info("For VPC connectivity, deploy the app with a vpc configuration in its app spec")
	}
	return rec.Outcome()
}

func (v *Validator) interfaces(rec *validator.Recorder) {
	addrs := v.VPC.Addresses()
	if len(addrs) == 0 {
		return
	}
	rec.Info("Network interfaces:")
	for _, a := range addrs {
		if a.VPC {
			rec.Info("  %s (VPC)", a.IP)
		} else {
			rec.Info("  %s", a.IP)
		}
	}
}

func (v *Validator) request(url string, timeout time.Duration) *httpcheck.Check {
	return &httpcheck.Check{
		URL:      url,
		Method:   http.MethodGet,
		Headers:  map[string]string{"User-Agent": userAgent},
		Accept:   []int{http.StatusOK},
		Timeout:  timeout,
		ReadBody: true,
		Client:   v.HTTP,
	}
}

func (v *Validator) get(ctx context.Context, url string, timeout time.Duration) (string, error) {
	resp, err := v.request(url, timeout).Do(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(resp.Body)), nil
}

// lookupEgress asks one source for the egress IP.
func (v *Validator) lookupEgress(ctx context.Context, src EgressSource) (string, error) {
	c := v.request(src.URL, v.HTTPTimeout)
	c.JSONPath = src.JSONPath
	c.Retry = v.Retry
	c.RetryDelay = v.RetryDelay
	resp, err := c.Do(ctx)
	if err != nil {
		return "", err
	}
	if src.JSONPath != "" {
		return strings.TrimSpace(gjson.GetBytes(resp.Body, src.JSONPath).String()), nil
	}
	return strings.TrimSpace(string(resp.Body)), nil
}

func (v *Validator) egress(ctx context.Context, rec *validator.Recorder) {
	for _, src := range EgressSources {
		ip, err := v.lookupEgress(ctx, src)
		if err != nil {
			rec.Verbose("Egress lookup via %s failed: %v", src.URL, err)
			continue
		}
		if net.ParseIP(ip) != nil && strings.Contains(ip, ".") {
			rec.Pass("Egress IP", "Egress IP: "+ip)
			rec.Info("Add this IP as a trusted source: %s", ip)
			rec.Info("  doctl databases firewalls append <db-id> --rule ip_addr:%s", ip)
			return
		}
	}
	rec.Fail("Egress IP", "Could not determine egress IP", nil)
}

// metadata never fails; the service is absent on App Platform.
func (v *Validator) metadata(ctx context.Context, rec *validator.Recorder) {
	tcp := &tcpcheck.Check{Host: metadataHost, Port: 80, Timeout: 2 * time.Second, Dialer: v.Probes.Dialer}
	if !tcp.Run().OK() {
		rec.Pass("Metadata Service", "Metadata service not available (may be normal for App Platform)")
		return
	}
	id, err := v.get(ctx, metadataURL, 2*time.Second)
	if err != nil || id == "" {
		rec.Pass("Metadata Service", "Metadata service reachable but couldn't read")
		return
	}
	if len(id) > 20 {
		id = id[:20]
	}
	rec.Pass("Metadata Service", fmt.Sprintf("Metadata service accessible (ID: %s...)", id))
}

func isPrivateHost(host string) bool {
	return strings.HasPrefix(host, "10.") || strings.HasPrefix(host, "private-")
}

func (v *Validator) tcp(host string, port int) (bool, string) {
	c := &tcpcheck.Check{Host: host, Port: port, Timeout: v.Probes.TCPTimeout, Dialer: v.Probes.Dialer}
	res := c.Run()
	return res.OK(), res.Detail()
}

func (v *Validator) lookup(name string) string {
	if v.Env == nil {
		return ""
	}
	val, _ := v.Env.LookupEnv(name)
	return val
}

func target(raw string, fallback int) (string, int) {
	d := connurl.Parse(raw)
	if d.Port == 0 {
		d.Port = fallback
	}
	return d.Host, d.Port
}

// endpoint checks the private URL as a pass/fail check and reports the
// public URL as notes only: a reachable public endpoint is not an error.
func (v *Validator) endpoint(rec *validator.Recorder, ep Endpoint, inside bool) {
	if raw := v.lookup(ep.Private); raw != "" && inside {
		host, port := target(raw, ep.Port)
		if isPrivateHost(host) {
			if ok, detail := v.tcp(host, port); ok {
				rec.Pass(ep.Name+" Private", fmt.Sprintf("Private endpoint %s:%d reachable", host, port))
			} else {
				rec.Fail(ep.Name+" Private", detail, nil)
			}
		} else {
			rec.Verbose("%s: %s does not point at a private host", ep.Name, ep.Private)
		}
	}

	raw := v.lookup(ep.Public)
	if raw == "" {
		return
	}
	host, port := target(raw, ep.Port)
	if host == "" || isPrivateHost(host) {
		return
	}
	ok, detail := v.tcp(host, port)
	switch {
	case ok:
		rec.Info("%s: Public endpoint accessible (trusted sources may not be configured)", ep.Name)
	case strings.Contains(detail, "timed out"), strings.Contains(detail, "refused"):
		rec.Info("%s: Public endpoint blocked (trusted sources working)", ep.Name)
	default:
		rec.Warn("%s: %s", ep.Name, detail)
	}
}

var _ validator.Validator = (*Validator)(nil)
