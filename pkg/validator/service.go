package validator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/dnscheck"
	"github.com/vertti/validate-infra/pkg/tcpcheck"
)

// Profile describes how a service's steps are named and gated.
type Profile struct {
	Name     string // check name prefix, e.g. "PostgreSQL"
	Kind     Kind
	Optional bool // unconfigured means skip rather than fail

	// ConnectStep names the check recorded after a successful Connect.
	// Empty records nothing on success; failures still use "Connection".
	ConnectStep   string
	ConnectDetail string

	// InfoStep names the best-effort metadata check. Empty disables it.
	InfoStep string

	// InstallHint is the detail of the Driver check when no client is wired.
	InstallHint string
}

// Endpoint is the target of the reachability gate.
type Endpoint struct {
	Host    string
	Port    int
	Resolve bool   // run a DNS check before the TCP check
	SRV     string // resolve _<SRV>._tcp.<Host> to find the TCP target
}

// Service is the per-kind part of a validator. Implementations hold an
// immutable configuration plus an injected client factory and never read
// the process environment.
type Service interface {
	Profile() Profile
	// Validate reports missing configuration as a not_configured error and
	// leftover ${...} placeholders as unresolved_template.
	Validate() error
	// Describe returns display lines with secrets masked.
	Describe() []string
	Endpoint() Endpoint
	// Driver returns a driver_missing error when no client is wired.
	Driver() error
	Connect(ctx context.Context) (Session, error)
}

// Session is an authenticated connection to a service.
type Session interface {
	// Info fetches server metadata. Errors are not reported as checks.
	Info(ctx context.Context) (string, error)
	// Probe exercises the service and removes what it created.
	Probe(ctx context.Context, rec *Recorder)
	Close() error
}

// ConnectDetailer is implemented by sessions whose connect detail depends on
// what the connection observed.
type ConnectDetailer interface {
	ConnectDetail() string
}

// Probes carries the reachability primitives and logger shared by all
// service validators.
type Probes struct {
	Dialer     tcpcheck.TCPDialer
	Resolver   dnscheck.Resolver
	TCPTimeout time.Duration
	Logger     *zap.Logger
}

// RealProbes returns Probes backed by the real network.
func RealProbes(tcpTimeout time.Duration, log *zap.Logger) Probes {
	return Probes{
		Dialer:     &tcpcheck.RealTCPDialer{},
		Resolver:   &dnscheck.RealResolver{},
		TCPTimeout: tcpTimeout,
		Logger:     log,
	}
}

// New wraps svc in the shared state machine.
func New(svc Service, probes Probes) Validator {
	return &serviceValidator{svc: svc, probes: probes}
}

type serviceValidator struct {
	svc    Service
	probes Probes
}

func (v *serviceValidator) Kind() Kind   { return v.svc.Profile().Kind }
func (v *serviceValidator) Name() string { return v.svc.Profile().Name }

func (v *serviceValidator) Configured() bool {
	return check.Classify(v.svc.Validate()) != check.KindNotConfigured
}

func (v *serviceValidator) Run(ctx context.Context) Outcome {
	p := v.svc.Profile()
	rec := NewRecorder(p.Name, v.probes.Logger)

	if err := v.svc.Validate(); err != nil {
		if p.Optional && check.Classify(err) == check.KindNotConfigured {
			rec.Skip(fmt.Sprintf("%s not configured, skipping (%v)", p.Name, err))
			return rec.Outcome()
		}
		rec.Fail("Config", "", err)
		return rec.Outcome()
	}

	for _, line := range v.svc.Describe() {
		rec.Info("%s", line)
	}

	if !v.reach(ctx, rec) {
		return rec.Outcome()
	}

	if err := v.svc.Driver(); err != nil {
		detail := p.InstallHint
		if detail == "" {
			detail = err.Error()
		}
		rec.Fail("Driver", detail, err)
		return rec.Outcome()
	}

	sess, err := v.svc.Connect(ctx)
	if err != nil {
		step := "Connection"
		if check.Classify(err) == check.KindAuthFailed {
			step = "Auth"
		}
		rec.Fail(step, "", err)
		return rec.Outcome()
	}
	defer func() {
		if err := sess.Close(); err != nil {
			rec.Logger().Debug("close failed", zap.Error(err))
		}
	}()

	if p.ConnectStep != "" {
		detail := p.ConnectDetail
		if d, ok := sess.(ConnectDetailer); ok {
			detail = d.ConnectDetail()
		}
		rec.Pass(p.ConnectStep, detail)
	}

	if p.InfoStep != "" {
		info, err := sess.Info(ctx)
		if err != nil {
			rec.Logger().Debug("server metadata unavailable", zap.Error(err))
		} else {
			rec.Pass(p.InfoStep, info)
		}
	}

	sess.Probe(ctx, rec)
	return rec.Outcome()
}

// reach runs the DNS and TCP gates, recording only what ran.
func (v *serviceValidator) reach(ctx context.Context, rec *Recorder) bool {
	p := v.svc.Profile()
	ep := v.svc.Endpoint()
	host, port := ep.Host, ep.Port

	switch {
	case ep.SRV != "":
		target, srvPort, err := dnscheck.ResolveSRV(ctx, v.probes.Resolver, ep.SRV, host)
		if err != nil {
			rec.Fail("DNS", fmt.Sprintf("SRV lookup for _%s._tcp.%s failed: %v", ep.SRV, host, err), err)
			return false
		}
		rec.Pass("DNS", fmt.Sprintf("SRV %s resolved to %s:%d", host, target, srvPort))
		host, port = target, srvPort
	case ep.Resolve:
		dns := &dnscheck.Check{
			Name:     p.Name + " DNS",
			Host:     host,
			Timeout:  v.probes.TCPTimeout,
			Resolver: v.probes.Resolver,
		}
		res := dns.RunContext(ctx)
		rec.Add(res)
		if !res.OK() {
			return false
		}
	}

	tcp := &tcpcheck.Check{
		Name:    p.Name + " TCP",
		Host:    host,
		Port:    port,
		Timeout: v.probes.TCPTimeout,
		Dialer:  v.probes.Dialer,
	}
	res := tcp.Run()
	rec.Add(res)
	return res.OK()
}
