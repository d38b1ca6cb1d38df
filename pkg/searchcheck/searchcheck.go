// Package searchcheck validates an OpenSearch cluster: health, version,
// index listing and a create, index, search, delete cycle.
package searchcheck

import (
	"context"
	"fmt"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/connurl"
	"github.com/vertti/validate-infra/pkg/validator"
)

// TestIndex is the scratch index created and deleted by the probe.
const TestIndex = "_validate_infra_test"

// Service validates one OpenSearch cluster.
type Service struct {
	Config Config
	Open   Connector // nil means no client is available
}

// New returns a Service using opensearch-go.
func New(cfg Config) *Service {
	return &Service{Config: cfg, Open: Connect}
}

// Validator wraps New in the shared validator state machine.
func Validator(cfg Config, probes validator.Probes) validator.Validator {
	return validator.New(New(cfg), probes)
}

func (s *Service) Profile() validator.Profile {
	return validator.Profile{
		Name:        "OpenSearch",
		Kind:        validator.KindSearch,
		InstallHint: "OpenSearch client (opensearch-go) not available in this build",
		InfoStep:    "Version",
	}
}

func (s *Service) Validate() error {
	// An unresolved URL does not parse, so Host is empty for it too.
	for _, v := range []string{s.Config.URL, s.Config.Host, s.Config.Password} {
		if vars := connurl.Placeholders(v); len(vars) > 0 {
			return check.Wrap(check.KindUnresolvedTemplate, "config", &connurl.ErrUnresolved{Vars: vars})
		}
	}
	if s.Config.Host == "" {
		return check.Errorf(check.KindNotConfigured, "No OpenSearch configuration found (OPENSEARCH_URL or OPENSEARCH_HOST)")
	}
	return nil
}

func (s *Service) Describe() []string {
	tls := "disabled"
	if s.Config.UseSSL {
		tls = "enabled"
	}
	return []string{
		"Found OpenSearch configuration in " + s.Config.Source,
		fmt.Sprintf("Host: %s:%d", s.Config.Host, s.Config.Port),
		"Username: " + s.Config.Username,
		"Password: " + connurl.Mask(s.Config.Password, 4),
		"TLS: " + tls,
	}
}

func (s *Service) Endpoint() validator.Endpoint {
	return validator.Endpoint{Host: s.Config.Host, Port: s.Config.Port}
}

func (s *Service) Driver() error {
	if s.Open == nil {
		return check.Errorf(check.KindDriverMissing, "no OpenSearch client")
	}
	return nil
}

func (s *Service) Connect(ctx context.Context) (validator.Session, error) {
	c, err := s.Open(ctx, s.Config)
	if err != nil {
		return nil, err
	}
	return &session{cluster: c}, nil
}

type session struct {
	cluster Cluster
}

func (s *session) Info(ctx context.Context) (string, error) {
	v, err := s.cluster.Version(ctx)
	if err != nil {
		return "", err
	}
	return "Version: " + v, nil
}

func (s *session) Close() error {
	return s.cluster.Close()
}

// Probe checks cluster health, lists indices, then runs the document cycle
// on TestIndex. A red cluster ends the probe; a failed listing does not.
func (s *session) Probe(ctx context.Context, rec *validator.Recorder) {
	h, err := s.cluster.Health(ctx)
	if err != nil {
		rec.Fail("Health", "", err)
		return
	}
	detail := fmt.Sprintf("Status: %s, Cluster: %s", h.Status, h.Cluster)
	if !h.Healthy() {
		rec.Fail("Health", detail, nil)
		return
	}
	rec.Pass("Health", detail)
	if h.Status == "yellow" {
		rec.Verbose("Cluster is yellow: replicas may be missing")
	}

	if n, err := s.cluster.IndexCount(ctx); err != nil {
		rec.Fail("Indices", "", err)
	} else {
		rec.Pass("Indices", fmt.Sprintf("%d indices found", n))
	}

	s.documents(ctx, rec)
}

func (s *session) documents(ctx context.Context, rec *validator.Recorder) {
	if err := s.cluster.CreateIndex(ctx, TestIndex); err != nil {
		rec.Fail("Operations", "", err)
		return
	}
	defer func() {
		err := s.cluster.DeleteIndex(context.WithoutCancel(ctx), TestIndex)
		if err != nil {
			rec.Cleanup("index "+TestIndex, err)
			return
		}
		rec.Verbose("Deleted test index")
	}()
	rec.Pass("CREATE", "Created index "+TestIndex)

	id, err := s.cluster.IndexDocument(ctx, TestIndex)
	if err != nil {
		rec.Fail("Operations", "", err)
		return
	}
	rec.Pass("INDEX", "Indexed document")

	hits, err := s.cluster.Search(ctx, TestIndex)
	if err != nil {
		rec.Fail("Operations", "", err)
		return
	}
	rec.Pass("SEARCH", fmt.Sprintf("Found %d documents", hits))

	if err := s.cluster.DeleteDocument(ctx, TestIndex, id); err != nil {
		rec.Fail("Operations", "", err)
		return
	}
	rec.Pass("DELETE", "Deleted document")
}
