// Package gradientcheck validates an OpenAI-compatible serverless inference
// endpoint: network reachability, HTTPS, and model listing when an access
// key is configured.
package gradientcheck

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/connurl"
	"github.com/vertti/validate-infra/pkg/httpcheck"
	"github.com/vertti/validate-infra/pkg/validator"
)

// PreferredModels are reported by name when available, in order.
var PreferredModels = []string{
	"meta-llama/Llama-3.3-70B-Instruct",
	"meta-llama/Llama-3.1-8B-Instruct",
	"mistralai/Mistral-7B-Instruct-v0.3",
}

// Service validates one inference endpoint.
type Service struct {
	Config Config
	Open   Connector // nil means no API client is available
	HTTP   httpcheck.HTTPClient

	// Always runs the checks against the default endpoint even when
	// nothing is configured.
	Always bool
}

// New returns a Service using go-openai.
func New(cfg Config) *Service {
	return &Service{Config: cfg, Open: Connect}
}

// Validator wraps New in the shared validator state machine. always makes
// the validator run against the default endpoint when nothing is set.
func Validator(cfg Config, probes validator.Probes, always bool) validator.Validator {
	s := New(cfg)
	s.Always = always
	return validator.New(s, probes)
}

func (s *Service) Profile() validator.Profile {
	return validator.Profile{
		Name:        "Gradient",
		Kind:        validator.KindInference,
		Optional:    true,
		InstallHint: "Inference client (go-openai) not available in this build",
	}
}

func (s *Service) Validate() error {
	if !s.Config.Explicit && !s.Always {
		return check.Errorf(check.KindNotConfigured, "Gradient AI not configured (MODEL_ACCESS_KEY, INFERENCE_ENDPOINT)")
	}
	for _, v := range []string{s.Config.AccessKey, s.Config.Endpoint} {
		if vars := connurl.Placeholders(v); len(vars) > 0 {
			return check.Wrap(check.KindUnresolvedTemplate, "config", &connurl.ErrUnresolved{Vars: vars})
		}
	}
	return nil
}

func (s *Service) Describe() []string {
	key := "not configured"
	if s.Config.AccessKey != "" {
		key = connurl.Mask(s.Config.AccessKey, 4)
	}
	return []string{"Endpoint: " + s.Config.Endpoint, "Access Key: " + key}
}

func (s *Service) Endpoint() validator.Endpoint {
	d := connurl.Parse(s.Config.Endpoint)
	port := d.Port
	if port == 0 {
		port = 443
		if strings.EqualFold(d.Scheme, "http") {
			port = 80
		}
	}
	return validator.Endpoint{Host: d.Host, Port: port, Resolve: true}
}

func (s *Service) Driver() error {
	if s.Open == nil && s.Config.AccessKey != "" {
		return check.Errorf(check.KindDriverMissing, "no inference API client")
	}
	return nil
}

func (s *Service) Connect(context.Context) (validator.Session, error) {
	sess := &session{
		https: &httpcheck.Check{
			Name:    "Gradient HTTPS",
			URL:     s.Config.Endpoint + "/",
			Timeout: s.Config.Timeout,
			Client:  s.HTTP,
		},
	}
	if s.Config.AccessKey != "" {
		sess.api = s.Open(s.Config)
	}
	return sess, nil
}

type session struct {
	https *httpcheck.Check
	api   ModelLister // nil without an access key
}

func (s *session) Info(context.Context) (string, error) { return "", nil }
func (s *session) Close() error                         { return nil }

// Probe checks HTTPS then, with an access key, lists models.
func (s *session) Probe(ctx context.Context, rec *validator.Recorder) {
	res := s.https.Run(ctx)
	rec.Add(res)
	if !res.OK() {
		return
	}

	if s.api == nil {
		rec.Info("MODEL_ACCESS_KEY not configured - skipping API checks")
		return
	}

	models, err := s.api.ListModels(ctx)
	if err != nil {
		step := "API"
		if check.Classify(err) == check.KindAuthFailed {
			step = "Auth"
		}
		rec.Fail(step, "", err)
		return
	}
	rec.Pass("API", fmt.Sprintf("API accessible, %d models", len(models)))
	if len(models) > 0 {
		shown := models
		if len(shown) > 5 {
			shown = shown[:5]
		}
		rec.Verbose("Available models: %s", strings.Join(shown, ", "))
	}

	for _, m := range PreferredModels {
		if slices.Contains(models, m) {
			rec.Pass("Model", m+" available")
			return
		}
	}
	if len(models) > 0 {
		rec.Pass("Model", "Found model: "+models[0])
	}
}
