package gradientcheck

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/envcheck"
	"github.com/vertti/validate-infra/pkg/testutil"
	"github.com/vertti/validate-infra/pkg/validator"
	"github.com/vertti/validate-infra/pkg/vpc"
)

type mockLister struct {
	models []string
	err    error
}

func (m *mockLister) ListModels(context.Context) ([]string, error) { return m.models, m.err }

func runWith(t *testing.T, cfg Config, lister *mockLister, status int) validator.Outcome {
	t.Helper()
	svc := &Service{
		Config: cfg,
		Open:   func(Config) ModelLister { return lister },
		HTTP: &testutil.MockHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, http.MethodHead, req.Method)
			return testutil.MockResponse(status, ""), nil
		}},
	}
	probes := validator.Probes{
		Dialer:   testutil.OKDialer(),
		Resolver: testutil.StaticResolver("203.0.113.10"),
	}
	return validator.New(svc, probes).Run(context.Background())
}

func names(l check.List) []string {
	out := make([]string, len(l))
	for i, r := range l {
		out[i] = r.Name
	}
	return out
}

var keyed = Config{AccessKey: "sk-do-abcdef", Endpoint: DefaultEndpoint, Explicit: true}

func TestGradientFullCycle(t *testing.T) {
	out := runWith(t, keyed, &mockLister{models: []string{"openai-gpt-4o", "meta-llama/Llama-3.1-8B-Instruct"}}, 404)

	assert.Equal(t, []string{"Gradient DNS", "Gradient TCP", "Gradient HTTPS", "Gradient API", "Gradient Model"}, names(out.Checks))
	assert.True(t, out.Checks.OK())
	assert.Equal(t, "HTTPS working (HTTP 404)", out.Checks[2].Detail())
	assert.Equal(t, "API accessible, 2 models", out.Checks[3].Detail())
	assert.Equal(t, "meta-llama/Llama-3.1-8B-Instruct available", out.Checks[4].Detail())
}

func TestGradientFallbackModel(t *testing.T) {
	out := runWith(t, keyed, &mockLister{models: []string{"qwen3-32b"}}, 200)
	assert.Equal(t, "Found model: qwen3-32b", out.Checks[len(out.Checks)-1].Detail())
}

func TestGradientWithoutKeyStopsAfterHTTPS(t *testing.T) {
	cfg := Config{Endpoint: DefaultEndpoint}
	svc := &Service{Config: cfg, Always: true, HTTP: &testutil.MockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
		return testutil.MockResponse(200, ""), nil
	}}}
	out := validator.New(svc, validator.Probes{Dialer: testutil.OKDialer(), Resolver: testutil.StaticResolver("203.0.113.10")}).Run(context.Background())

	assert.Equal(t, []string{"Gradient DNS", "Gradient TCP", "Gradient HTTPS"}, names(out.Checks))
	assert.Equal(t, "HTTPS connection successful", out.Checks[2].Detail())
	assert.Contains(t, out.Notes[len(out.Notes)-1].Text, "skipping API checks")
}

func TestGradientHTTPSFailureStops(t *testing.T) {
	lister := &mockLister{models: []string{"qwen3-32b"}}
	svc := &Service{Config: keyed, Open: func(Config) ModelLister { return lister }, HTTP: &testutil.MockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset by peer")
	}}}
	out := validator.New(svc, validator.Probes{Dialer: testutil.OKDialer(), Resolver: testutil.StaticResolver("203.0.113.10")}).Run(context.Background())

	require.Len(t, out.Checks, 3)
	last := out.Checks[2]
	assert.Equal(t, "Gradient HTTPS", last.Name)
	assert.False(t, last.OK())
	assert.Contains(t, last.Detail(), "connection reset by peer")
	assert.Equal(t, check.KindUnreachable, check.Classify(last.Err))
	assert.Equal(t, check.KindUnreachable.Hint(), last.Hint)
}

func TestGradientAPIErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantName string
		detail   string
		hint     string
	}{
		{"unauthorized", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}, "Gradient Auth", "Invalid access key", "Check MODEL_ACCESS_KEY in DigitalOcean console"},
		{"forbidden", &openai.RequestError{HTTPStatusCode: 403, Err: errors.New("forbidden")}, "Gradient Auth", "Access forbidden", "Check MODEL_ACCESS_KEY permissions"},
		{"server error", &openai.APIError{HTTPStatusCode: 500, Message: "upstream unavailable"}, "Gradient API", "HTTP 500: upstream unavailable", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := runWith(t, keyed, &mockLister{err: classify(tt.err)}, 200)

			failed := out.Checks.Failed()
			require.Len(t, failed, 1)
			assert.Equal(t, tt.wantName, failed[0].Name)
			assert.Equal(t, tt.detail, failed[0].Detail())
			assert.Equal(t, tt.hint, failed[0].Hint)
		})
	}
}

func TestGradientDNSFailureStops(t *testing.T) {
	svc := &Service{Config: keyed, Open: func(Config) ModelLister { return &mockLister{} }}
	resolver := &testutil.MockResolver{LookupHostFunc: func(context.Context, string) ([]string, error) {
		return nil, &net.DNSError{Err: "no such host", Name: "inference.do-ai.run", IsNotFound: true}
	}}
	dialer := testutil.OKDialer()
	out := validator.New(svc, validator.Probes{Dialer: dialer, Resolver: resolver}).Run(context.Background())

	require.Len(t, out.Checks, 1)
	assert.Equal(t, "Gradient DNS", out.Checks[0].Name)
	assert.False(t, out.Checks[0].OK())
	assert.Empty(t, dialer.Calls)
}

func TestGradientConfigured(t *testing.T) {
	assert.False(t, Validator(Config{Endpoint: DefaultEndpoint}, validator.Probes{}, false).Configured())
	assert.True(t, Validator(Config{Endpoint: DefaultEndpoint}, validator.Probes{}, true).Configured())
	assert.True(t, Validator(keyed, validator.Probes{}, false).Configured())
}

func TestClassifyTransport(t *testing.T) {
	err := classify(errors.New("dial tcp: i/o timeout"))
	assert.Equal(t, check.KindUnreachable, check.Classify(err))
	assert.Zero(t, check.StatusOf(err))
}

func TestConfigFromEnv(t *testing.T) {
	r := &envcheck.Resolver{
		Getter: &testutil.MockEnvGetter{Vars: map[string]string{
			"DO_AI_ACCESS_KEY":  "key",
			"GRADIENT_ENDPOINT": "https://custom.example.com/",
		}},
		VPC: vpc.Fixed(false),
	}
	assert.Equal(t, Config{AccessKey: "key", Endpoint: "https://custom.example.com", Explicit: true, Timeout: time.Second},
		ConfigFromEnv(r, time.Second))

	empty := &envcheck.Resolver{Getter: &testutil.MockEnvGetter{}, VPC: vpc.Fixed(false)}
	assert.Equal(t, Config{Endpoint: DefaultEndpoint, Timeout: time.Second}, ConfigFromEnv(empty, time.Second))
}

func TestEndpoint(t *testing.T) {
	ep := (&Service{Config: keyed}).Endpoint()
	assert.Equal(t, validator.Endpoint{Host: "inference.do-ai.run", Port: 443, Resolve: true}, ep)
}
