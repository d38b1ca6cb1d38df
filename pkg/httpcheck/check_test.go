package httpcheck

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertti/validate-infra/pkg/check"
	"github.com/vertti/validate-infra/pkg/testutil"
)

func staticClient(status int, body string) *testutil.MockHTTPClient {
	return &testutil.MockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
		return testutil.MockResponse(status, body), nil
	}}
}

func TestHTTPCheck(t *testing.T) {
	tests := []struct {
		name       string
		check      Check
		wantStatus check.Status
		wantName   string
		wantDetail string
		wantKind   check.Kind
	}{
		{
			name:       "2xx is a successful connection",
			check:      Check{URL: "https://inference.do-ai.run/", Client: staticClient(200, "")},
			wantStatus: check.StatusOK,
			wantName:   "http: https://inference.do-ai.run/",
			wantDetail: "HTTPS connection successful",
		},
		{
			name:       "error status still proves reachability",
			check:      Check{Name: "Gradient HTTPS", URL: "https://inference.do-ai.run/", Client: staticClient(404, "")},
			wantStatus: check.StatusOK,
			wantName:   "Gradient HTTPS",
			wantDetail: "HTTPS working (HTTP 404)",
		},
		{
			name:       "accepted statuses",
			check:      Check{URL: "https://api.digitalocean.com/v2", Accept: []int{200, 401, 403, 404}, Client: staticClient(401, "")},
			wantStatus: check.StatusOK,
			wantDetail: "HTTPS working (HTTP 401)",
		},
		{
			name:       "status outside accept list",
			check:      Check{URL: "https://api.digitalocean.com/v2", Accept: []int{200, 401}, Client: staticClient(503, "")},
			wantStatus: check.StatusFail,
			wantDetail: "HTTP 503",
			wantKind:   check.KindOperationFailed,
		},
		{
			name: "transport error",
			check: Check{URL: "https://example.com", Client: &testutil.MockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("connection reset by peer")
			}}},
			wantStatus: check.StatusFail,
			wantDetail: "connection reset by peer",
			wantKind:   check.KindUnreachable,
		},
		{
			name:       "invalid URL",
			check:      Check{URL: "not a url", Client: staticClient(200, "")},
			wantStatus: check.StatusFail,
			wantDetail: "invalid URL: not a url",
			wantKind:   check.KindNotConfigured,
		},
		{
			name:       "json path present",
			check:      Check{URL: "https://api.ipify.org?format=json", Method: http.MethodGet, JSONPath: "ip", Client: staticClient(200, `{"ip":"203.0.113.7"}`)},
			wantStatus: check.StatusOK,
		},
		{
			name:       "json path missing",
			check:      Check{URL: "https://api.ipify.org?format=json", Method: http.MethodGet, JSONPath: "ip", Client: staticClient(200, `{}`)},
			wantStatus: check.StatusFail,
			wantDetail: `JSON path "ip" not found`,
			wantKind:   check.KindOperationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.check.Run(context.Background())
			assert.Equal(t, tt.wantStatus, res.Status)
			if tt.wantName != "" {
				assert.Equal(t, tt.wantName, res.Name)
			}
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, res.Detail())
			}
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, check.Classify(res.Err))
			}
		})
	}
}

func TestHTTPCheckDefaultsToHEAD(t *testing.T) {
	var method string
	c := Check{URL: "https://example.com", Headers: map[string]string{"Authorization": "Bearer k"},
		Client: &testutil.MockHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
			method = req.Method
			assert.Equal(t, "Bearer k", req.Header.Get("Authorization"))
			return testutil.MockResponse(200, ""), nil
		}}}
	_, err := c.Do(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodHead, method)
}

func TestHTTPCheckRetries(t *testing.T) {
	calls := 0
	c := Check{
		URL:        "https://example.com",
		Retry:      2,
		RetryDelay: time.Millisecond,
		Client: &testutil.MockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("temporary failure")
			}
			return testutil.MockResponse(204, ""), nil
		}},
	}
	resp, err := c.Do(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 204, resp.Status)
	assert.Equal(t, 3, calls)
}

func TestHTTPCheckRetriesExhausted(t *testing.T) {
	c := Check{
		URL:        "https://example.com",
		Retry:      1,
		RetryDelay: time.Millisecond,
		Client: &testutil.MockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
			return nil, errors.New("no route to host")
		}},
	}
	_, err := c.Do(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "resolve", classify(&net.DNSError{Err: "no such host", Name: "x"}).(*check.Error).Op)
	assert.Equal(t, "tls", classify(errors.New("tls: failed to verify certificate: x509: unknown authority")).(*check.Error).Op)
}

func TestRealHTTPClientDoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	resp, err := (&Check{URL: srv.URL}).Do(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.Status)
}
