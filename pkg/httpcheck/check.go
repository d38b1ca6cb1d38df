// Package httpcheck probes HTTP(S) endpoints. Any response proves the
// endpoint is reachable; callers choose which statuses count as healthy.
package httpcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vertti/validate-infra/pkg/check"
)

// DefaultTimeout bounds each request attempt.
const DefaultTimeout = 10 * time.Second

// HTTPClient abstracts HTTP requests for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RealHTTPClient uses the real net/http package. Redirects are not
// followed so the first response is the one reported.
type RealHTTPClient struct {
	Timeout time.Duration
}

// Do executes an HTTP request.
func (c *RealHTTPClient) Do(req *http.Request) (*http.Response, error) {
	client := &http.Client{
		Timeout: c.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return client.Do(req)
}

// Check issues one request and reports the response status.
type Check struct {
	Name       string        // result name (default: "http: <URL>")
	URL        string        // target URL (required)
	Method     string        // HTTP method (default: HEAD)
	Headers    map[string]string
	Accept     []int         // statuses that pass; empty accepts any response
	Timeout    time.Duration // per attempt (default: DefaultTimeout)
	Retry      int           // retry count on transport failure
	RetryDelay time.Duration // delay between retries (default: 1s)
	JSONPath   string        // gjson path that must exist in the body
	ReadBody   bool          // keep the body in Response
	Client     HTTPClient    // injected for testing
}

// Response is what a successful round trip observed.
type Response struct {
	Status int
	Body   []byte // read only with ReadBody or JSONPath
}

// Do performs the request, retrying transport failures. Transport errors
// are classified unreachable; a status outside Accept is an
// operation_failed error carrying the status.
func (c *Check) Do(ctx context.Context) (Response, error) {
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Response{}, check.Errorf(check.KindNotConfigured, "invalid URL: %s", c.URL)
	}

	method := c.Method
	if method == "" {
		method = http.MethodHead
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	retryDelay := c.RetryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}
	client := c.Client
	if client == nil {
		client = &RealHTTPClient{Timeout: timeout}
	}

	var resp *http.Response
	attempts := c.Retry + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		req, rerr := http.NewRequestWithContext(ctx, method, c.URL, http.NoBody)
		if rerr != nil {
			return Response{}, check.Wrap(check.KindNotConfigured, "request", rerr)
		}
		for k, v := range c.Headers {
			req.Header.Set(k, v)
		}
		resp, err = client.Do(req)
		if err == nil {
			break
		}
		if attempt < attempts {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				attempt = attempts
			}
		}
	}
	if err != nil {
		if attempts > 1 {
			err = fmt.Errorf("request failed after %d attempts: %w", attempts, err)
		}
		return Response{}, classify(err)
	}
	defer resp.Body.Close()

	out := Response{Status: resp.StatusCode}
	if len(c.Accept) > 0 && !slices.Contains(c.Accept, resp.StatusCode) {
		return out, &check.Error{
			Kind:   check.KindOperationFailed,
			Op:     method + " " + c.URL,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}
	if c.ReadBody || c.JSONPath != "" {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return out, classify(err)
		}
		out.Body = body
	}
	if c.JSONPath != "" {
		if !gjson.GetBytes(out.Body, c.JSONPath).Exists() {
			return out, check.Errorf(check.KindOperationFailed, "JSON path %q not found", c.JSONPath)
		}
	}
	return out, nil
}

// Run performs the request and records it as a check result.
func (c *Check) Run(ctx context.Context) check.Result {
	name := c.Name
	if name == "" {
		name = "http: " + c.URL
	}
	resp, err := c.Do(ctx)
	if err != nil {
		return check.Failed(name, err.Error(), err)
	}
	return check.Pass(name, Describe(resp.Status))
}

// Describe is the pass detail for a response status.
func Describe(status int) string {
	if status >= 200 && status < 400 {
		return "HTTPS connection successful"
	}
	return fmt.Sprintf("HTTPS working (HTTP %d)", status)
}

func classify(err error) error {
	msg := strings.ToLower(err.Error())
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return &check.Error{Kind: check.KindUnreachable, Op: "resolve", Err: err}
	case strings.Contains(msg, "certificate"), strings.Contains(msg, "x509"), strings.Contains(msg, "tls:"):
		return &check.Error{Kind: check.KindUnreachable, Op: "tls", Hint: "TLS handshake failed; check the system CA bundle and clock", Err: err}
	}
	return &check.Error{Kind: check.KindUnreachable, Op: "request", Err: err}
}
