package searchcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/tidwall/gjson"

	"github.com/vertti/validate-infra/pkg/check"
)

// Cluster is the part of the OpenSearch API the probe uses. Errors are
// classified with check.Kind.
type Cluster interface {
	Version(ctx context.Context) (string, error)
	Health(ctx context.Context) (Health, error)
	IndexCount(ctx context.Context) (int, error)
	// CreateIndex removes a stale index of the same name first.
	CreateIndex(ctx context.Context, index string) error
	IndexDocument(ctx context.Context, index string) (id string, err error)
	Search(ctx context.Context, index string) (hits int, err error)
	DeleteDocument(ctx context.Context, index, id string) error
	DeleteIndex(ctx context.Context, index string) error
	Close() error
}

// Health is the cluster health summary.
type Health struct {
	Status  string
	Cluster string
}

// Healthy reports whether every primary shard is allocated.
func (h Health) Healthy() bool {
	return h.Status == "green" || h.Status == "yellow"
}

// Connector opens a client and authenticates with a root info request.
type Connector func(ctx context.Context, cfg Config) (Cluster, error)

const hintCredentials = "Check OPENSEARCH_USERNAME and OPENSEARCH_PASSWORD"

const indexBody = `{
  "settings": {"number_of_shards": 1, "number_of_replicas": 0},
  "mappings": {"properties": {"test_field": {"type": "text"}}}
}`

type client struct {
	api       *opensearch.Client
	transport *http.Transport
	timeout   time.Duration
	version   string
}

// Connect builds an opensearch-go client for cfg and issues GET / to prove
// the credentials.
func Connect(ctx context.Context, cfg Config) (Cluster, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	api, err := opensearch.NewClient(opensearch.Config{
		Addresses:  []string{cfg.Address()},
		Username:   cfg.Username,
		Password:   cfg.Password,
		Transport:  transport,
		MaxRetries: 1,
	})
	if err != nil {
		return nil, check.Wrap(check.KindNotConfigured, "client", err)
	}
	c := &client{api: api, transport: transport, timeout: cfg.Timeout}

	body, err := c.do(ctx, "info", opensearchapi.InfoRequest{})
	if err != nil {
		transport.CloseIdleConnections()
		return nil, err
	}
	c.version = gjson.GetBytes(body, "version.number").String()
	if c.version == "" {
		c.version = "unknown"
	}
	return c, nil
}

type request interface {
	Do(ctx context.Context, transport opensearchapi.Transport) (*opensearchapi.Response, error)
}

// do runs req under the client timeout and returns the body of a 2xx
// response.
func (c *client) do(ctx context.Context, op string, req request) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	res, err := req.Do(ctx, c.api)
	if err != nil {
		return nil, classifyTransport(op, err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, classifyTransport(op, err)
	}
	if res.IsError() {
		return nil, statusError(op, res.StatusCode, body)
	}
	return body, nil
}

func (c *client) Version(context.Context) (string, error) {
	return c.version, nil
}

func (c *client) Health(ctx context.Context) (Health, error) {
	body, err := c.do(ctx, "cluster health", opensearchapi.ClusterHealthRequest{})
	if err != nil {
		return Health{}, err
	}
	return parseHealth(body), nil
}

func (c *client) IndexCount(ctx context.Context) (int, error) {
	body, err := c.do(ctx, "cat indices", opensearchapi.CatIndicesRequest{Format: "json"})
	if err != nil {
		return 0, err
	}
	return len(gjson.ParseBytes(body).Array()), nil
}

func (c *client) CreateIndex(ctx context.Context, index string) error {
	if err := c.DeleteIndex(ctx, index); err != nil && check.StatusOf(err) != http.StatusNotFound {
		return err
	}
	_, err := c.do(ctx, "create index", opensearchapi.IndicesCreateRequest{
		Index: index,
		Body:  strings.NewReader(indexBody),
	})
	return err
}

func (c *client) IndexDocument(ctx context.Context, index string) (string, error) {
	body, err := c.do(ctx, "index document", opensearchapi.IndexRequest{
		Index:   index,
		Body:    strings.NewReader(`{"test_field": "test_value"}`),
		Refresh: "true",
	})
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "_id").String(), nil
}

func (c *client) Search(ctx context.Context, index string) (int, error) {
	body, err := c.do(ctx, "search", opensearchapi.SearchRequest{
		Index: []string{index},
		Body:  strings.NewReader(`{"query": {"match_all": {}}}`),
	})
	if err != nil {
		return 0, err
	}
	return parseHits(body), nil
}

func (c *client) DeleteDocument(ctx context.Context, index, id string) error {
	_, err := c.do(ctx, "delete document", opensearchapi.DeleteRequest{
		Index:      index,
		DocumentID: id,
		Refresh:    "true",
	})
	return err
}

func (c *client) DeleteIndex(ctx context.Context, index string) error {
	_, err := c.do(ctx, "delete index", opensearchapi.IndicesDeleteRequest{Index: []string{index}})
	return err
}

func (c *client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

var _ Cluster = (*client)(nil)

func parseHealth(body []byte) Health {
	h := Health{
		Status:  gjson.GetBytes(body, "status").String(),
		Cluster: gjson.GetBytes(body, "cluster_name").String(),
	}
	if h.Status == "" {
		h.Status = "unknown"
	}
	if h.Cluster == "" {
		h.Cluster = "unknown"
	}
	return h
}

// parseHits reads hits.total, which is an object since 7.x and a number
// before it.
func parseHits(body []byte) int {
	total := gjson.GetBytes(body, "hits.total")
	if total.IsObject() {
		return int(total.Get("value").Int())
	}
	return int(total.Int())
}

// statusError labels an error response by its HTTP status.
func statusError(op string, status int, body []byte) error {
	reason := gjson.GetBytes(body, "error.reason").String()
	if reason == "" {
		reason = gjson.GetBytes(body, "error.type").String()
	}
	if reason == "" {
		reason = gjson.GetBytes(body, "error").String()
	}
	if reason == "" {
		reason = http.StatusText(status)
	}
	err := fmt.Errorf("HTTP %d: %s", status, reason)
	switch status {
	case http.StatusUnauthorized:
		return &check.Error{Kind: check.KindAuthFailed, Op: op, Hint: hintCredentials, Status: status, Err: err}
	case http.StatusForbidden:
		return &check.Error{Kind: check.KindPermissionDenied, Op: op, Status: status, Err: err}
	}
	return &check.Error{Kind: check.KindOperationFailed, Op: op, Status: status, Err: err}
}

func classifyTransport(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &check.Error{Kind: check.KindUnreachable, Op: op, Err: err}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "certificate") || strings.Contains(msg, "tls") {
		return &check.Error{Kind: check.KindUnreachable, Op: op, Hint: "TLS handshake failed; check the cluster certificate", Err: err}
	}
	return &check.Error{Kind: check.KindOperationFailed, Op: op, Err: err}
}
