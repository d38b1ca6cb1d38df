package gradientcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/vertti/validate-infra/pkg/check"
)

// ModelLister lists the models the access key can use. Errors are
// classified with check.Kind and carry the HTTP status when there was one.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Connector builds a ModelLister for cfg. It does no network I/O.
type Connector func(cfg Config) ModelLister

type openAIClient struct {
	client *openai.Client
}

// Connect returns a go-openai client pointed at the endpoint's /v1 API.
func Connect(cfg Config) ModelLister {
	oc := openai.DefaultConfig(cfg.AccessKey)
	oc.BaseURL = cfg.Endpoint + "/v1"
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &openAIClient{client: openai.NewClientWithConfig(oc)}
}

func (c *openAIClient) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, classify(err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// classify maps go-openai errors by status. 401 and 403 carry the
// access-key hints.
func classify(err error) error {
	status := 0
	msg := err.Error()
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		msg = apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
	}
	switch status {
	case 0:
		return &check.Error{Kind: check.KindUnreachable, Op: "list models", Err: err}
	case http.StatusUnauthorized:
		return &check.Error{Kind: check.KindAuthFailed, Op: "list models", Status: status,
			Hint: "Check MODEL_ACCESS_KEY in DigitalOcean console", Err: errors.New("Invalid access key")}
	case http.StatusForbidden:
		return &check.Error{Kind: check.KindAuthFailed, Op: "list models", Status: status,
			Hint: "Check MODEL_ACCESS_KEY permissions", Err: errors.New("Access forbidden")}
	}
	if len(msg) > 100 {
		msg = msg[:100]
	}
	return &check.Error{Kind: check.KindOperationFailed, Op: "list models", Status: status,
		Err: fmt.Errorf("HTTP %d: %s", status, msg)}
}
