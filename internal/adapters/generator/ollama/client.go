package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/greetreply/internal/domain"
	"github.com/bnema/greetreply/internal/ports"
	"github.com/ollama/ollama/api"
)

const DefaultHost = "http://localhost:11434"

// Client talks to a local Ollama server with non-streaming generate calls.
type Client struct {
	api *api.Client
}

var _ ports.Generator = (*Client)(nil)

// NewClient builds a client for host. timeout bounds every HTTP round trip;
// zero leaves calls unbounded.
func NewClient(host string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(host) == "" {
		host = DefaultHost
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ollama host %q must include scheme and host", host)
	}

	return &Client{api: api.NewClient(base, &http.Client{Timeout: timeout})}, nil
}

func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &stream,
	}

	var out strings.Builder
	err := c.api.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w: %w", model, domain.ErrServiceError, err)
	}

	return out.String(), nil
}

// Probe checks that the server answers and that model has been pulled.
func (c *Client) Probe(ctx context.Context, model string) error {
	if err := c.api.Heartbeat(ctx); err != nil {
		return fmt.Errorf("reach ollama: %w: %w", domain.ErrServiceError, err)
	}

	models, err := c.api.List(ctx)
	if err != nil {
		return fmt.Errorf("list ollama models: %w: %w", domain.ErrServiceError, err)
	}

	for _, m := range models.Models {
		if m.Name == model || m.Model == model {
			return nil
		}
	}

	return fmt.Errorf("model %q is not available on the ollama server (run `ollama pull %s`): %w", model, model, domain.ErrServiceError)
}
