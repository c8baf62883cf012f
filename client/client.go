// Package client is a typed consumer of the Mumundo REST API. The web
// application owns no canonical data; every read is a snapshot served by the
// backend and every write is forwarded to it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JP-N/mumundo-web/models"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Tests use this to point
// at httptest servers with short timeouts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRateLimit bounds outbound requests per second across all callers
// sharing this client.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  log.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// detail is the error envelope the backend sends with non-2xx responses.
type detail struct {
	Detail string `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return c.apiError(method, path, resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

func (c *Client) apiError(method, path string, status int, body []byte) error {
	var d detail
	_ = json.Unmarshal(body, &d)
	if d.Detail == "" {
		d.Detail = http.StatusText(status)
	}

	c.logger.Error("api request failed", "method", method, "path", path, "status", status, "detail", d.Detail)

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", models.ErrUnauthorized, d.Detail)
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", models.ErrForbidden, d.Detail)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", models.ErrNotFound, d.Detail)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", models.ErrValidation, d.Detail)
	default:
		return fmt.Errorf("%w: %s", models.ErrUnavailable, d.Detail)
	}
}
