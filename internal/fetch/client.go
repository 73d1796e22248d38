// Package fetch retrieves JSON documents from upstream HTTP services.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/resilience"
)

// ErrUnexpectedStatus matches any StatusError.
var ErrUnexpectedStatus = errors.New("fetch: unexpected status")

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: %s responded %d", e.URL, e.StatusCode)
}

// Is lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// Doer is satisfied by resilience.HTTPClient.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client fetches and decodes JSON, logging every failure.
type Client struct {
	HTTP    Doer
	Logger  zerolog.Logger
	MaxBody int64
}

// NewClient wraps the resilient HTTP client.
func NewClient(httpClient resilience.HTTPClient, logger zerolog.Logger) *Client {
	return &Client{HTTP: httpClient, Logger: logger}
}

// GetJSON issues a GET request for url and decodes the JSON body into dst.
func (c *Client) GetJSON(ctx context.Context, url string, dst any) error {
	if c == nil || c.HTTP == nil {
		return errors.New("fetch: client not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return c.fail(url, 0, fmt.Errorf("fetch: build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return c.fail(url, 0, fmt.Errorf("fetch: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body := io.LimitReader(resp.Body, c.maxBody())
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(body, 512))
		return c.fail(url, resp.StatusCode, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(snippet)})
	}
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return c.fail(url, resp.StatusCode, fmt.Errorf("fetch: decode response: %w", err))
	}
	return nil
}

// Get fetches url and decodes it into a fresh T.
func Get[T any](ctx context.Context, c *Client, url string) (T, error) {
	var out T
	if err := c.GetJSON(ctx, url, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (c *Client) fail(url string, status int, err error) error {
	evt := c.Logger.Error().Err(err).Str("url", url)
	if status != 0 {
		evt = evt.Int("status", status)
	}
	evt.Msg("fetch_failed")
	return err
}

func (c *Client) maxBody() int64 {
	if c.MaxBody <= 0 {
		return 4 << 20
	}
	return c.MaxBody
}
