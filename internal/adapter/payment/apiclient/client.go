// Package apiclient is the HTTP transport shared by payment provider adapters.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
)

const maxErrorBody = 4 << 10

// TooManyRequestsError represents rate limiting signal from a provider.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// StatusError is returned for unexpected provider responses. A 404 unwraps to
// ErrNotFound.
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api error: status %d", e.Provider, e.Status)
}

func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return domainErrors.ErrNotFound
	}
	return nil
}

// Client sends requests to one provider API.
type Client struct {
	provider   string
	baseURL    *url.URL
	header     http.Header
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for baseURL. header is added to every request.
func New(provider, baseURL string, header http.Header, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s url: %w", provider, err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("%s url must be absolute", provider)
	}
	return &Client{
		provider: provider,
		baseURL:  parsed,
		header:   header.Clone(),
		logger:   logger,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// Get decodes the JSON response of a GET request into out.
func (c *Client) Get(ctx context.Context, p string, out any) error {
	return c.do(ctx, http.MethodGet, p, "", nil, out)
}

// Post sends a request without a body and decodes the JSON response into out.
func (c *Client) Post(ctx context.Context, p string, out any) error {
	return c.do(ctx, http.MethodPost, p, "", nil, out)
}

// PostJSON sends payload as JSON and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, p string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, p, "application/json", body, out)
}

func (c *Client) do(ctx context.Context, method, p, contentType string, body []byte, out any) error {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, p)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	for key, values := range c.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusTooManyRequests:
		return TooManyRequestsError{RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("payment provider request failed",
			slog.String("provider", c.provider),
			slog.String("path", endpoint.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(data)))
		return &StatusError{Provider: c.provider, Status: resp.StatusCode, Body: string(data)}
	}
}

// ParseRetryAfter reads a Retry-After value in seconds or HTTP-date form.
// Missing or unreadable values fall back to five seconds.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
