package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the default base URL for the Cloudflare API.
	DefaultBaseURL = "https://api.cloudflare.com"

	// defaultTimeout bounds each update call so a hung network connection
	// never stalls a reconciliation pass indefinitely.
	defaultTimeout = 30 * time.Second
)

// Client issues authenticated DNS record update calls. Credentials are
// supplied per call because each profile carries its own API token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing with mock server).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger wraps the HTTP transport so every provider call is logged at
// debug level with the Authorization header redacted. Apply after
// WithHTTPClient when both are used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.httpClient.Transport = &LoggingTransport{
			Transport: c.httpClient.Transport,
			Logger:    logger,
		}
	}
}

// NewClient creates a new Cloudflare API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// UpdateRecord sends an authenticated PUT for one DNS record and returns the
// raw response body regardless of HTTP status; callers decide success by
// inspecting the body's success field. Transport-level failures are converted
// to a synthesized {"success": false, ...} body rather than an error, so one
// failed record never aborts the rest of a batch.
func (c *Client) UpdateRecord(ctx context.Context, apiKey, zoneID, recordID string, payload UpdatePayload) string {
	body, err := json.Marshal(payload)
	if err != nil {
		return synthesizeError(fmt.Errorf("failed to marshal payload: %w", err))
	}

	url := fmt.Sprintf("%s/client/v4/zones/%s/dns_records/%s", c.baseURL, zoneID, recordID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return synthesizeError(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return synthesizeError(err)
	}
	defer func() {
		//nolint:errcheck
		resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return synthesizeError(fmt.Errorf("failed to read response: %w", err))
	}

	return string(respBody)
}
