// Package publicip resolves the caller's current public IP address from an
// external address-echo service.
package publicip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skyfold/cloudflare-ddns/internal/profile"
)

// Default address-echo endpoints. Separate hosts answer over IPv4 and IPv6.
const (
	DefaultIPv4URL = "https://api.ipify.org?format=json"
	DefaultIPv6URL = "https://api6.ipify.org?format=json"
)

// defaultTimeout bounds each echo-service call.
const defaultTimeout = 15 * time.Second

// Resolver fetches the current public address for an address family.
type Resolver struct {
	ipv4URL    string
	ipv6URL    string
	httpClient *http.Client
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithIPv4URL overrides the IPv4 echo endpoint (useful for testing).
func WithIPv4URL(url string) Option {
	return func(r *Resolver) {
		if url != "" {
			r.ipv4URL = url
		}
	}
}

// WithIPv6URL overrides the IPv6 echo endpoint (useful for testing).
func WithIPv6URL(url string) Option {
	return func(r *Resolver) {
		if url != "" {
			r.ipv6URL = url
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		r.httpClient = client
	}
}

// NewResolver creates a resolver against the default ipify endpoints.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		ipv4URL:    DefaultIPv4URL,
		ipv6URL:    DefaultIPv6URL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the current public address for the given family.
// A failed lookup returns an empty string and the error; callers treat that
// as "could not resolve this cycle" and must not push an empty address.
func (r *Resolver) Resolve(ctx context.Context, family profile.Family) (string, error) {
	var endpoint string
	switch family {
	case profile.IPv4:
		endpoint = r.ipv4URL
	case profile.IPv6:
		endpoint = r.ipv6URL
	default:
		return "", fmt.Errorf("unknown address family %q", family)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach echo service: %w", err)
	}
	defer func() {
		//nolint:errcheck
		resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read echo response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("echo service returned status %d", resp.StatusCode)
	}

	var echo struct {
		IP string `json:"ip"`
	}
	if err := json.Unmarshal(body, &echo); err != nil {
		return "", fmt.Errorf("malformed echo response: %w", err)
	}
	if echo.IP == "" {
		return "", fmt.Errorf("echo response missing ip field")
	}

	return echo.IP, nil
}
