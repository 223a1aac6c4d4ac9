// Package testenv assembles a complete in-process agent for end-to-end
// testing: SQLite store, mock Cloudflare API, mock IP echo services, the
// scheduler, and the control API over httptest.
package testenv

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skyfold/cloudflare-ddns/internal/activitylog"
	"github.com/skyfold/cloudflare-ddns/internal/cloudflare"
	"github.com/skyfold/cloudflare-ddns/internal/profile"
	"github.com/skyfold/cloudflare-ddns/internal/publicip"
	"github.com/skyfold/cloudflare-ddns/internal/scheduler"
	"github.com/skyfold/cloudflare-ddns/internal/server"
	"github.com/skyfold/cloudflare-ddns/internal/store"
	"github.com/skyfold/cloudflare-ddns/internal/testutil/mockcloudflare"
)

// DefaultIPv4 and DefaultIPv6 are the addresses the mock echo services
// answer with unless overridden.
const (
	DefaultIPv4 = "203.0.113.5"
	DefaultIPv6 = "2001:db8::1"
)

// Env is a fully wired in-process agent.
type Env struct {
	Store      *store.SQLiteStore
	Scheduler  *scheduler.Scheduler
	Activity   *activitylog.Log
	Cloudflare *mockcloudflare.Server
	API        *httptest.Server

	// AdminToken, when non-empty, is sent as a bearer token on every request.
	AdminToken string

	logger       *slog.Logger
	client       *cloudflare.Client
	resolver     *publicip.Resolver
	intervalUnit time.Duration
}

// Option customizes the environment.
type Option func(*options)

type options struct {
	ipv4         string
	ipv6         string
	intervalUnit time.Duration
	adminToken   string
}

// WithIPv4 overrides the IPv4 address the echo service reports.
func WithIPv4(ip string) Option { return func(o *options) { o.ipv4 = ip } }

// WithIPv6 overrides the IPv6 address the echo service reports.
func WithIPv6(ip string) Option { return func(o *options) { o.ipv6 = ip } }

// WithIntervalUnit overrides the scheduler's interval unit.
func WithIntervalUnit(d time.Duration) Option { return func(o *options) { o.intervalUnit = d } }

// WithAdminToken configures an admin token; its hash is stored in settings
// and all requests made through the environment carry it.
func WithAdminToken(token string) Option { return func(o *options) { o.adminToken = token } }

// Setup builds the environment and registers cleanup with the test.
func Setup(t *testing.T, opts ...Option) *Env {
	t.Helper()

	o := &options{
		ipv4:         DefaultIPv4,
		ipv6:         DefaultIPv6,
		intervalUnit: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	key := bytes.Repeat([]byte{0x42}, 32)

	st, err := store.New(filepath.Join(t.TempDir(), "agent.db"), key, logger)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	cf := mockcloudflare.New()
	t.Cleanup(cf.Close)

	echo4 := mockcloudflare.NewEcho(o.ipv4)
	t.Cleanup(echo4.Close)
	echo6 := mockcloudflare.NewEcho(o.ipv6)
	t.Cleanup(echo6.Close)

	activity := activitylog.New(filepath.Join(t.TempDir(), "activity.log"), logger)

	client := cloudflare.NewClient(cloudflare.WithBaseURL(cf.URL()))
	resolver := publicip.NewResolver(
		publicip.WithIPv4URL(echo4.URL),
		publicip.WithIPv6URL(echo6.URL),
	)

	sched := scheduler.New(st, resolver, client, activity, logger,
		scheduler.WithIntervalUnit(o.intervalUnit), scheduler.WithStartupDelay(0))
	t.Cleanup(sched.Close)

	if o.adminToken != "" {
		hash, err := store.HashToken(o.adminToken)
		if err != nil {
			t.Fatalf("failed to hash admin token: %v", err)
		}
		settings, err := st.Settings(context.Background())
		if err != nil {
			t.Fatalf("failed to load settings: %v", err)
		}
		settings.AdminTokenHash = hash
		if err := st.SaveSettings(context.Background(), settings); err != nil {
			t.Fatalf("failed to save settings: %v", err)
		}
	}

	handler := server.NewHandler(st, sched, activity, logger, nil)
	api := httptest.NewServer(handler.NewRouter())
	t.Cleanup(api.Close)

	return &Env{
		Store:        st,
		Scheduler:    sched,
		Activity:     activity,
		Cloudflare:   cf,
		API:          api,
		AdminToken:   o.adminToken,
		logger:       logger,
		client:       client,
		resolver:     resolver,
		intervalUnit: o.intervalUnit,
	}
}

// NewScheduler builds a fresh scheduler over the environment's store and mock
// services, for simulating an agent restart.
func (e *Env) NewScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	sched := scheduler.New(e.Store, e.resolver, e.client, e.Activity, e.logger,
		scheduler.WithIntervalUnit(e.intervalUnit), scheduler.WithStartupDelay(0))
	t.Cleanup(sched.Close)
	return sched
}

// Request performs one control API request and returns the response with its
// body fully read.
func (e *Env) Request(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.API.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if e.AdminToken != "" {
		req.Header.Set("Authorization", "Bearer "+e.AdminToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return resp, data
}

// SaveProfile stores a profile directly, bypassing the API.
func (e *Env) SaveProfile(t *testing.T, name string, records ...profile.RecordSpec) {
	t.Helper()

	if len(records) == 0 {
		records = []profile.RecordSpec{
			{RecordID: "abc", Name: "www", Content: profile.IPv4, Type: profile.TypeA, TTL: 300},
		}
	}
	err := e.Store.SaveProfile(context.Background(), &profile.Profile{
		Name:       name,
		APIKey:     "key-" + name,
		ZoneID:     "zone-" + name,
		MainDomain: "example.com",
		DNSRecords: records,
	})
	if err != nil {
		t.Fatalf("failed to save profile %s: %v", name, err)
	}
}

// WaitForCalls polls until the mock Cloudflare server has received at least n
// update calls.
func (e *Env) WaitForCalls(t *testing.T, n int, timeout time.Duration) []mockcloudflare.UpdateCall {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		calls := e.Cloudflare.Calls()
		if len(calls) >= n {
			return calls
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d update calls, got %d", n, len(e.Cloudflare.Calls()))
	return nil
}
