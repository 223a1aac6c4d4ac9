package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfold/cloudflare-ddns/internal/activitylog"
	"github.com/skyfold/cloudflare-ddns/internal/cloudflare"
	"github.com/skyfold/cloudflare-ddns/internal/profile"
	"github.com/skyfold/cloudflare-ddns/internal/scheduler"
	"github.com/skyfold/cloudflare-ddns/internal/store"
)

// stubResolver always answers with a fixed address.
type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, family profile.Family) (string, error) {
	if family == profile.IPv6 {
		return "2001:db8::1", nil
	}
	return "203.0.113.5", nil
}

// stubUpdater answers success and counts calls.
type stubUpdater struct{ calls int }

func (u *stubUpdater) UpdateRecord(context.Context, string, string, string, cloudflare.UpdatePayload) string {
	u.calls++
	return `{"success": true, "errors": []}`
}

type testEnv struct {
	store   *store.SQLiteStore
	sched   *scheduler.Scheduler
	updater *stubUpdater
	server  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	key := bytes.Repeat([]byte{0x42}, 32)

	st, err := store.New(":memory:", key, logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	activity := activitylog.New(filepath.Join(t.TempDir(), "activity.log"), logger)
	updater := &stubUpdater{}

	sched := scheduler.New(st, stubResolver{}, updater, activity, logger,
		scheduler.WithIntervalUnit(50*time.Millisecond), scheduler.WithStartupDelay(0))
	t.Cleanup(sched.Close)

	h := NewHandler(st, sched, activity, logger, nil)
	srv := httptest.NewServer(h.NewRouter())
	t.Cleanup(srv.Close)

	return &testEnv{store: st, sched: sched, updater: updater, server: srv}
}

func (e *testEnv) request(t *testing.T, method, path, body, token string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) saveProfile(t *testing.T, name string) {
	t.Helper()
	err := e.store.SaveProfile(context.Background(), &profile.Profile{
		Name:       name,
		APIKey:     "cf-secret-token",
		ZoneID:     "zone123",
		MainDomain: "example.com",
		DNSRecords: []profile.RecordSpec{
			{RecordID: "abc", Name: "www", Content: profile.IPv4, Type: profile.TypeA, TTL: 300},
		},
	})
	require.NoError(t, err)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, body = env.request(t, "GET", "/ready", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "connected")
}

func TestSaveAndGetProfile(t *testing.T) {
	env := newTestEnv(t)

	payload := `{
		"ApiKey": "cf-secret-token",
		"ZoneId": "zone123",
		"mainDomain": "example.com",
		"DnsRecords": [{"RecordID":"abc","Name":"www","Content":"IPv4","Type":"A","Proxied":false,"TTL":300}]
	}`
	resp, body := env.request(t, "PUT", "/profiles/home", payload, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = env.request(t, "GET", "/profiles/home", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail ProfileDetail
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, "home", detail.Name)
	assert.Equal(t, "example.com", detail.MainDomain)
	require.Len(t, detail.DNSRecords, 1)
	assert.Equal(t, "abc", detail.DNSRecords[0].RecordID)
	assert.False(t, detail.Timer.Running)

	// Credentials must never appear in responses.
	assert.NotContains(t, string(body), "cf-secret-token")
	assert.NotContains(t, string(body), "zone123")
}

func TestSaveProfileRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.request(t, "PUT", "/profiles/home", "{not json", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.request(t, "PUT", "/profiles/home", `{"ZoneId":"z","mainDomain":"d","DnsRecords":[]}`, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), ErrCodeInvalidProfile)
}

func TestGetMissingProfile(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, "GET", "/profiles/ghost", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), ErrCodeNotFound)
}

func TestListProfilesSorted(t *testing.T) {
	env := newTestEnv(t)
	env.saveProfile(t, "zulu")
	env.saveProfile(t, "alpha")

	resp, body := env.request(t, "GET", "/profiles", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []ProfileSummary
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zulu", list[1].Name)
	assert.Equal(t, 1, list[0].RecordCount)
}

func TestStartAndStopTimer(t *testing.T) {
	env := newTestEnv(t)
	env.saveProfile(t, "home")

	resp, body := env.request(t, "POST", "/profiles/home/start", `{"interval": 15}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var view TimerView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.True(t, view.Running)
	assert.Equal(t, 15, view.IntervalMinutes)
	assert.NotEmpty(t, view.NextRun)

	resp, body = env.request(t, "POST", "/profiles/home/stop", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.False(t, view.Running)
	assert.False(t, env.sched.IsRunning("home"))
}

func TestStartTimerValidation(t *testing.T) {
	env := newTestEnv(t)
	env.saveProfile(t, "home")

	resp, _ := env.request(t, "POST", "/profiles/home/start", `{"interval": 0}`, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.request(t, "POST", "/profiles/ghost/start", `{"interval": 5}`, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunOnce(t *testing.T) {
	env := newTestEnv(t)
	env.saveProfile(t, "home")

	resp, body := env.request(t, "POST", "/profiles/home/run", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, 1, env.updater.calls)

	resp, _ = env.request(t, "POST", "/profiles/ghost/run", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteProfileStopsTimer(t *testing.T) {
	env := newTestEnv(t)
	env.saveProfile(t, "home")

	env.sched.StartTimer("home", 15)
	require.True(t, env.sched.IsRunning("home"))

	resp, _ := env.request(t, "DELETE", "/profiles/home", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, env.sched.IsRunning("home"))

	resp, _ = env.request(t, "DELETE", "/profiles/home", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLastActivity(t *testing.T) {
	env := newTestEnv(t)
	env.saveProfile(t, "home")

	resp, _ := env.request(t, "GET", "/activity/last", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.request(t, "POST", "/profiles/home/run", "", "")

	resp, body := env.request(t, "GET", "/activity/last", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entry activitylog.Entry
	require.NoError(t, json.Unmarshal(body, &entry))
	assert.Equal(t, "home", entry.ProfileName)
	assert.Equal(t, "www.example.com", entry.Domain)
	assert.Equal(t, "203.0.113.5", entry.IPAddress)
	assert.Equal(t, "Success", entry.CallStatus)
	assert.Equal(t, "Stopped", entry.RunningStatus)
}

func TestSettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, "GET", "/settings", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"runOnStartup":false,"loadProfilesOnStartup":true}`, string(body))

	resp, _ = env.request(t, "PUT", "/settings", `{"runOnStartup":true,"loadProfilesOnStartup":false}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.request(t, "GET", "/settings", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"runOnStartup":true,"loadProfilesOnStartup":false}`, string(body))

	resp, _ = env.request(t, "PUT", "/settings", "{not json", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSaveSettingsKeepsAdminToken(t *testing.T) {
	env := newTestEnv(t)

	hash, err := store.HashToken("letmein")
	require.NoError(t, err)
	require.NoError(t, env.store.SaveSettings(context.Background(), store.Settings{
		LoadProfilesOnStartup: true,
		AdminTokenHash:        hash,
	}))

	resp, body := env.request(t, "PUT", "/settings", `{"runOnStartup":true,"loadProfilesOnStartup":true}`, "letmein")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), hash)

	// The stored hash survives the settings write: tokenless access is
	// still rejected.
	resp, _ = env.request(t, "GET", "/settings", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.request(t, "GET", "/settings", "", "letmein")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"runOnStartup":true,"loadProfilesOnStartup":true}`, string(body))
}

func TestAdminTokenAuth(t *testing.T) {
	env := newTestEnv(t)
	env.saveProfile(t, "home")

	hash, err := store.HashToken("letmein")
	require.NoError(t, err)
	require.NoError(t, env.store.SaveSettings(context.Background(), store.Settings{
		LoadProfilesOnStartup: true,
		AdminTokenHash:        hash,
	}))

	// Health stays open.
	resp, _ := env.request(t, "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.request(t, "GET", "/profiles", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), ErrCodeUnauthorized)

	resp, _ = env.request(t, "GET", "/profiles", "", "wrong-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.request(t, "GET", "/profiles", "", "letmein")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
