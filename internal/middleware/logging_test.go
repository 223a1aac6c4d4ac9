package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func debugLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestHTTPLoggingDebugMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := HTTPLogging(debugLogger(&buf), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	}))

	req := httptest.NewRequest("GET", "/profiles/home?verbose=1", nil)
	req.Header.Set("User-Agent", "test-client")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if out == "" {
		t.Fatal("expected debug logs, got none")
	}
	for _, want := range []string{"GET", "/profiles/home", "verbose=1", "http request", "http response"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q", want)
		}
	}
}

func TestHTTPLoggingSilentAboveDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := HTTPLogging(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/profiles", nil))

	if buf.String() != "" {
		t.Errorf("expected no logs at info level, got: %s", buf.String())
	}
}

func TestHTTPLoggingMasksAuthorizationHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := HTTPLogging(debugLogger(&buf), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/profiles", nil)
	req.Header.Set("Authorization", "Bearer secret-token-12345")
	req.Header.Set("User-Agent", "test-client")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if strings.Contains(out, "secret-token-12345") {
		t.Error("full authorization token leaked into logs")
	}
	if !strings.Contains(out, "****2345") {
		t.Error("masked token suffix missing from logs")
	}
	if !strings.Contains(out, "test-client") {
		t.Error("non-sensitive header should survive unmasked")
	}
}

func TestHTTPLoggingMasksProfileCredentials(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := HTTPLogging(debugLogger(&buf), ProfileFieldAllowlist)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	body := `{"ApiKey":"cf-secret-token","ZoneId":"zone-secret","mainDomain":"example.com","DnsRecords":[{"RecordID":"abc","Name":"www"}]}`
	req := httptest.NewRequest("PUT", "/profiles/home", strings.NewReader(body))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if strings.Contains(out, "cf-secret-token") || strings.Contains(out, "zone-secret") {
		t.Error("profile credentials leaked into logs")
	}
	for _, want := range []string{"example.com", "abc", "www"} {
		if !strings.Contains(out, want) {
			t.Errorf("allowlisted field %q missing from logs", want)
		}
	}
}

func TestHTTPLoggingPreservesBodyForHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var seenBody string
	handler := HTTPLogging(debugLogger(&buf), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := new(bytes.Buffer)
		b.ReadFrom(r.Body) //nolint:errcheck
		seenBody = b.String()
		w.WriteHeader(http.StatusOK)
	}))

	body := `{"mainDomain":"example.com"}`
	req := httptest.NewRequest("PUT", "/profiles/home", strings.NewReader(body))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seenBody != body {
		t.Errorf("handler saw body %q, want %q", seenBody, body)
	}
}

func TestHTTPLoggingRecordsStatusCode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := HTTPLogging(debugLogger(&buf), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/profiles/ghost", nil))

	if !strings.Contains(buf.String(), `"status_code":404`) {
		t.Errorf("status code not logged: %s", buf.String())
	}
}
