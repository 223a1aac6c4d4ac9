package cloudflare

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRedactSensitiveData(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"long token", "Bearer cf-token-12345678", "Bear...5678"},
		{"short token", "abc", "****"},
		{"empty", "", "****"},
		{"eleven chars", "12345678901", "****"},
		{"twelve chars", "123456789012", "1234...9012"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redactSensitiveData(tt.token); got != tt.want {
				t.Errorf("redactSensitiveData(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestLoggingTransportRedactsAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "errors": []}`)) //nolint:errcheck
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client := NewClient(WithBaseURL(srv.URL), WithLogger(logger))
	body := client.UpdateRecord(context.Background(), "cf-very-secret-token", "zone1", "rec1", UpdatePayload{
		Content: "203.0.113.5", Name: "www.example.com", Type: "A", TTL: 300,
	})

	if !ParseResponse(body).Success {
		t.Fatalf("unexpected failure body: %s", body)
	}

	out := buf.String()
	if strings.Contains(out, "cf-very-secret-token") {
		t.Error("API token leaked into transport logs")
	}
	if !strings.Contains(out, "www.example.com") {
		t.Error("request body missing from transport logs")
	}
	if !strings.Contains(out, `"status_code":200`) {
		t.Errorf("response status missing from transport logs: %s", out)
	}
}
