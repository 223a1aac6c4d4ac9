// Package mockcloudflare provides a mock Cloudflare DNS API server for testing.
package mockcloudflare

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// UpdateCall records one DNS record update request received by the server.
type UpdateCall struct {
	ZoneID   string
	RecordID string
	APIKey   string
	Payload  Payload
}

// Payload mirrors the update request body.
type Payload struct {
	Content string `json:"content"`
	Name    string `json:"name"`
	Proxied bool   `json:"proxied"`
	Type    string `json:"type"`
	TTL     int    `json:"ttl"`
	Comment string `json:"comment"`
}

// Server is a mock Cloudflare API server for testing.
type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	calls       []UpdateCall
	failRecords map[string]struct{}
}

// New creates and starts a mock Cloudflare API server.
func New() *Server {
	s := &Server{
		failRecords: make(map[string]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /client/v4/zones/{zoneID}/dns_records/{recordID}", s.handleUpdate)
	s.srv = httptest.NewServer(mux)

	return s
}

// Handler returns the HTTP handler, for embedding in a standalone server.
func Handler() http.Handler {
	s := &Server{failRecords: make(map[string]struct{})}
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /client/v4/zones/{zoneID}/dns_records/{recordID}", s.handleUpdate)
	return mux
}

// URL returns the base URL of the mock server.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close shuts down the mock server.
func (s *Server) Close() {
	s.srv.Close()
}

// Calls returns a copy of all update requests received so far.
func (s *Server) Calls() []UpdateCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UpdateCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// Reset clears recorded calls and failure injections.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
	s.failRecords = make(map[string]struct{})
}

// FailRecord makes future updates for the given record ID answer with a
// provider-style failure envelope.
func (s *Server) FailRecord(recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRecords[recordID] = struct{}{}
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	zoneID := r.PathValue("zoneID")
	recordID := r.PathValue("recordID")

	apiKey := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if apiKey == "" || apiKey == r.Header.Get("Authorization") {
		writeEnvelope(w, http.StatusBadRequest, false, "Unable to authenticate request", recordID, Payload{})
		return
	}

	var payload Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeEnvelope(w, http.StatusBadRequest, false, "Invalid request body", recordID, Payload{})
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, UpdateCall{
		ZoneID:   zoneID,
		RecordID: recordID,
		APIKey:   apiKey,
		Payload:  payload,
	})
	_, fail := s.failRecords[recordID]
	s.mu.Unlock()

	if fail {
		writeEnvelope(w, http.StatusBadRequest, false, "DNS record update failed", recordID, payload)
		return
	}

	writeEnvelope(w, http.StatusOK, true, "", recordID, payload)
}

// writeEnvelope writes a Cloudflare-style response envelope.
func writeEnvelope(w http.ResponseWriter, status int, success bool, errMsg, recordID string, payload Payload) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	envelope := map[string]any{
		"success":  success,
		"errors":   []any{},
		"messages": []any{},
		"result": map[string]any{
			"id":      recordID,
			"name":    payload.Name,
			"content": payload.Content,
			"type":    payload.Type,
			"proxied": payload.Proxied,
			"ttl":     payload.TTL,
			"comment": payload.Comment,
		},
	}
	if !success {
		envelope["errors"] = []map[string]any{{"code": 9999, "message": errMsg}}
		envelope["result"] = nil
	}

	//nolint:errcheck
	_ = json.NewEncoder(w).Encode(envelope)
}

// EchoHandler serves an ipify-style address echo for the given address.
func EchoHandler(ip string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck
		fmt.Fprintf(w, `{"ip": %q}`, ip)
	})
}

// NewEcho starts an ipify-style echo server returning the given address.
func NewEcho(ip string) *httptest.Server {
	return httptest.NewServer(EchoHandler(ip))
}
