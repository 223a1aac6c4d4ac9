package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skyfold/cloudflare-ddns/internal/store"
)

// StartTimerRequest is the request body for POST /profiles/{name}/start.
type StartTimerRequest struct {
	Interval int `json:"interval"`
}

// profileExists translates a store lookup into an HTTP error when the profile
// is missing. Returns false after writing the response.
func (h *Handler) profileExists(w http.ResponseWriter, r *http.Request, name string) bool {
	_, err := h.store.Get(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Profile not found")
		return false
	}
	if err != nil {
		h.logger.Error("failed to load profile", "profile", name, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return false
	}
	return true
}

// HandleStartTimer starts (or restarts) a profile's reconciliation timer.
// POST /profiles/{name}/start
// Body: {"interval": minutes}
func (h *Handler) HandleStartTimer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req StartTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}
	if req.Interval <= 0 {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Interval must be a positive number of minutes")
		return
	}

	if !h.profileExists(w, r, name) {
		return
	}

	h.sched.StartTimer(name, req.Interval)
	writeJSON(w, http.StatusOK, h.timerView(name))
}

// HandleStopTimer stops a profile's timer. Stopping an already stopped
// profile succeeds.
// POST /profiles/{name}/stop
func (h *Handler) HandleStopTimer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h.sched.StopTimer(name)
	writeJSON(w, http.StatusOK, h.timerView(name))
}

// HandleRunOnce triggers a single reconciliation pass without touching the
// timer. The pass runs synchronously; the response reports completion.
// POST /profiles/{name}/run
func (h *Handler) HandleRunOnce(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if !h.profileExists(w, r, name) {
		return
	}

	h.sched.RunOnce(r.Context(), name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
