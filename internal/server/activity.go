package server

import (
	"net/http"

	"github.com/skyfold/cloudflare-ddns/internal/scheduler"
)

// HandleLastActivity returns the most recent reconciliation entry from the
// activity log, annotated with the owning profile's current timer status.
// GET /activity/last
func (h *Handler) HandleLastActivity(w http.ResponseWriter, r *http.Request) {
	entry := h.activity.ReadLastEntry()
	if entry == nil {
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "No activity recorded yet")
		return
	}

	entry.RunningStatus = string(scheduler.StatusStopped)
	if h.sched.IsRunning(entry.ProfileName) {
		entry.RunningStatus = string(scheduler.StatusRunning)
	}

	writeJSON(w, http.StatusOK, entry)
}
