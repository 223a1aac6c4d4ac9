package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skyfold/cloudflare-ddns/internal/profile"
	"github.com/skyfold/cloudflare-ddns/internal/store"
)

// TimerView is the wire shape of a profile's timer state.
type TimerView struct {
	Running          bool   `json:"running"`
	IntervalMinutes  int    `json:"intervalMinutes,omitempty"`
	NextRun          string `json:"nextRun,omitempty"`
	RemainingSeconds int64  `json:"remainingSeconds,omitempty"`
}

// ProfileSummary is the list view of a profile. Credentials never appear in
// API responses.
type ProfileSummary struct {
	Name        string    `json:"name"`
	MainDomain  string    `json:"mainDomain"`
	RecordCount int       `json:"recordCount"`
	Timer       TimerView `json:"timer"`
}

// ProfileDetail is the single-profile view, again without credentials.
type ProfileDetail struct {
	Name       string               `json:"name"`
	MainDomain string               `json:"mainDomain"`
	DNSRecords []profile.RecordSpec `json:"DnsRecords"`
	Timer      TimerView            `json:"timer"`
}

func (h *Handler) timerView(name string) TimerView {
	status := h.sched.Status(name)
	view := TimerView{
		Running:         status.Running,
		IntervalMinutes: status.IntervalMinutes,
	}
	if status.Running {
		view.NextRun = status.NextRun.Format(time.RFC3339)
		if status.Remaining > 0 {
			view.RemainingSeconds = int64(status.Remaining.Seconds())
		}
	}
	return view
}

// HandleListProfiles returns every stored profile with its timer state.
// GET /profiles
func (h *Handler) HandleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.LoadAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list profiles", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	response := make([]ProfileSummary, 0, len(names))
	for _, name := range names {
		p := profiles[name]
		response = append(response, ProfileSummary{
			Name:        name,
			MainDomain:  p.MainDomain,
			RecordCount: len(p.DNSRecords),
			Timer:       h.timerView(name),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// HandleGetProfile returns one profile without its credentials.
// GET /profiles/{name}
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	p, err := h.store.Get(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Profile not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load profile", "profile", name, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, ProfileDetail{
		Name:       name,
		MainDomain: p.MainDomain,
		DNSRecords: p.DNSRecords,
		Timer:      h.timerView(name),
	})
}

// HandleSaveProfile creates or replaces a profile.
// PUT /profiles/{name}
// Body: profile JSON including ApiKey and ZoneId.
func (h *Handler) HandleSaveProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var p profile.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}
	p.Name = name

	if err := p.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidProfile, err.Error())
		return
	}

	if err := h.store.SaveProfile(r.Context(), &p); err != nil {
		h.logger.Error("failed to save profile", "profile", name, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	h.logger.Info("profile saved", "profile", name, "records", len(p.DNSRecords))
	writeJSON(w, http.StatusOK, ProfileSummary{
		Name:        name,
		MainDomain:  p.MainDomain,
		RecordCount: len(p.DNSRecords),
		Timer:       h.timerView(name),
	})
}

// HandleDeleteProfile stops the profile's timer and removes the profile.
// DELETE /profiles/{name}
func (h *Handler) HandleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	// Stop first so a live timer cannot reconcile a deleted profile.
	h.sched.StopTimer(name)

	err := h.store.DeleteProfile(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Profile not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete profile", "profile", name, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	h.logger.Info("profile deleted", "profile", name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
