package server

import (
	"encoding/json"
	"net/http"
)

// SettingsView is the wire shape of the global agent flags. The admin token
// hash never appears in API requests or responses.
type SettingsView struct {
	RunOnStartup          bool `json:"runOnStartup"`
	LoadProfilesOnStartup bool `json:"loadProfilesOnStartup"`
}

// HandleGetSettings returns the global agent flags.
// GET /settings
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Settings(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, SettingsView{
		RunOnStartup:          settings.RunOnStartup,
		LoadProfilesOnStartup: settings.LoadProfilesOnStartup,
	})
}

// HandleSaveSettings replaces the global agent flags. The stored admin token
// hash is preserved; it can only be changed through the bootstrap path.
// PUT /settings
func (h *Handler) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsView
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	settings, err := h.store.Settings(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	settings.RunOnStartup = req.RunOnStartup
	settings.LoadProfilesOnStartup = req.LoadProfilesOnStartup
	if err := h.store.SaveSettings(r.Context(), settings); err != nil {
		h.logger.Error("failed to save settings", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal error")
		return
	}

	h.logger.Info("settings updated",
		"run_on_startup", req.RunOnStartup, "load_profiles_on_startup", req.LoadProfilesOnStartup)
	writeJSON(w, http.StatusOK, req)
}
