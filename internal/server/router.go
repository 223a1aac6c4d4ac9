package server

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/skyfold/cloudflare-ddns/internal/middleware"
)

// maxProfileBodySize bounds profile payloads. Even large profiles are a few
// kilobytes of JSON.
const maxProfileBodySize = 1 << 20

// NewRouter creates the control API router.
func (h *Handler) NewRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.MaxBodySize(maxProfileBodySize))
	r.Use(middleware.HTTPLogging(h.logger, middleware.ProfileFieldAllowlist))

	// Public endpoints (no auth)
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)

	r.Group(func(r chi.Router) {
		r.Use(h.TokenAuthMiddleware)

		r.Get("/profiles", h.HandleListProfiles)
		r.Route("/profiles/{name}", func(r chi.Router) {
			r.Get("/", h.HandleGetProfile)
			r.Put("/", h.HandleSaveProfile)
			r.Delete("/", h.HandleDeleteProfile)
			r.Post("/start", h.HandleStartTimer)
			r.Post("/stop", h.HandleStopTimer)
			r.Post("/run", h.HandleRunOnce)
		})

		r.Get("/settings", h.HandleGetSettings)
		r.Put("/settings", h.HandleSaveSettings)

		r.Get("/activity/last", h.HandleLastActivity)
		r.Post("/loglevel", h.HandleSetLogLevel)
	})

	return r
}
