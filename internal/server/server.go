// Package server exposes the agent's control API: profile management, timer
// control, and activity inspection over authenticated HTTP.
package server

import (
	"context"
	"log/slog"

	"github.com/skyfold/cloudflare-ddns/internal/activitylog"
	"github.com/skyfold/cloudflare-ddns/internal/profile"
	"github.com/skyfold/cloudflare-ddns/internal/scheduler"
	"github.com/skyfold/cloudflare-ddns/internal/store"
)

// Store is the persistence surface the control API needs.
type Store interface {
	SaveProfile(ctx context.Context, p *profile.Profile) error
	Get(ctx context.Context, name string) (*profile.Profile, error)
	LoadAll(ctx context.Context) (map[string]*profile.Profile, error)
	DeleteProfile(ctx context.Context, name string) error
	Settings(ctx context.Context) (store.Settings, error)
	SaveSettings(ctx context.Context, settings store.Settings) error
	Ping() error
}

// ActivityReader resolves the most recent reconciliation entry.
type ActivityReader interface {
	ReadLastEntry() *activitylog.Entry
}

// Handler holds the control API's collaborators.
type Handler struct {
	store    Store
	sched    *scheduler.Scheduler
	activity ActivityReader
	logger   *slog.Logger
	logLevel *slog.LevelVar
}

// NewHandler creates a control API handler. logLevel may be nil when runtime
// level changes are not supported.
func NewHandler(st Store, sched *scheduler.Scheduler, activity ActivityReader, logger *slog.Logger, logLevel *slog.LevelVar) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:    st,
		sched:    sched,
		activity: activity,
		logger:   logger,
		logLevel: logLevel,
	}
}
