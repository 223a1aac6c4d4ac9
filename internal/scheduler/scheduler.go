// Package scheduler owns one recurring reconciliation timer per DNS-sync
// profile: it resolves the current public IP on each tick, pushes it to every
// record in the profile, tracks run state, and publishes status events.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/skyfold/cloudflare-ddns/internal/cloudflare"
	"github.com/skyfold/cloudflare-ddns/internal/metrics"
	"github.com/skyfold/cloudflare-ddns/internal/profile"
	"github.com/skyfold/cloudflare-ddns/internal/store"
)

// ProfileStore supplies profile definitions and persists timer run state.
type ProfileStore interface {
	Get(ctx context.Context, name string) (*profile.Profile, error)
	SaveRunState(ctx context.Context, name string, running bool, intervalMinutes int) error
	LoadRunState(ctx context.Context) (map[string]store.RunState, error)
	Settings(ctx context.Context) (store.Settings, error)
}

// IPResolver fetches the current public address for an address family.
type IPResolver interface {
	Resolve(ctx context.Context, family profile.Family) (string, error)
}

// RecordUpdater pushes one DNS record update and returns the raw response body.
type RecordUpdater interface {
	UpdateRecord(ctx context.Context, apiKey, zoneID, recordID string, payload cloudflare.UpdatePayload) string
}

// ActivityLogger records reconciliation outcomes.
type ActivityLogger interface {
	AppendOutcome(profileName, domain, ip, response string)
}

// persistTimeout bounds run-state writes triggered by start/stop.
const persistTimeout = 5 * time.Second

// defaultStartupDelay spaces out restored profile starts so a restart does
// not produce a burst of simultaneous API calls.
const defaultStartupDelay = 500 * time.Millisecond

// timerHandle is the scheduler's live state for one profile timer.
type timerHandle struct {
	cancel   context.CancelFunc
	minutes  int
	interval time.Duration

	mu      sync.Mutex
	lastRun time.Time
}

func (h *timerHandle) setLastRun(t time.Time) {
	h.mu.Lock()
	h.lastRun = t
	h.mu.Unlock()
}

func (h *timerHandle) getLastRun() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastRun
}

// TimerStatus is a point-in-time view of one profile's timer for display.
type TimerStatus struct {
	Running         bool
	IntervalMinutes int
	LastRun         time.Time
	NextRun         time.Time
	Remaining       time.Duration
}

// Scheduler runs one independent reconciliation timer per profile. The timer
// map is the only mutable shared state; every mutation happens under mu so a
// stop and a concurrent start can never leave two live timers for one name.
type Scheduler struct {
	store    ProfileStore
	resolver IPResolver
	updater  RecordUpdater
	activity ActivityLogger
	logger   *slog.Logger

	intervalUnit time.Duration
	startupDelay time.Duration

	mu     sync.Mutex
	timers map[string]*timerHandle
	closed bool

	wg sync.WaitGroup

	subMu     sync.Mutex
	subs      map[int]chan Event
	nextSubID int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithIntervalUnit overrides the duration of one interval unit. The default
// is one minute; tests shrink it to avoid multi-minute sleeps.
func WithIntervalUnit(unit time.Duration) Option {
	return func(s *Scheduler) {
		if unit > 0 {
			s.intervalUnit = unit
		}
	}
}

// WithStartupDelay overrides the pause between restored profile starts.
func WithStartupDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.startupDelay = d
		}
	}
}

// New creates a Scheduler. All collaborators are required except logger,
// which defaults to slog.Default().
func New(st ProfileStore, resolver IPResolver, updater RecordUpdater, activity ActivityLogger, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		store:        st,
		resolver:     resolver,
		updater:      updater,
		activity:     activity,
		logger:       logger,
		intervalUnit: time.Minute,
		startupDelay: defaultStartupDelay,
		timers:       make(map[string]*timerHandle),
		subs:         make(map[int]chan Event),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// StartTimer starts (or restarts) the recurring reconciliation timer for a
// profile. An existing timer for the same name is cancelled first, so at most
// one timer per profile exists at any time. The first pass runs immediately;
// subsequent passes fire every intervalMinutes. Invalid arguments are
// reported and the call is a no-op.
func (s *Scheduler) StartTimer(profileName string, intervalMinutes int) {
	if profileName == "" {
		s.logger.Warn("refusing to start timer without a profile name")
		return
	}
	if intervalMinutes <= 0 {
		s.logger.Warn("refusing to start timer with non-positive interval",
			"profile", profileName, "interval_minutes", intervalMinutes)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if old, ok := s.timers[profileName]; ok {
		old.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &timerHandle{
		cancel:   cancel,
		minutes:  intervalMinutes,
		interval: time.Duration(intervalMinutes) * s.intervalUnit,
		lastRun:  time.Now(),
	}
	s.timers[profileName] = h
	active := len(s.timers)
	s.mu.Unlock()

	metrics.SetActiveTimers(active)
	s.logger.Info("timer started", "profile", profileName, "interval_minutes", intervalMinutes)

	s.wg.Add(1)
	go s.runLoop(ctx, profileName, h)

	s.publish(profileName, StatusRunning)
	s.persistRunState(profileName, true, intervalMinutes)
}

// StopTimer cancels and discards the timer for a profile. A pass that is
// already in flight completes; only future fires are suppressed. Stopping a
// profile with no timer is not an error.
func (s *Scheduler) StopTimer(profileName string) {
	s.mu.Lock()
	if h, ok := s.timers[profileName]; ok {
		h.cancel()
		delete(s.timers, profileName)
	}
	active := len(s.timers)
	s.mu.Unlock()

	metrics.SetActiveTimers(active)
	s.logger.Info("timer stopped", "profile", profileName)

	s.publish(profileName, StatusStopped)
	s.persistRunState(profileName, false, 0)
}

// RunOnce triggers a single reconciliation pass for a profile without
// touching its timer.
func (s *Scheduler) RunOnce(ctx context.Context, profileName string) {
	s.reconcile(ctx, profileName)
	s.publish(profileName, StatusRunning)
}

// IsRunning reports whether a timer currently exists for the profile.
func (s *Scheduler) IsRunning(profileName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[profileName]
	return ok
}

// RemainingTime returns the time until the profile's next scheduled fire.
// This is a display quantity: it may be negative between a scheduled fire
// and the tick handler's actual execution. The second return is false when
// no timer exists.
func (s *Scheduler) RemainingTime(profileName string) (time.Duration, bool) {
	s.mu.Lock()
	h, ok := s.timers[profileName]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}
	return h.interval - time.Since(h.getLastRun()), true
}

// NextRunTime returns the timestamp of the profile's next scheduled fire.
func (s *Scheduler) NextRunTime(profileName string) (time.Time, bool) {
	s.mu.Lock()
	h, ok := s.timers[profileName]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return h.getLastRun().Add(h.interval), true
}

// Status returns a point-in-time view of a profile's timer for display.
func (s *Scheduler) Status(profileName string) TimerStatus {
	s.mu.Lock()
	h, ok := s.timers[profileName]
	s.mu.Unlock()
	if !ok {
		return TimerStatus{}
	}

	lastRun := h.getLastRun()
	return TimerStatus{
		Running:         true,
		IntervalMinutes: h.minutes,
		LastRun:         lastRun,
		NextRun:         lastRun.Add(h.interval),
		Remaining:       h.interval - time.Since(lastRun),
	}
}

// RestoreRunState re-issues StartTimer for every profile persisted as
// running, spaced startupDelay apart. Best effort: a missing or unreadable
// store never prevents startup.
func (s *Scheduler) RestoreRunState(ctx context.Context) {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		s.logger.Error("failed to load settings, skipping timer restoration", "error", err)
		return
	}
	if !settings.LoadProfilesOnStartup {
		s.logger.Info("profile restoration disabled")
		return
	}

	states, err := s.store.LoadRunState(ctx)
	if err != nil {
		s.logger.Error("failed to load run state, skipping timer restoration", "error", err)
		return
	}

	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		state := states[name]
		if !state.Running || s.IsRunning(name) {
			continue
		}

		s.logger.Info("restoring timer", "profile", name, "interval_minutes", state.IntervalMinutes)
		s.StartTimer(name, state.IntervalMinutes)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.startupDelay):
		}
	}
}

// Close stops every timer and waits for in-flight passes to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for name, h := range s.timers {
		h.cancel()
		delete(s.timers, name)
	}
	s.mu.Unlock()

	metrics.SetActiveTimers(0)
	s.wg.Wait()
}

// runLoop is the per-profile timer goroutine. Ticks for one profile are
// non-overlapping by construction: the loop runs passes sequentially and
// time.Ticker coalesces fires missed while a slow pass was still running.
func (s *Scheduler) runLoop(ctx context.Context, profileName string, h *timerHandle) {
	defer s.wg.Done()

	s.tick(ctx, profileName, h)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, profileName, h)
		}
	}
}

// tick runs one scheduled reconciliation pass. lastRun is updated before the
// work starts so remaining-time displays reset even when the pass is slow.
// The pass runs on a detached context: cancelling the timer suppresses future
// fires but never aborts record updates already in flight.
func (s *Scheduler) tick(ctx context.Context, profileName string, h *timerHandle) {
	if ctx.Err() != nil {
		return
	}

	h.setLastRun(time.Now())
	s.reconcile(context.WithoutCancel(ctx), profileName)
	s.publish(profileName, StatusRunning)
}

// persistRunState saves a profile's timer status. Persistence failures are
// logged, never propagated: losing a status write must not affect the timer.
func (s *Scheduler) persistRunState(profileName string, running bool, intervalMinutes int) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.store.SaveRunState(ctx, profileName, running, intervalMinutes); err != nil {
		s.logger.Error("failed to persist run state",
			"profile", profileName, "running", running, "error", err)
	}
}
