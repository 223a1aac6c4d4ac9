// Package metrics provides Prometheus metrics collection for the agent.
package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Update outcomes recorded per DNS record.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

var (
	// Global metrics - used by the application
	// Using atomic.Pointer for lock-free initialization checks on hot path metrics.
	reconcilePasses   atomic.Pointer[prometheus.CounterVec]
	recordUpdates     atomic.Pointer[prometheus.CounterVec]
	reconcileDuration atomic.Pointer[prometheus.HistogramVec]
	ipResolveFailures atomic.Pointer[prometheus.CounterVec]
	activeTimers      atomic.Pointer[prometheus.Gauge]
)

// Init initializes all Prometheus metrics and registers them with the provided registry.
// This should be called once at application startup.
func Init(reg prometheus.Registerer) error {
	reconcilePassesVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ddns",
			Subsystem: "agent",
			Name:      "reconcile_passes_total",
			Help:      "Total number of reconciliation passes started per profile",
		},
		[]string{"profile"},
	)
	if err := reg.Register(reconcilePassesVec); err != nil {
		return fmt.Errorf("failed to register reconcilePasses: %w", err)
	}

	recordUpdatesVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ddns",
			Subsystem: "agent",
			Name:      "record_updates_total",
			Help:      "Total number of DNS record update attempts by outcome",
		},
		[]string{"profile", "outcome"},
	)
	if err := reg.Register(recordUpdatesVec); err != nil {
		return fmt.Errorf("failed to register recordUpdates: %w", err)
	}

	reconcileDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ddns",
			Subsystem: "agent",
			Name:      "reconcile_duration_seconds",
			Help:      "Reconciliation pass duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"profile"},
	)
	if err := reg.Register(reconcileDurationVec); err != nil {
		return fmt.Errorf("failed to register reconcileDuration: %w", err)
	}

	ipResolveFailuresVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ddns",
			Subsystem: "agent",
			Name:      "ip_resolve_failures_total",
			Help:      "Total number of failed public IP lookups by address family",
		},
		[]string{"family"},
	)
	if err := reg.Register(ipResolveFailuresVec); err != nil {
		return fmt.Errorf("failed to register ipResolveFailures: %w", err)
	}

	activeTimersGauge := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ddns",
			Subsystem: "agent",
			Name:      "active_timers",
			Help:      "Number of profiles with a running reconciliation timer",
		},
	)
	if err := reg.Register(activeTimersGauge); err != nil {
		return fmt.Errorf("failed to register activeTimers: %w", err)
	}

	// Store metrics in atomics for lock-free access in record functions
	reconcilePasses.Store(reconcilePassesVec)
	recordUpdates.Store(recordUpdatesVec)
	reconcileDuration.Store(reconcileDurationVec)
	ipResolveFailures.Store(ipResolveFailuresVec)
	activeTimers.Store(&activeTimersGauge)

	return nil
}

// RecordPass increments the reconciliation pass counter for a profile.
func RecordPass(profile string) {
	if counter := reconcilePasses.Load(); counter != nil {
		counter.WithLabelValues(profile).Inc()
	}
}

// RecordUpdate increments the record update counter for the given outcome.
func RecordUpdate(profile, outcome string) {
	if counter := recordUpdates.Load(); counter != nil {
		counter.WithLabelValues(profile, outcome).Inc()
	}
}

// RecordPassDuration records a pass duration in seconds.
func RecordPassDuration(profile string, durationSeconds float64) {
	if histogram := reconcileDuration.Load(); histogram != nil {
		histogram.WithLabelValues(profile).Observe(durationSeconds)
	}
}

// RecordResolveFailure increments the IP lookup failure counter for a family.
func RecordResolveFailure(family string) {
	if counter := ipResolveFailures.Load(); counter != nil {
		counter.WithLabelValues(family).Inc()
	}
}

// SetActiveTimers sets the active timer gauge.
func SetActiveTimers(n int) {
	if gauge := activeTimers.Load(); gauge != nil {
		(*gauge).Set(float64(n))
	}
}

// Handler returns an HTTP handler for Prometheus metrics in text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
