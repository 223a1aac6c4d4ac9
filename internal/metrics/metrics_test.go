package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitAndRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Init(reg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	RecordPass("home")
	RecordPass("home")
	RecordUpdate("home", OutcomeSuccess)
	RecordUpdate("home", OutcomeFailure)
	RecordUpdate("home", OutcomeSkipped)
	RecordPassDuration("home", 0.25)
	RecordResolveFailure("IPv6")
	SetActiveTimers(3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	found := make(map[string]bool)
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{
		"ddns_agent_reconcile_passes_total",
		"ddns_agent_record_updates_total",
		"ddns_agent_reconcile_duration_seconds",
		"ddns_agent_ip_resolve_failures_total",
		"ddns_agent_active_timers",
	} {
		if !found[name] {
			t.Errorf("metric %s not registered", name)
		}
	}

	expected := strings.NewReader(`
# HELP ddns_agent_active_timers Number of profiles with a running reconciliation timer
# TYPE ddns_agent_active_timers gauge
ddns_agent_active_timers 3
`)
	if err := testutil.GatherAndCompare(reg, expected, "ddns_agent_active_timers"); err != nil {
		t.Errorf("active timers gauge mismatch: %v", err)
	}
}

func TestDoubleInitFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Init(reg); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	if err := Init(reg); err == nil {
		t.Error("second Init on same registry should fail")
	}
}
