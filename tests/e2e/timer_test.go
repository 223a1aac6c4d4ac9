package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfold/cloudflare-ddns/tests/testenv"
)

// TestTimerLifecycle starts a timer through the API, observes recurring
// passes at the provider, stops it, and checks persisted run state.
func TestTimerLifecycle(t *testing.T) {
	env := testenv.Setup(t)
	env.SaveProfile(t, "home")

	resp, body := env.Request(t, "POST", "/profiles/home/start", `{"interval": 1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	// Immediate first pass plus at least two scheduled fires.
	env.WaitForCalls(t, 3, 5*time.Second)

	states, err := env.Store.LoadRunState(context.Background())
	require.NoError(t, err)
	require.Contains(t, states, "home")
	assert.True(t, states["home"].Running)
	assert.Equal(t, 1, states["home"].IntervalMinutes)

	resp, _ = env.Request(t, "POST", "/profiles/home/stop", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, env.Scheduler.IsRunning("home"))

	states, err = env.Store.LoadRunState(context.Background())
	require.NoError(t, err)
	assert.False(t, states["home"].Running)
}

// TestRunStateSurvivesRestart simulates an agent restart: a second
// environment sharing nothing but run-state semantics restores a profile
// that was running when the first stopped.
func TestRunStateSurvivesRestart(t *testing.T) {
	env := testenv.Setup(t)
	env.SaveProfile(t, "home")

	env.Scheduler.StartTimer("home", 2)
	env.WaitForCalls(t, 1, 5*time.Second)

	// Simulate shutdown without stopping the timer: run state stays
	// running in the store.
	env.Scheduler.Close()

	env.Cloudflare.Reset()

	// Fresh scheduler over the same store.
	restored := env.NewScheduler(t)
	restored.RestoreRunState(context.Background())

	require.True(t, restored.IsRunning("home"))
	env.WaitForCalls(t, 1, 5*time.Second)
}

// TestDeleteRunningProfile verifies deletion through the API stops the timer
// before removing the profile.
func TestDeleteRunningProfile(t *testing.T) {
	env := testenv.Setup(t)
	env.SaveProfile(t, "home")

	env.Scheduler.StartTimer("home", 1)
	env.WaitForCalls(t, 1, 5*time.Second)

	resp, _ := env.Request(t, "DELETE", "/profiles/home", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, env.Scheduler.IsRunning("home"))

	resp, _ = env.Request(t, "GET", "/profiles/home", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
