package store

import (
	"context"
	"fmt"
)

// RunState is the persisted point-in-time timer status for one profile.
// It is a best-effort restore hint, not a guarantee that the timer ran.
type RunState struct {
	Running         bool
	IntervalMinutes int
}

// SaveRunState persists whether a profile's timer should be considered
// active and at what interval. Row-level upserts keep concurrent saves from
// different profiles from losing each other's updates.
func (s *SQLiteStore) SaveRunState(ctx context.Context, name string, running bool, intervalMinutes int) error {
	query := `INSERT INTO run_state (profile_name, is_running, interval_minutes, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(profile_name) DO UPDATE SET
			is_running = excluded.is_running,
			interval_minutes = excluded.interval_minutes,
			updated_at = CURRENT_TIMESTAMP`
	if _, err := s.db.ExecContext(ctx, query, name, running, intervalMinutes); err != nil {
		return fmt.Errorf("failed to save run state: %w", err)
	}
	return nil
}

// LoadRunState reads the persisted timer status for every profile.
func (s *SQLiteStore) LoadRunState(ctx context.Context) (map[string]RunState, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT profile_name, is_running, interval_minutes FROM run_state")
	if err != nil {
		return nil, fmt.Errorf("failed to query run state: %w", err)
	}
	defer func() {
		//nolint:errcheck
		rows.Close()
	}()

	states := make(map[string]RunState)
	for rows.Next() {
		var (
			name  string
			state RunState
		)
		if err := rows.Scan(&name, &state.Running, &state.IntervalMinutes); err != nil {
			return states, fmt.Errorf("failed to scan run state: %w", err)
		}
		states[name] = state
	}
	if err := rows.Err(); err != nil {
		return states, fmt.Errorf("failed to iterate run state: %w", err)
	}

	return states, nil
}
