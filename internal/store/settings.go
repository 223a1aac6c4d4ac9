package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Settings holds the global agent flags and the control-API admin token hash.
type Settings struct {
	RunOnStartup          bool
	LoadProfilesOnStartup bool
	AdminTokenHash        string
}

// defaultSettings matches the schema defaults for a fresh database.
var defaultSettings = Settings{LoadProfilesOnStartup: true}

// Settings reads the singleton settings row. A fresh database yields the
// defaults rather than an error.
func (s *SQLiteStore) Settings(ctx context.Context) (Settings, error) {
	query := "SELECT run_on_startup, load_profiles_on_startup, admin_token_hash FROM settings WHERE id = 1"
	var out Settings
	err := s.db.QueryRowContext(ctx, query).Scan(&out.RunOnStartup, &out.LoadProfilesOnStartup, &out.AdminTokenHash)
	if err == sql.ErrNoRows {
		return defaultSettings, nil
	}
	if err != nil {
		return defaultSettings, fmt.Errorf("failed to query settings: %w", err)
	}
	return out, nil
}

// SaveSettings inserts or replaces the singleton settings row.
func (s *SQLiteStore) SaveSettings(ctx context.Context, settings Settings) error {
	query := `INSERT OR REPLACE INTO settings (id, run_on_startup, load_profiles_on_startup, admin_token_hash, updated_at)
		VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)`
	if _, err := s.db.ExecContext(ctx, query, settings.RunOnStartup, settings.LoadProfilesOnStartup, settings.AdminTokenHash); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
