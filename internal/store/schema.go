package store

import (
	"database/sql"
	"fmt"
)

// InitSchema creates all required tables.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	ddlStatements := []string{
		// profiles table: one row per DNS-sync profile. Credentials are
		// encrypted at rest; dns_records is the JSON record list in the
		// legacy profile format.
		`CREATE TABLE IF NOT EXISTS profiles (
			name TEXT PRIMARY KEY,
			api_key_encrypted BLOB NOT NULL,
			zone_id_encrypted BLOB NOT NULL,
			main_domain TEXT NOT NULL,
			dns_records TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// run_state table: point-in-time timer status per profile,
		// used to restore timers after a restart.
		`CREATE TABLE IF NOT EXISTS run_state (
			profile_name TEXT PRIMARY KEY,
			is_running INTEGER NOT NULL DEFAULT 0,
			interval_minutes INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// settings table: singleton row with global startup flags and the
		// control-API admin token hash.
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			run_on_startup INTEGER NOT NULL DEFAULT 0,
			load_profiles_on_startup INTEGER NOT NULL DEFAULT 1,
			admin_token_hash TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return nil
}
