package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // sqlite driver
)

// SQLiteStore persists profiles, run state, and settings in SQLite.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	logger        *slog.Logger
}

// New creates a new SQLiteStore instance.
// The dbPath is the file path for the SQLite database (or ":memory:" for tests).
// The encryptionKey must be exactly 32 bytes for AES-256.
func New(dbPath string, encryptionKey []byte, logger *slog.Logger) (*SQLiteStore, error) {
	if len(encryptionKey) != 32 {
		return nil, ErrInvalidKey
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := InitSchema(db); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Enable WAL mode for better concurrent access support
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// Set busy timeout to wait for locks instead of failing immediately (5 seconds)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// modernc.org/sqlite requires a single connection for in-process file
	// databases to avoid "database is locked" errors. This also serializes
	// concurrent run-state saves from profiles finishing at the same time.
	db.SetMaxOpenConns(1)

	return &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
		logger:        logger,
	}, nil
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping() error {
	return s.db.Ping()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
