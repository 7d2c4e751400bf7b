package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hpungsan/triage/internal/config"
)

// CurrentSchemaVersion is the latest sqlite schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the sqlite database file inside the data directory.
const FileName = "triage.db"

// Init initializes the SQLite database at dataDir/triage.db.
// The dataDir parameter allows tests to use t.TempDir().
func Init(dataDir string) (*sql.DB, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(dataDir, 0700)

	// Pragmas in the connection string apply to all connections
	dbPath := filepath.Join(dataDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrateSQLite applies schema migrations based on user_version.
func migrateSQLite(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: cases table
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS cases (
		  case_id           TEXT PRIMARY KEY,
		  session_id        TEXT NOT NULL,
		  started_at        INTEGER NOT NULL,
		  updated_at        INTEGER NOT NULL,
		  triage_level      TEXT NOT NULL DEFAULT '',
		  triage_confidence REAL NOT NULL DEFAULT 0,
		  duration          TEXT NOT NULL DEFAULT '',
		  severity          TEXT NOT NULL DEFAULT '',
		  notes_count       INTEGER NOT NULL DEFAULT 0,
		  red_flag_count    INTEGER NOT NULL DEFAULT 0,
		  record_json       TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_cases_started
		ON cases(started_at DESC);

		CREATE INDEX IF NOT EXISTS idx_cases_session
		ON cases(session_id);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
