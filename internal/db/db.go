package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/formulary/internal/config"
	_ "modernc.org/sqlite"
)

// schema creates the three record tables. Every statement is idempotent;
// there are no migrations.
const schema = `
CREATE TABLE IF NOT EXISTS submitted_content (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  prompt      TEXT NOT NULL,
  schema      TEXT,
  ai_response TEXT,
  timestamp   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submitted_content_timestamp
ON submitted_content(timestamp DESC, id DESC);

CREATE TABLE IF NOT EXISTS formulas (
  id             INTEGER PRIMARY KEY AUTOINCREMENT,
  "key"          TEXT NOT NULL UNIQUE,
  category       TEXT,
  subject        TEXT,
  topic          TEXT,
  sub_topic      TEXT,
  formula        TEXT NOT NULL,
  description    TEXT,
  variables      TEXT,
  connections    TEXT,
  examples       TEXT,
  verified_by_ai INTEGER NOT NULL DEFAULT 0,
  custom_user    TEXT,
  revision       INTEGER NOT NULL DEFAULT 1,
  timestamp      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS problems (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  text         TEXT NOT NULL,
  answer       TEXT NOT NULL,
  formula_keys TEXT,
  difficulty   TEXT,
  subject      TEXT,
  topic        TEXT,
  analysis     TEXT,
  hint         TEXT,
  custom_user  TEXT,
  timestamp    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_problems_timestamp
ON problems(timestamp DESC, id DESC);
`

// Open opens (creating if needed) the SQLite database at path and ensures
// the schema exists.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Pragmas in the connection string apply to every connection
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := ensureSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(path, 0600)

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
		db.SetMaxIdleConns(cfg.DBMaxOpenConns)
	}
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
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
