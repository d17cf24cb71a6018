// Package storage handles data persistence: SQLite database and filesystem.
package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// schema is applied on every start; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS batch_runs (
    id          TEXT PRIMARY KEY,
    source      TEXT NOT NULL DEFAULT 'text',
    status      TEXT NOT NULL,
    total       INTEGER NOT NULL DEFAULT 0,
    succeeded   INTEGER NOT NULL DEFAULT 0,
    not_found   INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS batch_entries (
    run_id    TEXT NOT NULL REFERENCES batch_runs(id) ON DELETE CASCADE,
    position  INTEGER NOT NULL,
    card_name TEXT NOT NULL,
    price     TEXT NOT NULL,
    PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS lookups (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    name         TEXT NOT NULL,
    outcome      TEXT NOT NULL,
    result_count INTEGER NOT NULL DEFAULT 0,
    duration_ms  INTEGER NOT NULL DEFAULT 0,
    error        TEXT,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_batch_runs_started_at ON batch_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_batch_runs_status ON batch_runs(status);
CREATE INDEX IF NOT EXISTS idx_lookups_outcome ON lookups(outcome);
`

// NewDatabase opens the SQLite database, checks the connection and applies
// the schema.
func NewDatabase(dbPath string) (*sqlx.DB, error) {
	// WAL for concurrent readers, foreign keys for the entry cascade,
	// busy_timeout so a locked database waits instead of failing.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// SQLite performs best with a single writer connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}
