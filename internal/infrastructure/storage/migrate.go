package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS scouts (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL UNIQUE,
		kind          TEXT NOT NULL,
		intent        TEXT NOT NULL,
		sources_json  TEXT NOT NULL DEFAULT '[]',
		instructions  TEXT NOT NULL DEFAULT '',
		platforms_json TEXT NOT NULL DEFAULT '[]',
		schedule      TEXT NOT NULL DEFAULT '',
		children_json TEXT NOT NULL DEFAULT '[]',
		created_at    TEXT NOT NULL,
		last_run_at   TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS ledger_records (
		scout_id      TEXT NOT NULL,
		source_kind   TEXT NOT NULL,
		source_id     TEXT NOT NULL,
		processed     INTEGER NOT NULL DEFAULT 0,
		first_seen_at TEXT NOT NULL,
		processed_at  TEXT,
		PRIMARY KEY (scout_id, source_kind, source_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_ledger_scout_processed
		ON ledger_records (scout_id, processed)`,

	`CREATE TABLE IF NOT EXISTS scout_feedback (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		scout_id    TEXT NOT NULL,
		draft_ref   TEXT NOT NULL DEFAULT '',
		verdict     TEXT NOT NULL,
		reason      TEXT NOT NULL DEFAULT '',
		recorded_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_feedback_scout
		ON scout_feedback (scout_id, recorded_at)`,
}

// Migrate applies the schema. Statements are idempotent so Migrate is safe
// to run on every startup.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
