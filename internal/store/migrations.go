package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the run history.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		state          TEXT NOT NULL DEFAULT 'PENDING',
		planner        TEXT NOT NULL,
		scheduler      TEXT NOT NULL,
		workers        INTEGER NOT NULL,
		frames         INTEGER NOT NULL,
		width          INTEGER NOT NULL,
		height         INTEGER NOT NULL,
		max_iterations INTEGER NOT NULL,
		jobs           INTEGER NOT NULL DEFAULT 0,
		executed       INTEGER NOT NULL DEFAULT 0,
		duration_ns    INTEGER NOT NULL DEFAULT 0,
		output         TEXT NOT NULL DEFAULT '',
		format         TEXT NOT NULL DEFAULT '',
		palette        TEXT NOT NULL DEFAULT '',
		error          TEXT NOT NULL DEFAULT '',
		created_at     TEXT NOT NULL,
		completed_at   TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
