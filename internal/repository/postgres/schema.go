package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates the run history tables. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id            UUID PRIMARY KEY,
	reference_at  TIMESTAMPTZ NOT NULL,
	source        TEXT NOT NULL,
	mode          TEXT NOT NULL,
	items         INTEGER NOT NULL DEFAULT 0,
	transactions  INTEGER NOT NULL DEFAULT 0,
	critical      INTEGER NOT NULL DEFAULT 0,
	urgent        INTEGER NOT NULL DEFAULT 0,
	attention     INTEGER NOT NULL DEFAULT 0,
	anomalies     INTEGER NOT NULL DEFAULT 0,
	errors        INTEGER NOT NULL DEFAULT 0,
	duration_ms   BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at ON analysis_runs (created_at DESC);

CREATE TABLE IF NOT EXISTS analysis_run_alerts (
	run_id          UUID NOT NULL REFERENCES analysis_runs (id) ON DELETE CASCADE,
	item            TEXT NOT NULL,
	category        TEXT NOT NULL DEFAULT '',
	severity        TEXT NOT NULL,
	priority        INTEGER NOT NULL,
	balance         DOUBLE PRECISION NOT NULL,
	daily_mean      DOUBLE PRECISION NOT NULL,
	consumption_30d DOUBLE PRECISION NOT NULL,
	coverage_days   DOUBLE PRECISION NOT NULL,
	coverage_state  TEXT NOT NULL,
	suggested_qty   DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, item)
);
`

// Migrate applies Schema. It takes a plain *sql.DB so any registered driver works.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
