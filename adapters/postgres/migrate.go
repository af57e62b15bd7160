package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migrate creates the result tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS validation_runs (
			id TEXT PRIMARY KEY,
			count_passed INTEGER NOT NULL,
			count_failed INTEGER NOT NULL,
			count_skipped INTEGER NOT NULL,
			duration_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS validation_pairs (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES validation_runs(id) ON DELETE CASCADE,
			entity_id TEXT NOT NULL DEFAULT '',
			variable_id TEXT NOT NULL DEFAULT '',
			raw_label TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			last_stage TEXT NOT NULL,
			skip_reason TEXT,
			skip_detail TEXT,
			metrics JSONB,
			residuals JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_validation_pairs_run ON validation_pairs(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
