package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"emcal/domain/core"
	"emcal/domain/validation"
	"emcal/ports"
)

// ReportRepository persists run reports. One row per run plus one row
// per pair; metric lists and residual profiles ride along as JSON.
type ReportRepository struct {
	db *sqlx.DB
}

var _ ports.ResultStore = (*ReportRepository)(nil)

// NewReportRepository creates a repository over an open connection pool.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Connect opens a pool against the given DSN.
func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// SaveReport writes the run and all its pair results in one transaction.
func (r *ReportRepository) SaveReport(ctx context.Context, report *validation.RunReport) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO validation_runs (
		id, count_passed, count_failed, count_skipped, duration_ms, created_at
	) VALUES ($1, $2, $3, $4, $5, $6)`,
		report.RunID, report.CountPassed, report.CountFailed, report.CountSkipped,
		report.DurationMs, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, pair := range report.Pairs {
		var metricsJSON, residualsJSON []byte
		if len(pair.Metrics) > 0 {
			if metricsJSON, err = json.Marshal(pair.Metrics); err != nil {
				return fmt.Errorf("failed to marshal metrics: %w", err)
			}
		}
		if pair.Residuals != nil {
			if residualsJSON, err = json.Marshal(pair.Residuals); err != nil {
				return fmt.Errorf("failed to marshal residuals: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO validation_pairs (
			id, run_id, entity_id, variable_id, raw_label, status, last_stage,
			skip_reason, skip_detail, metrics, residuals
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			core.NewID(), report.RunID, pair.EntityID, pair.VariableID, pair.RawLabel,
			pair.Status, pair.LastStage, pair.SkipReason, pair.SkipDetail,
			nullableJSON(metricsJSON), nullableJSON(residualsJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert pair: %w", err)
		}
	}

	return tx.Commit()
}

// GetReport loads a persisted run report by id.
func (r *ReportRepository) GetReport(ctx context.Context, runID core.RunID) (*validation.RunReport, error) {
	report := &validation.RunReport{RunID: runID}
	err := r.db.QueryRowContext(ctx, `SELECT count_passed, count_failed, count_skipped, duration_ms
		FROM validation_runs WHERE id = $1`, runID).Scan(
		&report.CountPassed, &report.CountFailed, &report.CountSkipped, &report.DurationMs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT
		entity_id, variable_id, raw_label, status, last_stage,
		COALESCE(skip_reason, ''), COALESCE(skip_detail, ''), metrics, residuals
		FROM validation_pairs WHERE run_id = $1 ORDER BY entity_id, variable_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pair validation.PairResult
		var metricsJSON, residualsJSON []byte
		if err := rows.Scan(&pair.EntityID, &pair.VariableID, &pair.RawLabel,
			&pair.Status, &pair.LastStage, &pair.SkipReason, &pair.SkipDetail,
			&metricsJSON, &residualsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan pair: %w", err)
		}
		if len(metricsJSON) > 0 {
			if err := json.Unmarshal(metricsJSON, &pair.Metrics); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
			}
		}
		if len(residualsJSON) > 0 {
			if err := json.Unmarshal(residualsJSON, &pair.Residuals); err != nil {
				return nil, fmt.Errorf("failed to unmarshal residuals: %w", err)
			}
		}
		report.Pairs = append(report.Pairs, pair)
	}
	return report, rows.Err()
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
