package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) repository.RunRepository {
	return &runRepository{db: db}
}

// alertRow is an alert as stored in analysis_run_alerts.
type alertRow struct {
	RunID          string  `db:"run_id"`
	Item           string  `db:"item"`
	Category       string  `db:"category"`
	Severity       string  `db:"severity"`
	Priority       int     `db:"priority"`
	Balance        float64 `db:"balance"`
	DailyMean      float64 `db:"daily_mean"`
	Consumption30d float64 `db:"consumption_30d"`
	CoverageDays   float64 `db:"coverage_days"`
	CoverageState  string  `db:"coverage_state"`
	SuggestedQty   float64 `db:"suggested_qty"`
}

const runColumns = `id, reference_at, source, mode, items, transactions, critical, urgent, attention, anomalies, errors, duration_ms, created_at`

func (r *runRepository) SaveRun(ctx context.Context, run *domain.AnalysisRun, alerts []domain.Alert) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Run header
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO analysis_runs (`+runColumns+`)
			VALUES (:id, :reference_at, :source, :mode, :items, :transactions, :critical, :urgent,
				:attention, :anomalies, :errors, :duration_ms, :created_at)
		`, run)
		if err != nil {
			return fmt.Errorf("failed to insert analysis run: %w", err)
		}

		if len(alerts) == 0 {
			return nil
		}

		// 2. Alerts raised by the run
		rows := make([]alertRow, 0, len(alerts))
		for _, a := range alerts {
			rows = append(rows, alertRow{
				RunID:          run.ID,
				Item:           a.ItemID,
				Category:       a.Category,
				Severity:       string(a.Severity),
				Priority:       a.Priority,
				Balance:        a.Balance,
				DailyMean:      a.DailyMean,
				Consumption30d: a.Consumption30d,
				CoverageDays:   a.CoverageDays,
				CoverageState:  string(a.CoverageState),
				SuggestedQty:   a.SuggestedQty,
			})
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO analysis_run_alerts (run_id, item, category, severity, priority, balance,
				daily_mean, consumption_30d, coverage_days, coverage_state, suggested_qty)
			VALUES (:run_id, :item, :category, :severity, :priority, :balance,
				:daily_mean, :consumption_30d, :coverage_days, :coverage_state, :suggested_qty)
		`, rows)
		if err != nil {
			return fmt.Errorf("failed to insert run alerts: %w", err)
		}
		return nil
	})
}

func (r *runRepository) ListRuns(ctx context.Context, limit int) ([]domain.AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}
	runs := []domain.AnalysisRun{}
	err := r.db.SelectContext(ctx, &runs, `SELECT `+runColumns+` FROM analysis_runs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis runs: %w", err)
	}
	return runs, nil
}

func (r *runRepository) GetRun(ctx context.Context, id string) (*domain.AnalysisRun, error) {
	var run domain.AnalysisRun
	err := r.db.GetContext(ctx, &run, `SELECT `+runColumns+` FROM analysis_runs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis run: %w", err)
	}
	return &run, nil
}

func (r *runRepository) RunAlerts(ctx context.Context, id string) ([]domain.Alert, error) {
	if _, err := r.GetRun(ctx, id); err != nil {
		return nil, err
	}

	var rows []alertRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT run_id, item, category, severity, priority, balance, daily_mean, consumption_30d,
			coverage_days, coverage_state, suggested_qty
		FROM analysis_run_alerts
		WHERE run_id = $1
		ORDER BY priority, consumption_30d DESC, item
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list run alerts: %w", err)
	}

	alerts := make([]domain.Alert, 0, len(rows))
	for _, row := range rows {
		alerts = append(alerts, domain.Alert{
			ItemID:         row.Item,
			Category:       row.Category,
			Severity:       domain.Severity(row.Severity),
			Priority:       row.Priority,
			Balance:        row.Balance,
			DailyMean:      row.DailyMean,
			Consumption30d: row.Consumption30d,
			CoverageDays:   row.CoverageDays,
			CoverageState:  domain.CoverageState(row.CoverageState),
			SuggestedQty:   row.SuggestedQty,
		})
	}
	return alerts, nil
}
