package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mealie-planner/internal/mealplan"
)

// Run is one stored planning run.
type Run struct {
	ID        string
	CreatedAt time.Time
	StartDate string
	Days      int
	Strategy  string
	DryRun    bool
	Entries   mealplan.Plan
}

// PlanRepository is a database-backed repository for planning runs.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

// SaveRun stores a generated plan and returns the new run.
func (r *PlanRepository) SaveRun(ctx context.Context, horizon Horizon, strategy string, dryRun bool, plan mealplan.Plan) (Run, error) {
	entries, err := json.Marshal(plan)
	if err != nil {
		return Run{}, fmt.Errorf("failed to encode plan entries: %w", err)
	}

	run := Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		StartDate: horizon.Start.Format(mealplan.DateLayout),
		Days:      horizon.Days,
		Strategy:  strategy,
		DryRun:    dryRun,
		Entries:   plan,
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO plan_runs (id, created_at, start_date, days, strategy, dry_run, entries) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.StartDate, run.Days, run.Strategy, run.DryRun, entries,
	)
	if err != nil {
		return Run{}, fmt.Errorf("failed to save plan run: %w", err)
	}
	return run, nil
}

// ListRecent returns the most recent runs, newest first.
func (r *PlanRepository) ListRecent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at, start_date, days, strategy, dry_run, entries FROM plan_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent plan runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			entries []byte
		)
		if err := rows.Scan(&run.ID, &run.CreatedAt, &run.StartDate, &run.Days, &run.Strategy, &run.DryRun, &entries); err != nil {
			return nil, fmt.Errorf("failed to scan plan run: %w", err)
		}
		if err := json.Unmarshal(entries, &run.Entries); err != nil {
			return nil, fmt.Errorf("failed to decode entries of run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
