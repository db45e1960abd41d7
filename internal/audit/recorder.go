// Package audit keeps the history of apply runs.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"PipelineSync/internal/pipeline/model"
)

const Schema = `
CREATE TABLE IF NOT EXISTS pipeline_apply_runs (
  run_id           uuid PRIMARY KEY,
  source           text,
  started_at       timestamptz NOT NULL,
  finished_at      timestamptz NOT NULL,
  requested        integer NOT NULL,
  created          integer NOT NULL,
  updated          integer NOT NULL,
  soft_deleted     integer NOT NULL,
  accounts_updated integer NOT NULL,
  skipped          integer NOT NULL,
  success          boolean NOT NULL,
  errors           text[] NOT NULL DEFAULT '{}',
  warnings         text[] NOT NULL DEFAULT '{}'
);
`

// Run is one apply invocation as recorded.
type Run struct {
	RunID      string             `json:"run_id"`
	Source     string             `json:"source"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Requested  int                `json:"requested"`
	Outcome    model.ApplyOutcome `json:"outcome"`
}

// Recorder writes runs to Postgres. A nil *Recorder or one without a
// database discards records.
type Recorder struct {
	db *sql.DB
}

func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) Enabled() bool {
	return r != nil && r.db != nil
}

// Migrate creates the run table.
func (r *Recorder) Migrate(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

func (r *Recorder) Record(ctx context.Context, run Run) error {
	if !r.Enabled() {
		return nil
	}
	errs := run.Outcome.Errors
	if errs == nil {
		errs = []string{}
	}
	warns := run.Outcome.Warnings
	if warns == nil {
		warns = []string{}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO pipeline_apply_runs
  (run_id, source, started_at, finished_at, requested, created, updated, soft_deleted,
   accounts_updated, skipped, success, errors, warnings)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		run.RunID, run.Source, run.StartedAt, run.FinishedAt, run.Requested,
		run.Outcome.Created, run.Outcome.Updated, run.Outcome.SoftDeleted,
		run.Outcome.AccountsUpdated, run.Outcome.Skipped, run.Outcome.Succeeded(),
		pq.Array(errs), pq.Array(warns))
	if err != nil {
		return fmt.Errorf("record apply run %s: %w", run.RunID, err)
	}
	return nil
}

// Recent returns a page of runs, newest first.
func (r *Recorder) Recent(ctx context.Context, limit, offset int) ([]Run, error) {
	if !r.Enabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `SELECT run_id::text, COALESCE(source, ''), started_at, finished_at, requested,
  created, updated, soft_deleted, accounts_updated, skipped, errors, warnings
FROM pipeline_apply_runs ORDER BY started_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var errs, warns []string
		if err := rows.Scan(&run.RunID, &run.Source, &run.StartedAt, &run.FinishedAt, &run.Requested,
			&run.Outcome.Created, &run.Outcome.Updated, &run.Outcome.SoftDeleted,
			&run.Outcome.AccountsUpdated, &run.Outcome.Skipped,
			pq.Array(&errs), pq.Array(&warns)); err != nil {
			return nil, err
		}
		run.Outcome.Errors = errs
		run.Outcome.Warnings = warns
		out = append(out, run)
	}
	return out, rows.Err()
}
