package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"shiftwatch/database"
	"shiftwatch/models"
)

// JobRunRepository implements job run data access. Job runs are the only
// scheduler state: the orchestrator reads the latest rows to decide
// eligibility, which keeps the process restartable.
type JobRunRepository struct {
	q Queryable
}

// NewJobRunRepository creates a new job run repository
func NewJobRunRepository(db *database.DB) *JobRunRepository {
	return &JobRunRepository{q: db.Pool}
}

// Create inserts the run row at job start, in the running state.
func (r *JobRunRepository) Create(ctx context.Context, run *models.JobRun) error {
	query := `
		INSERT INTO job_runs (id, job_name, venue_id, target_date, started_at, outcome,
		                      processed_count, error_count, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.Exec(ctx, query,
		run.ID,
		run.JobName,
		run.VenueID,
		run.TargetDate,
		run.StartedAt,
		run.Outcome,
		run.ProcessedCount,
		run.ErrorCount,
		notNilErrors(run.Errors),
	)
	if err != nil {
		return fmt.Errorf("failed to create job run %s: %w", run.ID, err)
	}
	return nil
}

// notNilErrors keeps a nil error list encodable into the NOT NULL TEXT[]
// column.
func notNilErrors(errs []string) []string {
	if errs == nil {
		return []string{}
	}
	return errs
}

// Finalize writes the terminal outcome and counters for a run.
func (r *JobRunRepository) Finalize(ctx context.Context, run *models.JobRun) error {
	query := `
		UPDATE job_runs
		SET completed_at = $2, outcome = $3, processed_count = $4, error_count = $5, errors = $6
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query,
		run.ID,
		run.CompletedAt,
		run.Outcome,
		run.ProcessedCount,
		run.ErrorCount,
		notNilErrors(run.Errors),
	)
	if err != nil {
		return fmt.Errorf("failed to finalize job run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job run %s not found", run.ID)
	}
	return nil
}

const jobRunColumns = `
	id, job_name, venue_id, target_date, started_at, completed_at,
	outcome, processed_count, error_count, errors
`

// LatestByName returns the most recently started run of a job, or nil.
func (r *JobRunRepository) LatestByName(ctx context.Context, jobName string) (*models.JobRun, error) {
	query := `
		SELECT ` + jobRunColumns + `
		FROM job_runs
		WHERE job_name = $1
		ORDER BY started_at DESC
		LIMIT 1
	`

	run, err := scanJobRun(r.q.QueryRow(ctx, query, jobName))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest %s run: %w", jobName, err)
	}
	return run, nil
}

// LatestForVenueDate returns the most recent run of a job scoped to one venue
// and target date, or nil.
func (r *JobRunRepository) LatestForVenueDate(ctx context.Context, jobName string, venueID int64, targetDate time.Time) (*models.JobRun, error) {
	query := `
		SELECT ` + jobRunColumns + `
		FROM job_runs
		WHERE job_name = $1 AND venue_id = $2 AND target_date = $3
		ORDER BY started_at DESC
		LIMIT 1
	`

	run, err := scanJobRun(r.q.QueryRow(ctx, query, jobName, venueID, targetDate))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest %s run for venue %d: %w", jobName, venueID, err)
	}
	return run, nil
}

func scanJobRun(row pgx.Row) (*models.JobRun, error) {
	var j models.JobRun
	err := row.Scan(
		&j.ID,
		&j.JobName,
		&j.VenueID,
		&j.TargetDate,
		&j.StartedAt,
		&j.CompletedAt,
		&j.Outcome,
		&j.ProcessedCount,
		&j.ErrorCount,
		&j.Errors,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
