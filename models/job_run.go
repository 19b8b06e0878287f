package models

import (
	"time"

	"github.com/google/uuid"
)

// Job names recorded in job_runs.
const (
	JobCollection  = "collection"
	JobAggregation = "aggregation"
)

// JobOutcome is the terminal state of a job execution.
type JobOutcome string

const (
	OutcomeRunning JobOutcome = "running"
	OutcomeSuccess JobOutcome = "success"
	OutcomePartial JobOutcome = "partial"
	OutcomeFailed  JobOutcome = "failed"
)

// JobRun is the append-only record of one job execution. A row is created
// when the job starts and finalized when it ends; the orchestrator derives
// run eligibility from the latest rows instead of keeping in-process state,
// so a restarted process picks up where the previous one left off.
//
// VenueID is nil for collection cycles (one run covers all venues, with
// per-venue failures in Errors) and set for aggregation runs, which are
// gated per venue and day.
type JobRun struct {
	ID             uuid.UUID  `db:"id"`
	JobName        string     `db:"job_name"`
	VenueID        *int64     `db:"venue_id"`
	TargetDate     *time.Time `db:"target_date"`
	StartedAt      time.Time  `db:"started_at"`
	CompletedAt    *time.Time `db:"completed_at"`
	Outcome        JobOutcome `db:"outcome"`
	ProcessedCount int        `db:"processed_count"`
	ErrorCount     int        `db:"error_count"`
	Errors         []string   `db:"errors"`
}

// NewJobRun creates a running JobRun for the given job.
func NewJobRun(jobName string, startedAt time.Time) *JobRun {
	return &JobRun{
		ID:        uuid.New(),
		JobName:   jobName,
		StartedAt: startedAt,
		Outcome:   OutcomeRunning,
	}
}

// AddError appends an error message and bumps the error counter.
func (j *JobRun) AddError(msg string) {
	j.Errors = append(j.Errors, msg)
	j.ErrorCount++
}

// Finalize stamps the completion time and settles the outcome from the
// processed/error counters unless a terminal outcome was already forced.
func (j *JobRun) Finalize(completedAt time.Time) {
	j.CompletedAt = &completedAt
	if j.Outcome != OutcomeRunning {
		return
	}
	switch {
	case j.ErrorCount == 0:
		j.Outcome = OutcomeSuccess
	case j.ProcessedCount > 0:
		j.Outcome = OutcomePartial
	default:
		j.Outcome = OutcomeFailed
	}
}

// Duration returns the execution time, or zero if the run never completed.
func (j *JobRun) Duration() time.Duration {
	if j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(j.StartedAt)
}
