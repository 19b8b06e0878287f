package service

import (
	"context"
	"time"

	"shiftwatch/fetch"
	"shiftwatch/models"
)

// RosterFetcher defines the interface for retrieving roster page markup
type RosterFetcher interface {
	// Fetch retrieves the page at url and stamps the capture instant
	Fetch(ctx context.Context, venueID int64, url string) (*fetch.Result, error)
}

// VenueRepository defines the interface for venue data access
type VenueRepository interface {
	// GetByID retrieves a venue by its ID, nil when absent
	GetByID(ctx context.Context, id int64) (*models.Venue, error)

	// ListInScope returns all venues flagged for collection
	ListInScope(ctx context.Context) ([]*models.Venue, error)
}

// StaffRepository defines the interface for staff roster reads
type StaffRepository interface {
	// ListActiveByVenue returns the active staff members of a venue
	ListActiveByVenue(ctx context.Context, venueID int64) ([]*models.StaffMember, error)
}

// ObservationRepository defines the interface for observation data access
type ObservationRepository interface {
	// Create persists a new observation; duplicates map to
	// repository.ErrDuplicateObservation
	Create(ctx context.Context, obs *models.Observation) error

	// ListForVenueWindow returns observations captured within [from, to)
	ListForVenueWindow(ctx context.Context, venueID int64, from, to time.Time) ([]*models.Observation, error)
}

// DailyRateRepository defines the interface for daily rate data access
type DailyRateRepository interface {
	// Upsert writes the rate row for (venue, date), replacing any previous one
	Upsert(ctx context.Context, rate *models.DailyRate) error

	// GetByVenueDate retrieves the rate for a venue and date, nil when absent
	GetByVenueDate(ctx context.Context, venueID int64, date time.Time) (*models.DailyRate, error)
}

// JobRunRepository defines the interface for job run data access
type JobRunRepository interface {
	// Create inserts the run row at job start
	Create(ctx context.Context, run *models.JobRun) error

	// Finalize writes the terminal outcome and counters
	Finalize(ctx context.Context, run *models.JobRun) error

	// LatestByName returns the most recently started run of a job, or nil
	LatestByName(ctx context.Context, jobName string) (*models.JobRun, error)

	// LatestForVenueDate returns the most recent run scoped to one venue and
	// target date, or nil
	LatestForVenueDate(ctx context.Context, jobName string, venueID int64, targetDate time.Time) (*models.JobRun, error)
}
