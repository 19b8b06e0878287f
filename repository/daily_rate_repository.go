package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"shiftwatch/database"
	"shiftwatch/models"
)

// DailyRateRepository implements daily rate data access
type DailyRateRepository struct {
	q Queryable
}

// NewDailyRateRepository creates a new daily rate repository
func NewDailyRateRepository(db *database.DB) *DailyRateRepository {
	return &DailyRateRepository{q: db.Pool}
}

// Upsert writes the daily rate for (venue, date), replacing any previous row.
// The aggregation arithmetic is deterministic, so a retry writes an identical
// row and concurrent upserts for the same key are safe without locking.
func (r *DailyRateRepository) Upsert(ctx context.Context, rate *models.DailyRate) error {
	query := `
		INSERT INTO daily_rates (venue_id, rate_date, rate, sample_count, computed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (venue_id, rate_date)
		DO UPDATE SET rate = EXCLUDED.rate,
		              sample_count = EXCLUDED.sample_count,
		              computed_at = EXCLUDED.computed_at
	`

	_, err := r.q.Exec(ctx, query,
		rate.VenueID,
		rate.Date,
		rate.Rate,
		rate.SampleCount,
		rate.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily rate for venue %d on %s: %w",
			rate.VenueID, rate.Date.Format("2006-01-02"), err)
	}
	return nil
}

// GetByVenueDate retrieves the daily rate for a venue and date, or nil.
func (r *DailyRateRepository) GetByVenueDate(ctx context.Context, venueID int64, date time.Time) (*models.DailyRate, error) {
	query := `
		SELECT venue_id, rate_date, rate, sample_count, computed_at
		FROM daily_rates
		WHERE venue_id = $1 AND rate_date = $2
	`

	var d models.DailyRate
	err := r.q.QueryRow(ctx, query, venueID, date).Scan(
		&d.VenueID,
		&d.Date,
		&d.Rate,
		&d.SampleCount,
		&d.ComputedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily rate for venue %d: %w", venueID, err)
	}
	return &d, nil
}
