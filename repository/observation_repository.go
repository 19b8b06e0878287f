package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"shiftwatch/database"
	"shiftwatch/models"
)

// ErrDuplicateObservation is returned when an observation for the same staff
// member at the same capture instant already exists. Duplicates are rejected,
// never overwritten: replays of the same instant carry no new information.
var ErrDuplicateObservation = errors.New("duplicate observation")

// ObservationRepository implements observation data access
type ObservationRepository struct {
	q Queryable
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *database.DB) *ObservationRepository {
	return &ObservationRepository{q: db.Pool}
}

// Create persists a new observation. Violating the (staff_id, captured_at)
// uniqueness constraint maps to ErrDuplicateObservation.
func (r *ObservationRepository) Create(ctx context.Context, obs *models.Observation) error {
	query := `
		INSERT INTO observations (venue_id, staff_id, captured_at, on_shift, working)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		obs.VenueID,
		obs.StaffID,
		obs.CapturedAt,
		obs.OnShift,
		obs.Working,
	).Scan(&obs.ID, &obs.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: staff %s at %s", ErrDuplicateObservation, obs.StaffID, obs.CapturedAt)
		}
		return fmt.Errorf("failed to create observation: %w", err)
	}
	return nil
}

// ListForVenueWindow returns a venue's observations captured within
// [from, to), in capture order.
func (r *ObservationRepository) ListForVenueWindow(ctx context.Context, venueID int64, from, to time.Time) ([]*models.Observation, error) {
	query := `
		SELECT id, venue_id, staff_id, captured_at, on_shift, working, created_at
		FROM observations
		WHERE venue_id = $1 AND captured_at >= $2 AND captured_at < $3
		ORDER BY captured_at, staff_id
	`

	rows, err := r.q.Query(ctx, query, venueID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations for venue %d: %w", venueID, err)
	}
	defer rows.Close()

	var observations []*models.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

func scanObservation(row pgx.Row) (*models.Observation, error) {
	var o models.Observation
	err := row.Scan(
		&o.ID,
		&o.VenueID,
		&o.StaffID,
		&o.CapturedAt,
		&o.OnShift,
		&o.Working,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
