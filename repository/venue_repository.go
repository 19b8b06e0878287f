package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shiftwatch/database"
	"shiftwatch/models"
)

// VenueRepository reads venue rows. Venues are owned by the external
// registry, so this repository is read-only by design.
type VenueRepository struct {
	q Queryable
}

// NewVenueRepository creates a new venue repository
func NewVenueRepository(db *database.DB) *VenueRepository {
	return &VenueRepository{q: db.Pool}
}

const venueColumns = `
	id, name, kind, capacity, open_time, close_time,
	roster_url, source_dialect, in_scope, created_at, updated_at
`

// GetByID retrieves a venue by its ID
func (r *VenueRepository) GetByID(ctx context.Context, id int64) (*models.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = $1`

	venue, err := scanVenue(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get venue %d: %w", id, err)
	}
	return venue, nil
}

// ListInScope returns all venues flagged for collection, ordered by id.
func (r *VenueRepository) ListInScope(ctx context.Context) ([]*models.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE in_scope ORDER BY id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list in-scope venues: %w", err)
	}
	defer rows.Close()

	var venues []*models.Venue
	for rows.Next() {
		venue, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		venues = append(venues, venue)
	}
	return venues, rows.Err()
}

func scanVenue(row pgx.Row) (*models.Venue, error) {
	var v models.Venue
	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Kind,
		&v.Capacity,
		&v.OpenTime,
		&v.CloseTime,
		&v.RosterURL,
		&v.SourceDialect,
		&v.InScope,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
