package repository

import (
	"context"
	"fmt"

	"shiftwatch/database"
	"shiftwatch/models"
)

// StaffRepository reads staff member rows. Like venues, staff rows are owned
// by the external registry; the core only needs them for reporting which ids
// a roster page produced against the known roster.
type StaffRepository struct {
	q Queryable
}

// NewStaffRepository creates a new staff repository
func NewStaffRepository(db *database.DB) *StaffRepository {
	return &StaffRepository{q: db.Pool}
}

// ListActiveByVenue returns the active staff members of a venue.
func (r *StaffRepository) ListActiveByVenue(ctx context.Context, venueID int64) ([]*models.StaffMember, error) {
	query := `
		SELECT id, venue_id, active, created_at
		FROM staff_members
		WHERE venue_id = $1 AND active
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, venueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff for venue %d: %w", venueID, err)
	}
	defer rows.Close()

	var staff []*models.StaffMember
	for rows.Next() {
		var s models.StaffMember
		if err := rows.Scan(&s.ID, &s.VenueID, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staff member: %w", err)
		}
		staff = append(staff, &s)
	}
	return staff, rows.Err()
}
