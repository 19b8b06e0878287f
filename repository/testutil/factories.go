package testutil

import (
	"context"
	"testing"
	"time"

	"shiftwatch/database"
	"shiftwatch/models"

	"github.com/stretchr/testify/require"
)

// CreateTestVenue creates a standard-kind venue with default values
func CreateTestVenue(name string) *models.Venue {
	now := time.Now()
	return &models.Venue{
		Name:          name,
		Kind:          models.VenueKindStandard,
		OpenTime:      models.TimeOfDay{Hour: 10, Minute: 0},
		CloseTime:     models.TimeOfDay{Hour: 0, Minute: 0},
		RosterURL:     "https://example.test/" + name + "/attend/",
		SourceDialect: "cityheaven",
		InScope:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CreateTestCapacityVenue creates a capacity-constrained venue
func CreateTestCapacityVenue(name string, capacity int) *models.Venue {
	venue := CreateTestVenue(name)
	venue.Kind = models.VenueKindCapacityConstrained
	venue.Capacity = &capacity
	return venue
}

// CreateTestObservation creates an observation with the given classification
func CreateTestObservation(venueID int64, staffID string, capturedAt time.Time, onShift, working bool) *models.Observation {
	return &models.Observation{
		VenueID:    venueID,
		StaffID:    staffID,
		CapturedAt: capturedAt,
		OnShift:    onShift,
		Working:    working,
	}
}

// InsertVenue inserts a venue row directly and returns its generated id.
// Venue rows are registry-owned, so the repository has no write path.
func InsertVenue(t *testing.T, db *database.DB, venue *models.Venue) int64 {
	query := `
		INSERT INTO venues (name, kind, capacity, open_time, close_time,
		                    roster_url, source_dialect, in_scope)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := db.Pool.QueryRow(context.Background(), query,
		venue.Name,
		venue.Kind,
		venue.Capacity,
		venue.OpenTime,
		venue.CloseTime,
		venue.RosterURL,
		venue.SourceDialect,
		venue.InScope,
	).Scan(&venue.ID)
	require.NoError(t, err)
	return venue.ID
}

// InsertStaffMember inserts a staff member row directly.
func InsertStaffMember(t *testing.T, db *database.DB, venueID int64, staffID string) {
	query := `INSERT INTO staff_members (id, venue_id, active) VALUES ($1, $2, true)`
	_, err := db.Pool.Exec(context.Background(), query, staffID, venueID)
	require.NoError(t, err)
}
