package models

import "time"

// StaffMember is an individual roster entry at a venue. Rows are owned by the
// external registry; the core only joins observations against the id. Staff
// ids are the source site's identifiers, so they stay opaque strings.
type StaffMember struct {
	ID        string    `db:"id"`
	VenueID   int64     `db:"venue_id"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}
