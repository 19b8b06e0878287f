package models

import "time"

// Observation is one point-in-time reading for one staff member: whether they
// were scheduled to be present at the capture instant, and whether they were
// inferred to be engaged. Observations are immutable once written; aggregation
// only reads them. Invariant: OnShift=false implies Working=false.
type Observation struct {
	ID         int64     `db:"id"`
	VenueID    int64     `db:"venue_id"`
	StaffID    string    `db:"staff_id"`
	CapturedAt time.Time `db:"captured_at"`
	OnShift    bool      `db:"on_shift"`
	Working    bool      `db:"working"`
	CreatedAt  time.Time `db:"created_at"`
}
