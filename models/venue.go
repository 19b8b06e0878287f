package models

import (
	"fmt"
	"time"
)

// VenueKind distinguishes venues whose simultaneous working count is bounded
// by physical capacity from ordinary ones.
type VenueKind string

const (
	VenueKindStandard            VenueKind = "standard"
	VenueKindCapacityConstrained VenueKind = "capacity_constrained"
)

// Venue is a staffing location whose roster page is periodically polled.
// Venue rows are owned by the external registry; this service reads them only.
type Venue struct {
	ID            int64      `db:"id"`
	Name          string     `db:"name"`
	Kind          VenueKind  `db:"kind"`
	Capacity      *int       `db:"capacity"`
	OpenTime      TimeOfDay  `db:"open_time"`
	CloseTime     TimeOfDay  `db:"close_time"`
	RosterURL     string     `db:"roster_url"`
	SourceDialect string     `db:"source_dialect"`
	InScope       bool       `db:"in_scope"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// Validate reports configuration problems that make the venue unusable for a
// run. A failing venue is skipped; it never aborts the whole cycle.
func (v *Venue) Validate() error {
	if v.RosterURL == "" {
		return fmt.Errorf("venue %d: roster URL is empty", v.ID)
	}
	if v.SourceDialect == "" {
		return fmt.Errorf("venue %d: source dialect is empty", v.ID)
	}
	if v.OpenTime == v.CloseTime {
		return fmt.Errorf("venue %d: open and close time are both %s", v.ID, v.OpenTime)
	}
	if v.Kind == VenueKindCapacityConstrained {
		if v.Capacity == nil || *v.Capacity <= 0 {
			return fmt.Errorf("venue %d: capacity-constrained venue has no usable capacity", v.ID)
		}
	}
	return nil
}

// Overnight reports whether the venue's business hours cross midnight
// (close is numerically at or before open).
func (v *Venue) Overnight() bool {
	return v.CloseTime.Minutes() <= v.OpenTime.Minutes()
}

// BusinessWindow returns the absolute [open, close) window for the business
// day that starts on date. For overnight venues the close belongs to the
// following calendar day.
func (v *Venue) BusinessWindow(date time.Time) (time.Time, time.Time) {
	open := v.OpenTime.On(date)
	close := v.CloseTime.On(date)
	if v.Overnight() {
		close = close.AddDate(0, 0, 1)
	}
	return open, close
}

// WithinBusinessHours reports whether now falls inside the venue's business
// hours widened by buffer on both sides, handling midnight-crossing hours.
func (v *Venue) WithinBusinessHours(now time.Time, buffer time.Duration) bool {
	// Test against the window anchored on today and on yesterday: for an
	// overnight venue the post-midnight tail belongs to yesterday's window.
	for _, dayOffset := range []int{0, -1} {
		open, close := v.BusinessWindow(now.AddDate(0, 0, dayOffset))
		if !now.Before(open.Add(-buffer)) && now.Before(close.Add(buffer)) {
			return true
		}
	}
	return false
}
