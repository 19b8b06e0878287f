package models

import "time"

// DailyRate is the aggregated utilization for one venue on one business day.
// Rate is nil, not zero, when no eligible samples existed: downstream readers
// must be able to tell "no data" from "0% utilization". Rows are upserted
// keyed by (VenueID, Date) and recomputation from the same observations must
// produce the identical row.
type DailyRate struct {
	VenueID     int64     `db:"venue_id"`
	Date        time.Time `db:"rate_date"`
	Rate        *float64  `db:"rate"`
	SampleCount int       `db:"sample_count"`
	ComputedAt  time.Time `db:"computed_at"`
}
