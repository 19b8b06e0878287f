// Package aggregate computes the daily working rate from stored observations.
//
// All arithmetic here is pure and deterministic: given the same observations
// it always produces the same rate, which is what makes the daily upsert
// idempotent and retries safe without locking.
package aggregate

import (
	"math"
	"sort"
	"time"

	"shiftwatch/models"
)

// Sample is the set of observations sharing one capture timestamp for one
// venue, reduced to counts. RawWorking is the uncorrected working count among
// on-shift staff; capacity correction happens only when computing ratios,
// never on the stored observations themselves.
type Sample struct {
	CapturedAt time.Time
	OnShift    int
	RawWorking int
}

// CorrectedWorking clamps the raw working count to the venue's physical
// capacity for capacity-constrained venues. Standard venues pass through.
func CorrectedWorking(raw int, venue *models.Venue) int {
	if venue.Kind != models.VenueKindCapacityConstrained || venue.Capacity == nil {
		return raw
	}
	if raw > *venue.Capacity {
		return *venue.Capacity
	}
	return raw
}

// GroupSamples buckets observations by capture timestamp and counts on-shift
// and working staff per bucket. Samples come back in capture order.
func GroupSamples(observations []*models.Observation) []Sample {
	byInstant := make(map[time.Time]*Sample)
	for _, obs := range observations {
		key := obs.CapturedAt.UTC()
		s, ok := byInstant[key]
		if !ok {
			s = &Sample{CapturedAt: key}
			byInstant[key] = s
		}
		if obs.OnShift {
			s.OnShift++
			if obs.Working {
				s.RawWorking++
			}
		}
	}

	samples := make([]Sample, 0, len(byInstant))
	for _, s := range byInstant {
		samples = append(samples, *s)
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].CapturedAt.Before(samples[j].CapturedAt)
	})
	return samples
}

// Ratios converts samples into per-sample utilization ratios with capacity
// correction applied. Samples with nobody on shift carry no signal and are
// excluded rather than counted as zero.
func Ratios(samples []Sample, venue *models.Venue) []float64 {
	ratios := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.OnShift == 0 {
			continue
		}
		corrected := CorrectedWorking(s.RawWorking, venue)
		ratios = append(ratios, float64(corrected)/float64(s.OnShift))
	}
	return ratios
}

// Strategy folds per-sample ratios into a single daily rate. Rate returns nil
// when there are no eligible samples so that "no data" stays distinguishable
// from "0% utilization".
type Strategy interface {
	Name() string
	Rate(ratios []float64) *float64
}

// MeanStrategy is the default: the arithmetic mean of per-sample ratios,
// rounded to four decimal places so recomputation yields a byte-identical
// stored value.
type MeanStrategy struct{}

func (MeanStrategy) Name() string { return "mean" }

func (MeanStrategy) Rate(ratios []float64) *float64 {
	if len(ratios) == 0 {
		return nil
	}
	sum := 0.0
	for _, r := range ratios {
		sum += r
	}
	rate := math.Round(sum/float64(len(ratios))*10000) / 10000
	return &rate
}
