package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftwatch/models"
)

func intPtr(v int) *int { return &v }

func standardVenue() *models.Venue {
	return &models.Venue{ID: 1, Kind: models.VenueKindStandard}
}

func constrainedVenue(capacity int) *models.Venue {
	return &models.Venue{ID: 2, Kind: models.VenueKindCapacityConstrained, Capacity: intPtr(capacity)}
}

func TestCorrectedWorking(t *testing.T) {
	t.Run("clamps above capacity", func(t *testing.T) {
		assert.Equal(t, 6, CorrectedWorking(8, constrainedVenue(6)))
	})

	t.Run("leaves counts at or below capacity alone", func(t *testing.T) {
		assert.Equal(t, 5, CorrectedWorking(5, constrainedVenue(6)))
		assert.Equal(t, 6, CorrectedWorking(6, constrainedVenue(6)))
	})

	t.Run("standard venues pass through", func(t *testing.T) {
		assert.Equal(t, 8, CorrectedWorking(8, standardVenue()))
	})
}

func obs(staffID string, at time.Time, onShift, working bool) *models.Observation {
	return &models.Observation{VenueID: 1, StaffID: staffID, CapturedAt: at, OnShift: onShift, Working: working}
}

func TestGroupSamples(t *testing.T) {
	t0 := time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(30 * time.Minute)

	observations := []*models.Observation{
		obs("a", t1, true, true),
		obs("b", t1, true, false),
		obs("a", t0, true, true),
		obs("b", t0, true, true),
		obs("c", t0, false, false),
	}

	samples := GroupSamples(observations)
	require.Len(t, samples, 2)

	// Capture order regardless of input order.
	assert.Equal(t, t0, samples[0].CapturedAt)
	assert.Equal(t, 2, samples[0].OnShift, "off-shift staff are not counted")
	assert.Equal(t, 2, samples[0].RawWorking)

	assert.Equal(t, t1, samples[1].CapturedAt)
	assert.Equal(t, 2, samples[1].OnShift)
	assert.Equal(t, 1, samples[1].RawWorking)
}

func TestRatios(t *testing.T) {
	t.Run("capacity correction applies per sample", func(t *testing.T) {
		// 8 on shift, 8 working, capacity 6: the sample ratio is 6/8,
		// not 8/8.
		samples := []Sample{{OnShift: 8, RawWorking: 8}}
		ratios := Ratios(samples, constrainedVenue(6))
		require.Len(t, ratios, 1)
		assert.InDelta(t, 0.75, ratios[0], 1e-9)
	})

	t.Run("empty samples are excluded, not zero", func(t *testing.T) {
		samples := []Sample{
			{OnShift: 0, RawWorking: 0},
			{OnShift: 4, RawWorking: 2},
		}
		ratios := Ratios(samples, standardVenue())
		require.Len(t, ratios, 1)
		assert.InDelta(t, 0.5, ratios[0], 1e-9)
	})
}

func TestMeanStrategy(t *testing.T) {
	s := MeanStrategy{}

	t.Run("no samples yields nil, never zero", func(t *testing.T) {
		assert.Nil(t, s.Rate(nil))
		assert.Nil(t, s.Rate([]float64{}))
	})

	t.Run("mean of ratios", func(t *testing.T) {
		rate := s.Rate([]float64{0.5, 1.0})
		require.NotNil(t, rate)
		assert.InDelta(t, 0.75, *rate, 1e-9)
	})

	t.Run("rounding keeps recomputation identical", func(t *testing.T) {
		a := s.Rate([]float64{1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0})
		b := s.Rate([]float64{1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0})
		require.NotNil(t, a)
		require.NotNil(t, b)
		assert.Equal(t, *a, *b)
		assert.Equal(t, 0.3333, *a)
	})
}
