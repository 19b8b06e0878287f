package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestVenue_Validate(t *testing.T) {
	valid := func() *Venue {
		return &Venue{
			ID:            1,
			Name:          "venue-a",
			Kind:          VenueKindStandard,
			OpenTime:      TimeOfDay{Hour: 10},
			CloseTime:     TimeOfDay{Hour: 2},
			RosterURL:     "https://example.test/attend/",
			SourceDialect: "cityheaven",
		}
	}

	t.Run("valid venue", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing roster URL", func(t *testing.T) {
		v := valid()
		v.RosterURL = ""
		assert.Error(t, v.Validate())
	})

	t.Run("missing dialect", func(t *testing.T) {
		v := valid()
		v.SourceDialect = ""
		assert.Error(t, v.Validate())
	})

	t.Run("zero-length business day", func(t *testing.T) {
		v := valid()
		v.CloseTime = v.OpenTime
		assert.Error(t, v.Validate())
	})

	t.Run("capacity constrained without capacity", func(t *testing.T) {
		v := valid()
		v.Kind = VenueKindCapacityConstrained
		assert.Error(t, v.Validate())

		v.Capacity = intPtr(0)
		assert.Error(t, v.Validate())

		v.Capacity = intPtr(6)
		assert.NoError(t, v.Validate())
	})
}

func TestVenue_BusinessWindow(t *testing.T) {
	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	t.Run("day venue", func(t *testing.T) {
		v := &Venue{OpenTime: TimeOfDay{Hour: 9}, CloseTime: TimeOfDay{Hour: 18}}
		open, close := v.BusinessWindow(date)

		assert.False(t, v.Overnight())
		assert.Equal(t, time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC), open)
		assert.Equal(t, time.Date(2026, 8, 20, 18, 0, 0, 0, time.UTC), close)
	})

	t.Run("overnight venue closes the next day", func(t *testing.T) {
		v := &Venue{OpenTime: TimeOfDay{Hour: 10, Minute: 30}, CloseTime: TimeOfDay{Hour: 2}}
		open, close := v.BusinessWindow(date)

		assert.True(t, v.Overnight())
		assert.Equal(t, time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC), open)
		assert.Equal(t, time.Date(2026, 8, 21, 2, 0, 0, 0, time.UTC), close)
	})
}

func TestVenue_WithinBusinessHours(t *testing.T) {
	buffer := 30 * time.Minute
	overnight := &Venue{OpenTime: TimeOfDay{Hour: 10, Minute: 30}, CloseTime: TimeOfDay{Hour: 2}}

	at := func(day, hour, minute int) time.Time {
		return time.Date(2026, 8, day, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"midday", at(20, 14, 0), true},
		{"just before buffered open", at(20, 9, 59), false},
		{"inside opening buffer", at(20, 10, 5), true},
		{"post-midnight tail", at(21, 1, 30), true},
		{"inside closing buffer past midnight", at(21, 2, 15), true},
		{"closed mid-morning", at(21, 4, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, overnight.WithinBusinessHours(tt.now, buffer))
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		tod, err := ParseTimeOfDay("10:30")
		require.NoError(t, err)
		assert.Equal(t, TimeOfDay{Hour: 10, Minute: 30}, tod)
		assert.Equal(t, 630, tod.Minutes())
	})

	t.Run("invalid", func(t *testing.T) {
		for _, s := range []string{"", "25:00", "10:61", "1030", "ten thirty"} {
			_, err := ParseTimeOfDay(s)
			assert.Error(t, err, s)
		}
	})
}
