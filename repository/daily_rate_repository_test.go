package repository

import (
	"context"
	"testing"
	"time"

	"shiftwatch/models"
	"shiftwatch/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyRateRepository_Upsert(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewDailyRateRepository(testDB.DB)
	ctx := context.Background()

	venueID := testutil.InsertVenue(t, testDB.DB, testutil.CreateTestVenue("venue-a"))
	rateDate := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	t.Run("insert then read back", func(t *testing.T) {
		rate := 0.75
		err := repo.Upsert(ctx, &models.DailyRate{
			VenueID:     venueID,
			Date:        rateDate,
			Rate:        &rate,
			SampleCount: 21,
			ComputedAt:  time.Now().UTC(),
		})
		require.NoError(t, err)

		got, err := repo.GetByVenueDate(ctx, venueID, rateDate)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NotNil(t, got.Rate)
		assert.Equal(t, 0.75, *got.Rate)
		assert.Equal(t, 21, got.SampleCount)
	})

	t.Run("second upsert replaces the row", func(t *testing.T) {
		rate := 0.5
		err := repo.Upsert(ctx, &models.DailyRate{
			VenueID:     venueID,
			Date:        rateDate,
			Rate:        &rate,
			SampleCount: 40,
			ComputedAt:  time.Now().UTC(),
		})
		require.NoError(t, err)

		got, err := repo.GetByVenueDate(ctx, venueID, rateDate)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NotNil(t, got.Rate)
		assert.Equal(t, 0.5, *got.Rate)
		assert.Equal(t, 40, got.SampleCount)
	})

	t.Run("nil rate distinct from zero", func(t *testing.T) {
		noSamplesDate := rateDate.AddDate(0, 0, 1)
		err := repo.Upsert(ctx, &models.DailyRate{
			VenueID:     venueID,
			Date:        noSamplesDate,
			Rate:        nil,
			SampleCount: 0,
			ComputedAt:  time.Now().UTC(),
		})
		require.NoError(t, err)

		got, err := repo.GetByVenueDate(ctx, venueID, noSamplesDate)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.Rate)
		assert.Zero(t, got.SampleCount)
	})

	t.Run("missing row returns nil", func(t *testing.T) {
		got, err := repo.GetByVenueDate(ctx, venueID, rateDate.AddDate(0, 1, 0))
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
