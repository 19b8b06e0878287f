package repository

import (
	"context"
	"testing"

	"shiftwatch/models"
	"shiftwatch/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVenueRepository_GetByID(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewVenueRepository(testDB.DB)
	ctx := context.Background()

	t.Run("venue not found", func(t *testing.T) {
		venue, err := repo.GetByID(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, venue)
	})

	t.Run("standard venue round trip", func(t *testing.T) {
		seeded := testutil.CreateTestVenue("venue-a")
		seeded.OpenTime = models.TimeOfDay{Hour: 10, Minute: 30}
		seeded.CloseTime = models.TimeOfDay{Hour: 2, Minute: 0}
		id := testutil.InsertVenue(t, testDB.DB, seeded)

		venue, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, venue)

		assert.Equal(t, "venue-a", venue.Name)
		assert.Equal(t, models.VenueKindStandard, venue.Kind)
		assert.Nil(t, venue.Capacity)
		assert.Equal(t, models.TimeOfDay{Hour: 10, Minute: 30}, venue.OpenTime)
		assert.Equal(t, models.TimeOfDay{Hour: 2, Minute: 0}, venue.CloseTime)
		assert.True(t, venue.Overnight())
		assert.Equal(t, "cityheaven", venue.SourceDialect)
	})

	t.Run("capacity constrained venue", func(t *testing.T) {
		id := testutil.InsertVenue(t, testDB.DB, testutil.CreateTestCapacityVenue("venue-b", 6))

		venue, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, venue)

		assert.Equal(t, models.VenueKindCapacityConstrained, venue.Kind)
		require.NotNil(t, venue.Capacity)
		assert.Equal(t, 6, *venue.Capacity)
	})
}

func TestVenueRepository_ListInScope(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewVenueRepository(testDB.DB)
	ctx := context.Background()

	t.Run("empty roster", func(t *testing.T) {
		venues, err := repo.ListInScope(ctx)
		require.NoError(t, err)
		assert.Empty(t, venues)
	})

	t.Run("excludes out-of-scope venues", func(t *testing.T) {
		inScope := testutil.CreateTestVenue("venue-a")
		retired := testutil.CreateTestVenue("venue-b")
		retired.InScope = false

		aID := testutil.InsertVenue(t, testDB.DB, inScope)
		testutil.InsertVenue(t, testDB.DB, retired)
		cID := testutil.InsertVenue(t, testDB.DB, testutil.CreateTestVenue("venue-c"))

		venues, err := repo.ListInScope(ctx)
		require.NoError(t, err)
		require.Len(t, venues, 2)
		assert.Equal(t, aID, venues[0].ID)
		assert.Equal(t, cID, venues[1].ID)
	})
}
