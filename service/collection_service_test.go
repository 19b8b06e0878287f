package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shiftwatch/classify"
	"shiftwatch/events"
	"shiftwatch/extract"
	"shiftwatch/fetch"
	"shiftwatch/models"
	"shiftwatch/repository"
)

// Two staff entries: 100 is mid-shift and fully booked, 200 is off today.
const rosterMarkup = `
<div class="sugunavi_wrapper">
  <a href="/tokyo/shop/girlid-100/"></a>
  <p class="shukkin_detail_time_style2">10:00～23:00</p>
  <div class="sugunavibox"><span class="title">受付終了</span></div>
</div>
<div class="sugunavi_wrapper">
  <a href="/tokyo/shop/girlid-200/"></a>
  <p class="shukkin_detail_time_style2">お休み</p>
  <div class="sugunavibox"><span class="title">-</span></div>
</div>`

var captureInstant = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func testVenue(id int64, name string) *models.Venue {
	return &models.Venue{
		ID:            id,
		Name:          name,
		Kind:          models.VenueKindStandard,
		OpenTime:      models.TimeOfDay{Hour: 10},
		CloseTime:     models.TimeOfDay{Hour: 2},
		RosterURL:     "https://example.test/" + name + "/attend/",
		SourceDialect: "cityheaven",
		InScope:       true,
	}
}

type collectionFixture struct {
	venueRepo  *MockVenueRepository
	staffRepo  *MockStaffRepository
	obsRepo    *MockObservationRepository
	jobRunRepo *MockJobRunRepository
	fetcher    *MockRosterFetcher
	service    *CollectionService
}

func newCollectionFixture() *collectionFixture {
	f := &collectionFixture{
		venueRepo:  new(MockVenueRepository),
		staffRepo:  new(MockStaffRepository),
		obsRepo:    new(MockObservationRepository),
		jobRunRepo: new(MockJobRunRepository),
		fetcher:    new(MockRosterFetcher),
	}
	f.service = NewCollectionService(
		f.venueRepo,
		f.staffRepo,
		f.obsRepo,
		f.jobRunRepo,
		f.fetcher,
		extract.NewRegistry(),
		classify.New(classify.DefaultOptions()),
		events.NewBus(),
		CollectionConfig{
			Workers:  2,
			Buffer:   30 * time.Minute,
			Location: time.UTC,
		},
	)
	f.jobRunRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.JobRun")).Return(nil)
	f.jobRunRepo.On("Finalize", mock.Anything, mock.AnythingOfType("*models.JobRun")).Return(nil)
	f.staffRepo.On("ListActiveByVenue", mock.Anything, mock.Anything).Return([]*models.StaffMember{}, nil)
	return f
}

func TestCollectionService_RunCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("stores classified observations", func(t *testing.T) {
		f := newCollectionFixture()
		venue := testVenue(1, "venue-a")

		f.venueRepo.On("ListInScope", mock.Anything).Return([]*models.Venue{venue}, nil)
		f.fetcher.On("Fetch", mock.Anything, int64(1), venue.RosterURL).
			Return(&fetch.Result{Markup: rosterMarkup, CapturedAt: captureInstant}, nil)

		var mu sync.Mutex
		var stored []*models.Observation
		f.obsRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Observation")).
			Return(nil).
			Run(func(args mock.Arguments) {
				mu.Lock()
				defer mu.Unlock()
				stored = append(stored, args.Get(1).(*models.Observation))
			})

		run, err := f.service.RunCycle(ctx, CollectionOptions{Force: true})
		require.NoError(t, err)

		assert.Equal(t, models.OutcomeSuccess, run.Outcome)
		assert.Equal(t, 1, run.ProcessedCount)
		assert.Zero(t, run.ErrorCount)

		require.Len(t, stored, 2)
		byStaff := map[string]*models.Observation{}
		for _, obs := range stored {
			byStaff[obs.StaffID] = obs
			assert.Equal(t, int64(1), obs.VenueID)
			assert.Equal(t, captureInstant, obs.CapturedAt)
		}
		// Fully booked at noon with hours left on the shift means engaged.
		require.Contains(t, byStaff, "100")
		assert.True(t, byStaff["100"].OnShift)
		assert.True(t, byStaff["100"].Working)
		// Rest sentinel means not scheduled at all.
		require.Contains(t, byStaff, "200")
		assert.False(t, byStaff["200"].OnShift)
		assert.False(t, byStaff["200"].Working)

		f.jobRunRepo.AssertExpectations(t)
	})

	t.Run("venue failure is isolated", func(t *testing.T) {
		f := newCollectionFixture()
		healthy := testVenue(1, "venue-a")
		broken := testVenue(2, "venue-b")

		f.venueRepo.On("ListInScope", mock.Anything).Return([]*models.Venue{healthy, broken}, nil)
		f.fetcher.On("Fetch", mock.Anything, int64(1), healthy.RosterURL).
			Return(&fetch.Result{Markup: rosterMarkup, CapturedAt: captureInstant}, nil)
		f.fetcher.On("Fetch", mock.Anything, int64(2), broken.RosterURL).
			Return(nil, fmt.Errorf("connection refused"))
		f.obsRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		run, err := f.service.RunCycle(ctx, CollectionOptions{Force: true})
		require.NoError(t, err)

		assert.Equal(t, models.OutcomePartial, run.Outcome)
		assert.Equal(t, 1, run.ProcessedCount)
		assert.Equal(t, 1, run.ErrorCount)
		require.Len(t, run.Errors, 1)
		assert.Contains(t, run.Errors[0], "venue 2")
		assert.Contains(t, run.Errors[0], "connection refused")
	})

	t.Run("duplicate observations are tolerated", func(t *testing.T) {
		f := newCollectionFixture()
		venue := testVenue(1, "venue-a")

		f.venueRepo.On("ListInScope", mock.Anything).Return([]*models.Venue{venue}, nil)
		f.fetcher.On("Fetch", mock.Anything, int64(1), venue.RosterURL).
			Return(&fetch.Result{Markup: rosterMarkup, CapturedAt: captureInstant}, nil)
		f.obsRepo.On("Create", mock.Anything, mock.Anything).
			Return(fmt.Errorf("%w: replay", repository.ErrDuplicateObservation))

		run, err := f.service.RunCycle(ctx, CollectionOptions{Force: true})
		require.NoError(t, err)

		assert.Equal(t, models.OutcomeSuccess, run.Outcome)
		assert.Equal(t, 1, run.ProcessedCount)
	})

	t.Run("store failure is isolated per record", func(t *testing.T) {
		f := newCollectionFixture()
		venue := testVenue(1, "venue-a")

		f.venueRepo.On("ListInScope", mock.Anything).Return([]*models.Venue{venue}, nil)
		f.fetcher.On("Fetch", mock.Anything, int64(1), venue.RosterURL).
			Return(&fetch.Result{Markup: rosterMarkup, CapturedAt: captureInstant}, nil)
		f.obsRepo.On("Create", mock.Anything, mock.Anything).
			Return(fmt.Errorf("db down")).Once()
		f.obsRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		run, err := f.service.RunCycle(ctx, CollectionOptions{Force: true})
		require.NoError(t, err)

		// The second observation was still attempted and stored.
		f.obsRepo.AssertNumberOfCalls(t, "Create", 2)
		assert.Equal(t, models.OutcomeFailed, run.Outcome)
		require.Len(t, run.Errors, 1)
		assert.Contains(t, run.Errors[0], "1 of 2")
	})

	t.Run("unknown dialect fails the venue", func(t *testing.T) {
		f := newCollectionFixture()
		venue := testVenue(1, "venue-a")
		venue.SourceDialect = "not-a-site"

		f.venueRepo.On("ListInScope", mock.Anything).Return([]*models.Venue{venue}, nil)

		run, err := f.service.RunCycle(ctx, CollectionOptions{Force: true})
		require.NoError(t, err)

		assert.Equal(t, models.OutcomeFailed, run.Outcome)
		require.Len(t, run.Errors, 1)
		assert.Contains(t, run.Errors[0], "unknown source dialect")
		f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("closed venues are skipped without force", func(t *testing.T) {
		f := newCollectionFixture()
		venue := testVenue(1, "venue-a")
		// Put the window a few hours ahead of the wall clock so the venue is
		// closed right now no matter when the test runs.
		ahead := time.Now().UTC().Add(3 * time.Hour)
		venue.OpenTime = models.TimeOfDay{Hour: ahead.Hour(), Minute: ahead.Minute()}
		venue.CloseTime = models.TimeOfDay{Hour: ahead.Add(time.Hour).Hour(), Minute: ahead.Minute()}

		f.venueRepo.On("ListInScope", mock.Anything).Return([]*models.Venue{venue}, nil)

		run, err := f.service.RunCycle(ctx, CollectionOptions{})
		require.NoError(t, err)

		assert.Equal(t, models.OutcomeSuccess, run.Outcome)
		assert.Zero(t, run.ProcessedCount)
		f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("explicit venue filter", func(t *testing.T) {
		f := newCollectionFixture()
		venue := testVenue(7, "venue-g")

		f.venueRepo.On("GetByID", mock.Anything, int64(7)).Return(venue, nil)
		f.fetcher.On("Fetch", mock.Anything, int64(7), venue.RosterURL).
			Return(&fetch.Result{Markup: rosterMarkup, CapturedAt: captureInstant}, nil)
		f.obsRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		run, err := f.service.RunCycle(ctx, CollectionOptions{Force: true, VenueIDs: []int64{7}})
		require.NoError(t, err)

		assert.Equal(t, models.OutcomeSuccess, run.Outcome)
		assert.Equal(t, 1, run.ProcessedCount)
		f.venueRepo.AssertNotCalled(t, "ListInScope", mock.Anything)
	})
}
