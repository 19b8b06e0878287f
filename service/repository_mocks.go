package service

import (
	"context"
	"time"

	"shiftwatch/fetch"
	"shiftwatch/models"

	"github.com/stretchr/testify/mock"
)

// MockRosterFetcher is a mock implementation of RosterFetcher
type MockRosterFetcher struct {
	mock.Mock
}

func (m *MockRosterFetcher) Fetch(ctx context.Context, venueID int64, url string) (*fetch.Result, error) {
	args := m.Called(ctx, venueID, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fetch.Result), args.Error(1)
}

// MockVenueRepository is a mock implementation of VenueRepository
type MockVenueRepository struct {
	mock.Mock
}

func (m *MockVenueRepository) GetByID(ctx context.Context, id int64) (*models.Venue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Venue), args.Error(1)
}

func (m *MockVenueRepository) ListInScope(ctx context.Context) ([]*models.Venue, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Venue), args.Error(1)
}

// MockStaffRepository is a mock implementation of StaffRepository
type MockStaffRepository struct {
	mock.Mock
}

func (m *MockStaffRepository) ListActiveByVenue(ctx context.Context, venueID int64) ([]*models.StaffMember, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StaffMember), args.Error(1)
}

// MockObservationRepository is a mock implementation of ObservationRepository
type MockObservationRepository struct {
	mock.Mock
}

func (m *MockObservationRepository) Create(ctx context.Context, obs *models.Observation) error {
	args := m.Called(ctx, obs)
	return args.Error(0)
}

func (m *MockObservationRepository) ListForVenueWindow(ctx context.Context, venueID int64, from, to time.Time) ([]*models.Observation, error) {
	args := m.Called(ctx, venueID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Observation), args.Error(1)
}

// MockDailyRateRepository is a mock implementation of DailyRateRepository
type MockDailyRateRepository struct {
	mock.Mock
}

func (m *MockDailyRateRepository) Upsert(ctx context.Context, rate *models.DailyRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

func (m *MockDailyRateRepository) GetByVenueDate(ctx context.Context, venueID int64, date time.Time) (*models.DailyRate, error) {
	args := m.Called(ctx, venueID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyRate), args.Error(1)
}

// MockJobRunRepository is a mock implementation of JobRunRepository
type MockJobRunRepository struct {
	mock.Mock
}

func (m *MockJobRunRepository) Create(ctx context.Context, run *models.JobRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockJobRunRepository) Finalize(ctx context.Context, run *models.JobRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockJobRunRepository) LatestByName(ctx context.Context, jobName string) (*models.JobRun, error) {
	args := m.Called(ctx, jobName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobRun), args.Error(1)
}

func (m *MockJobRunRepository) LatestForVenueDate(ctx context.Context, jobName string, venueID int64, targetDate time.Time) (*models.JobRun, error) {
	args := m.Called(ctx, jobName, venueID, targetDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobRun), args.Error(1)
}
