package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"shiftwatch/aggregate"
	"shiftwatch/events"
	"shiftwatch/models"
)

// AggregationOptions selects the scope of one aggregation pass.
type AggregationOptions struct {
	// TargetDate is the business day to aggregate. Zero means "the most
	// recently closed business day per venue".
	TargetDate time.Time

	// Force recomputes even when a successful run for the venue and day
	// already exists. The arithmetic is deterministic, so forcing is safe.
	Force bool

	// VenueIDs limits the pass to specific venues. Empty means all in-scope
	// venues.
	VenueIDs []int64
}

// AggregationConfig carries the tunables of the aggregation pass.
type AggregationConfig struct {
	// Buffer is how long after a venue's close the business day must have
	// been over before it is aggregated, leaving room for late samples.
	Buffer time.Duration

	// Location is the timezone business days are anchored in.
	Location *time.Location
}

// VenueSummary reports the outcome of one venue's aggregation.
type VenueSummary struct {
	VenueID     int64
	TargetDate  time.Time
	Rate        *float64
	SampleCount int
	Skipped     bool
	Err         error
}

// AggregationService computes capacity-corrected daily working rates from
// stored observations. Eligibility is derived from job run rows rather than
// in-process state, so a restarted process resumes cleanly.
type AggregationService struct {
	venueRepo  VenueRepository
	obsRepo    ObservationRepository
	rateRepo   DailyRateRepository
	jobRunRepo JobRunRepository
	strategy   aggregate.Strategy
	bus        *events.Bus
	cfg        AggregationConfig
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(
	venueRepo VenueRepository,
	obsRepo ObservationRepository,
	rateRepo DailyRateRepository,
	jobRunRepo JobRunRepository,
	strategy aggregate.Strategy,
	bus *events.Bus,
	cfg AggregationConfig,
) *AggregationService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if strategy == nil {
		strategy = aggregate.MeanStrategy{}
	}
	return &AggregationService{
		venueRepo:  venueRepo,
		obsRepo:    obsRepo,
		rateRepo:   rateRepo,
		jobRunRepo: jobRunRepo,
		strategy:   strategy,
		bus:        bus,
		cfg:        cfg,
	}
}

// RunPass aggregates each selected venue's target day. Venues are isolated:
// one failing venue never stops the others. The summaries report per-venue
// outcomes; the error covers venue selection only.
func (s *AggregationService) RunPass(ctx context.Context, opts AggregationOptions) ([]VenueSummary, error) {
	venues, err := s.selectVenues(ctx, opts)
	if err != nil {
		return nil, err
	}
	now := time.Now().In(s.cfg.Location)

	summaries := make([]VenueSummary, 0, len(venues))
	for _, venue := range venues {
		summary := s.aggregateVenue(ctx, venue, now, opts)
		summaries = append(summaries, summary)
		if summary.Err != nil {
			log.WithFields(log.Fields{
				"venueID": venue.ID,
				"venue":   venue.Name,
				"error":   summary.Err,
			}).Error("Venue aggregation failed")
		}
	}
	return summaries, nil
}

func (s *AggregationService) selectVenues(ctx context.Context, opts AggregationOptions) ([]*models.Venue, error) {
	if len(opts.VenueIDs) == 0 {
		venues, err := s.venueRepo.ListInScope(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list venues: %w", err)
		}
		return venues, nil
	}

	venues := make([]*models.Venue, 0, len(opts.VenueIDs))
	for _, id := range opts.VenueIDs {
		venue, err := s.venueRepo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get venue %d: %w", id, err)
		}
		if venue == nil {
			return nil, fmt.Errorf("venue %d not found", id)
		}
		venues = append(venues, venue)
	}
	return venues, nil
}

func (s *AggregationService) aggregateVenue(ctx context.Context, venue *models.Venue, now time.Time, opts AggregationOptions) VenueSummary {
	summary := VenueSummary{VenueID: venue.ID}

	targetDate := opts.TargetDate
	if targetDate.IsZero() {
		var ok bool
		targetDate, ok = s.latestClosedDay(venue, now)
		if !ok {
			summary.Skipped = true
			return summary
		}
	} else {
		targetDate = dateOnly(targetDate.In(s.cfg.Location))
		if _, close := venue.BusinessWindow(targetDate); !opts.Force && now.Before(close.Add(s.cfg.Buffer)) {
			summary.Err = fmt.Errorf("business day %s is not closed yet", targetDate.Format("2006-01-02"))
			return summary
		}
	}
	summary.TargetDate = targetDate

	if !opts.Force {
		prior, err := s.jobRunRepo.LatestForVenueDate(ctx, models.JobAggregation, venue.ID, targetDate)
		if err != nil {
			summary.Err = err
			return summary
		}
		if prior != nil && prior.Outcome == models.OutcomeSuccess {
			summary.Skipped = true
			return summary
		}
	}

	rate, err := s.aggregateDay(ctx, venue, targetDate)
	if err != nil {
		summary.Err = err
		return summary
	}
	summary.Rate = rate.Rate
	summary.SampleCount = rate.SampleCount
	return summary
}

// latestClosedDay returns the most recent business day whose window closed at
// least Buffer ago, or false when no day has closed yet.
func (s *AggregationService) latestClosedDay(venue *models.Venue, now time.Time) (time.Time, bool) {
	for offset := 0; offset >= -2; offset-- {
		date := dateOnly(now.AddDate(0, 0, offset))
		_, close := venue.BusinessWindow(date)
		if !now.Before(close.Add(s.cfg.Buffer)) {
			return date, true
		}
	}
	return time.Time{}, false
}

// aggregateDay computes and stores the daily rate for one venue and business
// day, recording a job run for the attempt.
func (s *AggregationService) aggregateDay(ctx context.Context, venue *models.Venue, targetDate time.Time) (*models.DailyRate, error) {
	run := models.NewJobRun(models.JobAggregation, time.Now().UTC())
	run.VenueID = &venue.ID
	run.TargetDate = &targetDate
	if err := s.jobRunRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record aggregation start: %w", err)
	}

	rate, err := s.computeDay(ctx, venue, targetDate)
	if err != nil {
		run.AddError(err.Error())
	} else {
		run.ProcessedCount = rate.SampleCount
	}
	run.Finalize(time.Now().UTC())
	if ferr := s.jobRunRepo.Finalize(ctx, run); ferr != nil {
		log.WithFields(log.Fields{
			"runID": run.ID,
			"error": ferr,
		}).Error("Failed to record aggregation result")
	}

	s.bus.Emit(ctx, events.JobCompletedEvent{
		JobName:  models.JobAggregation,
		Outcome:  string(run.Outcome),
		Duration: run.Duration(),
	})
	if err != nil {
		return nil, err
	}

	logFields := log.Fields{
		"venueID":    venue.ID,
		"venue":      venue.Name,
		"targetDate": targetDate.Format("2006-01-02"),
		"samples":    rate.SampleCount,
	}
	if rate.Rate != nil {
		logFields["rate"] = *rate.Rate
	}
	log.WithFields(logFields).Info("Daily rate computed")
	return rate, nil
}

func (s *AggregationService) computeDay(ctx context.Context, venue *models.Venue, targetDate time.Time) (*models.DailyRate, error) {
	open, close := venue.BusinessWindow(targetDate)

	observations, err := s.obsRepo.ListForVenueWindow(ctx, venue.ID, open, close)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations: %w", err)
	}

	samples := aggregate.GroupSamples(observations)
	ratios := aggregate.Ratios(samples, venue)

	// Sample count is the number of eligible samples. A capture instant where
	// nobody was on shift contributes no ratio, so a day of empty samples
	// stores a null rate with count 0, same as a day with no observations.
	rate := &models.DailyRate{
		VenueID:     venue.ID,
		Date:        targetDate,
		Rate:        s.strategy.Rate(ratios),
		SampleCount: len(ratios),
		ComputedAt:  time.Now().UTC(),
	}
	if err := s.rateRepo.Upsert(ctx, rate); err != nil {
		return nil, err
	}
	return rate, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
