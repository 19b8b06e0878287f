package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"shiftwatch/classify"
	"shiftwatch/events"
	"shiftwatch/extract"
	"shiftwatch/models"
	"shiftwatch/repository"
)

// CollectionOptions selects and forces the scope of one collection cycle.
type CollectionOptions struct {
	// Force collects regardless of business hours. Used by the manual
	// collect subcommand; the scheduled path leaves it false.
	Force bool

	// VenueIDs limits the cycle to specific venues. Empty means all
	// in-scope venues.
	VenueIDs []int64
}

// CollectionConfig carries the tunables of the collection pipeline.
type CollectionConfig struct {
	// Workers bounds how many venues are collected concurrently.
	Workers int

	// Timeout is the deadline for one whole cycle.
	Timeout time.Duration

	// Buffer widens each venue's business hours on both sides when deciding
	// whether the venue is currently collectable.
	Buffer time.Duration

	// Location is the timezone venues operate in.
	Location *time.Location
}

// CollectionService runs the fetch, extract, classify, persist pipeline for
// every in-scope venue. Venues are isolated: one venue failing never stops
// the others, and the cycle's job run records which ones failed.
type CollectionService struct {
	venueRepo  VenueRepository
	staffRepo  StaffRepository
	obsRepo    ObservationRepository
	jobRunRepo JobRunRepository
	fetcher    RosterFetcher
	registry   *extract.Registry
	classifier *classify.Classifier
	bus        *events.Bus
	cfg        CollectionConfig
}

// NewCollectionService creates a new collection service
func NewCollectionService(
	venueRepo VenueRepository,
	staffRepo StaffRepository,
	obsRepo ObservationRepository,
	jobRunRepo JobRunRepository,
	fetcher RosterFetcher,
	registry *extract.Registry,
	classifier *classify.Classifier,
	bus *events.Bus,
	cfg CollectionConfig,
) *CollectionService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &CollectionService{
		venueRepo:  venueRepo,
		staffRepo:  staffRepo,
		obsRepo:    obsRepo,
		jobRunRepo: jobRunRepo,
		fetcher:    fetcher,
		registry:   registry,
		classifier: classifier,
		bus:        bus,
		cfg:        cfg,
	}
}

// RunCycle executes one collection cycle and returns its job run record.
// The returned error covers infrastructure failures only (listing venues,
// recording the run); per-venue failures land in the run's error list.
func (s *CollectionService) RunCycle(ctx context.Context, opts CollectionOptions) (*models.JobRun, error) {
	now := time.Now().In(s.cfg.Location)

	venues, err := s.selectVenues(ctx, opts)
	if err != nil {
		return nil, err
	}

	run := models.NewJobRun(models.JobCollection, now.UTC())
	if err := s.jobRunRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record collection start: %w", err)
	}

	log.WithFields(log.Fields{
		"runID":  run.ID,
		"venues": len(venues),
		"force":  opts.Force,
	}).Info("Starting collection cycle")

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.cfg.Workers)
	)

	for _, venue := range venues {
		if !opts.Force && !venue.WithinBusinessHours(now, s.cfg.Buffer) {
			log.WithFields(log.Fields{
				"venueID": venue.ID,
				"venue":   venue.Name,
			}).Debug("Venue outside business hours, skipping")
			continue
		}

		wg.Add(1)
		go func(venue *models.Venue) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			stored, err := s.collectVenue(ctx, venue)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				run.AddError(fmt.Sprintf("venue %d (%s): %v", venue.ID, venue.Name, err))
				log.WithFields(log.Fields{
					"venueID": venue.ID,
					"venue":   venue.Name,
					"error":   err,
				}).Error("Venue collection failed")
				return
			}
			run.ProcessedCount++
			log.WithFields(log.Fields{
				"venueID":      venue.ID,
				"venue":        venue.Name,
				"observations": stored,
			}).Info("Venue collected")
		}(venue)
	}
	wg.Wait()

	run.Finalize(time.Now().UTC())
	if err := s.jobRunRepo.Finalize(ctx, run); err != nil {
		return run, fmt.Errorf("failed to record collection result: %w", err)
	}

	s.bus.Emit(ctx, events.JobCompletedEvent{
		JobName:  models.JobCollection,
		Outcome:  string(run.Outcome),
		Duration: run.Duration(),
	})
	log.WithFields(log.Fields{
		"runID":     run.ID,
		"outcome":   run.Outcome,
		"processed": run.ProcessedCount,
		"errors":    run.ErrorCount,
	}).Info("Collection cycle finished")
	return run, nil
}

func (s *CollectionService) selectVenues(ctx context.Context, opts CollectionOptions) ([]*models.Venue, error) {
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

// collectVenue runs the pipeline for one venue and returns how many
// observations were stored.
func (s *CollectionService) collectVenue(ctx context.Context, venue *models.Venue) (int, error) {
	if err := venue.Validate(); err != nil {
		return 0, err
	}

	dialect, err := s.registry.Get(venue.SourceDialect)
	if err != nil {
		return 0, err
	}

	page, err := s.fetcher.Fetch(ctx, venue.ID, venue.RosterURL)
	if err != nil {
		return 0, fmt.Errorf("fetch roster: %w", err)
	}

	entries, skipped, err := dialect.Extract(page.Markup)
	if err != nil {
		return 0, fmt.Errorf("extract roster: %w", err)
	}
	if skipped > 0 {
		s.bus.Emit(ctx, events.EntriesSkippedEvent{
			VenueID: venue.ID,
			Dialect: dialect.Name(),
			Skipped: skipped,
		})
	}

	// The registry owns staff rows; observations are stored against the
	// extracted id either way, but an id the registry has never seen is worth
	// surfacing since it usually means a new hire or a renamed profile.
	known, err := s.staffRepo.ListActiveByVenue(ctx, venue.ID)
	if err != nil {
		return 0, fmt.Errorf("load staff roster: %w", err)
	}
	knownIDs := make(map[string]struct{}, len(known))
	for _, member := range known {
		knownIDs[member.ID] = struct{}{}
	}

	stored, failed := 0, 0
	for _, entry := range entries {
		if _, ok := knownIDs[entry.StaffID]; !ok && len(knownIDs) > 0 {
			log.WithFields(log.Fields{
				"venueID": venue.ID,
				"staffID": entry.StaffID,
			}).Info("Observed staff id is not in the registry")
		}
		result := s.classifier.Classify(entry.ShiftTimeText, entry.AvailabilityText, page.CapturedAt.In(s.cfg.Location))

		switch result.Rule {
		case classify.RuleShiftParseFailed:
			s.bus.Emit(ctx, events.ParseFailureEvent{
				VenueID:   venue.ID,
				StaffID:   entry.StaffID,
				ShiftText: entry.ShiftTimeText,
			})
		case classify.RuleNoMarker:
			s.bus.Emit(ctx, events.ClassificationMissEvent{
				VenueID:   venue.ID,
				StaffID:   entry.StaffID,
				AvailText: entry.AvailabilityText,
			})
		}

		obs := &models.Observation{
			VenueID:    venue.ID,
			StaffID:    entry.StaffID,
			CapturedAt: page.CapturedAt,
			OnShift:    result.OnShift,
			Working:    result.Working,
		}
		if err := s.obsRepo.Create(ctx, obs); err != nil {
			if errors.Is(err, repository.ErrDuplicateObservation) {
				log.WithFields(log.Fields{
					"venueID": venue.ID,
					"staffID": entry.StaffID,
				}).Debug("Observation already recorded for this instant")
				continue
			}
			// Per-record isolation: keep storing the rest of the page.
			failed++
			log.WithFields(log.Fields{
				"venueID": venue.ID,
				"staffID": entry.StaffID,
				"error":   err,
			}).Error("Failed to store observation")
			continue
		}
		stored++
		s.bus.Emit(ctx, events.ObservationStoredEvent{
			VenueID: venue.ID,
			OnShift: obs.OnShift,
			Working: obs.Working,
		})
	}
	if failed > 0 {
		return stored, fmt.Errorf("failed to store %d of %d observations", failed, len(entries))
	}
	return stored, nil
}
