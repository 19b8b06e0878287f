// Package scheduler drives the periodic collection and aggregation jobs.
//
// The cron entries only decide when to look; whether a job actually runs is
// derived from the database each time (business hours for collection, job run
// history for aggregation). The process can be restarted at any point without
// double-running or missing a day.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"shiftwatch/models"
	"shiftwatch/service"
)

// Config carries the scheduling tunables.
type Config struct {
	// PollInterval is the spacing between collection cycles.
	PollInterval time.Duration

	// CollectionBuffer widens business hours when gating collection.
	CollectionBuffer time.Duration

	// SweepInterval is how often the aggregation sweep looks for business
	// days that have closed and are still unaggregated.
	SweepInterval time.Duration

	// Location is the timezone gating decisions are made in.
	Location *time.Location
}

// Scheduler owns the cron entries for both jobs.
type Scheduler struct {
	collection  *service.CollectionService
	aggregation *service.AggregationService
	venueRepo   service.VenueRepository
	jobRunRepo  service.JobRunRepository
	cfg         Config

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. Start must be called to arm the entries.
func New(
	collection *service.CollectionService,
	aggregation *service.AggregationService,
	venueRepo service.VenueRepository,
	jobRunRepo service.JobRunRepository,
	cfg Config,
) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		collection:  collection,
		aggregation: aggregation,
		venueRepo:   venueRepo,
		jobRunRepo:  jobRunRepo,
		cfg:         cfg,
	}
}

// Start arms the cron entries and runs one collection check immediately so a
// restart mid-business-day does not wait a full interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.cron = cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	s.cron.Schedule(cron.Every(s.cfg.PollInterval), cron.FuncJob(s.collectionTick))
	s.cron.Schedule(cron.Every(s.cfg.SweepInterval), cron.FuncJob(s.aggregationTick))
	s.cron.Start()

	go s.collectionTick()

	log.WithFields(log.Fields{
		"pollInterval":  s.cfg.PollInterval,
		"sweepInterval": s.cfg.SweepInterval,
		"timezone":      s.cfg.Location.String(),
	}).Info("Scheduler started")
	return nil
}

// Stop disarms the entries and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	log.Info("Scheduler stopped")
}

func (s *Scheduler) collectionTick() {
	if s.ctx.Err() != nil {
		return
	}
	now := time.Now().In(s.cfg.Location)

	venues, err := s.venueRepo.ListInScope(s.ctx)
	if err != nil {
		log.WithError(err).Error("Collection tick: failed to list venues")
		return
	}
	if !AnyVenueOpen(venues, now, s.cfg.CollectionBuffer) {
		log.Debug("Collection tick: no venue inside business hours")
		return
	}

	lastRun, err := s.jobRunRepo.LatestByName(s.ctx, models.JobCollection)
	if err != nil {
		log.WithError(err).Error("Collection tick: failed to read last run")
		return
	}
	if !CollectionDue(now, lastRun, s.cfg.PollInterval) {
		log.Debug("Collection tick: last cycle is recent enough")
		return
	}

	if _, err := s.collection.RunCycle(s.ctx, service.CollectionOptions{}); err != nil {
		log.WithError(err).Error("Collection cycle failed")
	}
}

func (s *Scheduler) aggregationTick() {
	if s.ctx.Err() != nil {
		return
	}
	// The service decides per venue which day is closed and unaggregated, so
	// the tick itself is unconditional.
	if _, err := s.aggregation.RunPass(s.ctx, service.AggregationOptions{}); err != nil {
		log.WithError(err).Error("Aggregation sweep failed")
	}
}

// AnyVenueOpen reports whether at least one venue's buffered business hours
// contain now. With every venue closed a collection cycle would store nothing.
func AnyVenueOpen(venues []*models.Venue, now time.Time, buffer time.Duration) bool {
	for _, venue := range venues {
		if venue.WithinBusinessHours(now, buffer) {
			return true
		}
	}
	return false
}

// CollectionDue reports whether enough time has passed since the last
// collection run. The interval is slackened by a minute so a tick landing
// marginally early, after a restart, does not push every cycle back.
func CollectionDue(now time.Time, lastRun *models.JobRun, interval time.Duration) bool {
	if lastRun == nil {
		return true
	}
	return now.Sub(lastRun.StartedAt) >= interval-time.Minute
}
