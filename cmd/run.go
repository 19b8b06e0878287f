package cmd

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"shiftwatch/aggregate"
	"shiftwatch/classify"
	"shiftwatch/config"
	"shiftwatch/database"
	"shiftwatch/events"
	"shiftwatch/extract"
	"shiftwatch/fetch"
	"shiftwatch/metrics"
	"shiftwatch/models"
	"shiftwatch/repository"
	"shiftwatch/scheduler"
	"shiftwatch/service"
)

// app holds the wired object graph shared by the daemon and the one-shot
// subcommands.
type app struct {
	cfg         *config.Config
	db          *database.DB
	bus         *events.Bus
	metrics     *metrics.Manager
	venueRepo   *repository.VenueRepository
	jobRunRepo  *repository.JobRunRepository
	collection  *service.CollectionService
	aggregation *service.AggregationService
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.JSONFormatter{})

	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	bus := events.NewBus()
	manager := metrics.NewManager()
	manager.BindTo(bus)

	venueRepo := repository.NewVenueRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	obsRepo := repository.NewObservationRepository(db)
	rateRepo := repository.NewDailyRateRepository(db)
	jobRunRepo := repository.NewJobRunRepository(db)

	fetcher := fetch.NewHTTPFetcher(fetch.Options{
		Timeout:       cfg.FetchTimeout(),
		MaxRetries:    cfg.FetchMaxRetries,
		RatePerSecond: cfg.FetchRatePerSecond,
		UserAgent:     cfg.FetchUserAgent,
	}, bus)

	collection := service.NewCollectionService(
		venueRepo,
		staffRepo,
		obsRepo,
		jobRunRepo,
		fetcher,
		extract.NewRegistry(),
		classify.New(classifyOptions(cfg)),
		bus,
		service.CollectionConfig{
			Workers:  cfg.CollectionWorkers,
			Timeout:  cfg.CollectionTimeout(),
			Buffer:   cfg.CollectionBuffer(),
			Location: cfg.Location(),
		},
	)
	aggregation := service.NewAggregationService(
		venueRepo,
		obsRepo,
		rateRepo,
		jobRunRepo,
		aggregate.MeanStrategy{},
		bus,
		service.AggregationConfig{
			Buffer:   cfg.AggregationBuffer(),
			Location: cfg.Location(),
		},
	)

	return &app{
		cfg:         cfg,
		db:          db,
		bus:         bus,
		metrics:     manager,
		venueRepo:   venueRepo,
		jobRunRepo:  jobRunRepo,
		collection:  collection,
		aggregation: aggregation,
	}, nil
}

func (a *app) close() {
	a.db.Close()
}

// Run starts the daemon: scheduler plus metrics listener, until ctx is
// cancelled.
func Run(ctx context.Context) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.MetricsAddr != "" {
		go a.metrics.Serve(ctx, a.cfg.MetricsAddr)
	}

	sched := scheduler.New(a.collection, a.aggregation, a.venueRepo, a.jobRunRepo, scheduler.Config{
		PollInterval:     a.cfg.PollInterval(),
		CollectionBuffer: a.cfg.CollectionBuffer(),
		SweepInterval:    a.cfg.AggregationSweep(),
		Location:         a.cfg.Location(),
	})
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	<-ctx.Done()

	log.Info("Shutting down")
	sched.Stop()
	return nil
}

// Collect runs a single collection cycle and exits.
func Collect(ctx context.Context, force bool, venueIDs []int64) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	run, err := a.collection.RunCycle(ctx, service.CollectionOptions{
		Force:    force,
		VenueIDs: venueIDs,
	})
	if err != nil {
		return err
	}
	fmt.Printf("collection %s: outcome=%s processed=%d errors=%d\n",
		run.ID, run.Outcome, run.ProcessedCount, run.ErrorCount)
	for _, msg := range run.Errors {
		fmt.Printf("  error: %s\n", msg)
	}
	if run.Outcome == models.OutcomeFailed {
		return fmt.Errorf("collection cycle failed")
	}
	return nil
}

// Aggregate runs a single aggregation pass and exits. A zero date means each
// venue's most recently closed business day.
func Aggregate(ctx context.Context, date time.Time, force bool, venueIDs []int64) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	summaries, err := a.aggregation.RunPass(ctx, service.AggregationOptions{
		TargetDate: date,
		Force:      force,
		VenueIDs:   venueIDs,
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, s := range summaries {
		switch {
		case s.Err != nil:
			failed++
			fmt.Printf("venue %d: error: %v\n", s.VenueID, s.Err)
		case s.Skipped:
			fmt.Printf("venue %d: skipped\n", s.VenueID)
		case s.Rate == nil:
			fmt.Printf("venue %d %s: no eligible samples\n", s.VenueID, s.TargetDate.Format("2006-01-02"))
		default:
			fmt.Printf("venue %d %s: rate=%.4f samples=%d\n",
				s.VenueID, s.TargetDate.Format("2006-01-02"), *s.Rate, s.SampleCount)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d venue(s) failed to aggregate", failed)
	}
	return nil
}

// classifyOptions derives classifier options from the loaded configuration.
// A nil config falls back to the defaults.
func classifyOptions(cfg *config.Config) classify.Options {
	opts := classify.DefaultOptions()
	if cfg != nil {
		opts.EndWindow = cfg.FullyBookedEndWindow()
	}
	return opts
}

// Classify evaluates one staff entry against the rules and prints the
// decision trace. It touches no database; it exists for debugging roster
// text that classified unexpectedly. Configuration is picked up when
// available so the tunables match the daemon, but the subcommand still works
// without one.
func Classify(shiftText, availText, at string) error {
	ref := time.Now()
	if at != "" {
		parsed, err := time.Parse("15:04", at)
		if err != nil {
			return fmt.Errorf("invalid reference time %q (want HH:MM): %w", at, err)
		}
		now := time.Now()
		ref = time.Date(now.Year(), now.Month(), now.Day(),
			parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	}

	cfg, err := config.Load()
	if err != nil {
		cfg = nil
	}
	result := classify.New(classifyOptions(cfg)).Classify(shiftText, availText, ref)
	fmt.Printf("on_shift=%v working=%v rule=%s\n", result.OnShift, result.Working, result.Rule)
	for _, line := range result.Trace {
		fmt.Printf("  %s\n", line)
	}
	return nil
}
