// Package metrics exposes Prometheus counters for the collection and
// aggregation pipeline. The pipeline itself never touches a counter; it
// emits events and this package subscribes to them, so classification stays
// pure and the metric surface can be disabled wholesale.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"shiftwatch/events"
)

// Manager owns the metric instruments and their registry.
type Manager struct {
	registry *prometheus.Registry

	parseFailures       prometheus.Counter
	classificationMiss  prometheus.Counter
	entriesSkipped      *prometheus.CounterVec
	observationsStored  *prometheus.CounterVec
	fetchRetries        prometheus.Counter
	jobRuns             *prometheus.CounterVec
	jobDurationSeconds  *prometheus.HistogramVec
}

// NewManager creates the instruments on a private registry.
func NewManager() *Manager {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Manager{
		registry: reg,
		parseFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shiftwatch",
			Name:      "shift_parse_failures_total",
			Help:      "Shift time texts that could not be parsed as a time range.",
		}),
		classificationMiss: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shiftwatch",
			Name:      "classification_misses_total",
			Help:      "On-shift staff whose availability text matched no known marker.",
		}),
		entriesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shiftwatch",
			Name:      "extractor_entries_skipped_total",
			Help:      "Malformed roster entries skipped during extraction.",
		}, []string{"dialect"}),
		observationsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shiftwatch",
			Name:      "observations_stored_total",
			Help:      "Observations written, partitioned by inferred state.",
		}, []string{"state"}),
		fetchRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shiftwatch",
			Name:      "fetch_retries_total",
			Help:      "Transient roster fetch failures that were retried.",
		}),
		jobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shiftwatch",
			Name:      "job_runs_total",
			Help:      "Completed job runs by job name and outcome.",
		}, []string{"job", "outcome"}),
		jobDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shiftwatch",
			Name:      "job_duration_seconds",
			Help:      "Job run wall time.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"job"}),
	}
}

// BindTo subscribes the instruments to the pipeline's event bus.
func (m *Manager) BindTo(bus *events.Bus) {
	bus.Subscribe(events.EventTypeParseFailure, func(_ context.Context, _ events.Event) {
		m.parseFailures.Inc()
	})
	bus.Subscribe(events.EventTypeClassificationMiss, func(_ context.Context, _ events.Event) {
		m.classificationMiss.Inc()
	})
	bus.Subscribe(events.EventTypeEntriesSkipped, func(_ context.Context, e events.Event) {
		ev := e.(events.EntriesSkippedEvent)
		m.entriesSkipped.WithLabelValues(ev.Dialect).Add(float64(ev.Skipped))
	})
	bus.Subscribe(events.EventTypeObservationStored, func(_ context.Context, e events.Event) {
		ev := e.(events.ObservationStoredEvent)
		m.observationsStored.WithLabelValues(stateLabel(ev.OnShift, ev.Working)).Inc()
	})
	bus.Subscribe(events.EventTypeFetchRetried, func(_ context.Context, _ events.Event) {
		m.fetchRetries.Inc()
	})
	bus.Subscribe(events.EventTypeJobCompleted, func(_ context.Context, e events.Event) {
		ev := e.(events.JobCompletedEvent)
		m.jobRuns.WithLabelValues(ev.JobName, ev.Outcome).Inc()
		m.jobDurationSeconds.WithLabelValues(ev.JobName).Observe(ev.Duration.Seconds())
	})
}

func stateLabel(onShift, working bool) string {
	switch {
	case working:
		return "working"
	case onShift:
		return "on_shift"
	default:
		return "off_shift"
	}
}

// Serve exposes /metrics on addr until ctx is cancelled. Errors other than
// server shutdown are logged, never fatal: losing metrics must not take the
// collector down.
func (m *Manager) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("Metrics listener failed")
	}
}
