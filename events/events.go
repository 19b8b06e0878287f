package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeParseFailure       EventType = "parse_failure"
	EventTypeClassificationMiss EventType = "classification_miss"
	EventTypeEntriesSkipped     EventType = "entries_skipped"
	EventTypeObservationStored  EventType = "observation_stored"
	EventTypeFetchRetried       EventType = "fetch_retried"
	EventTypeJobCompleted       EventType = "job_completed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ParseFailureEvent is emitted when shift text could not be read as a time
// range; the staff member was classified off-shift as the safe default.
type ParseFailureEvent struct {
	VenueID   int64
	StaffID   string
	ShiftText string
}

func (e ParseFailureEvent) Type() EventType { return EventTypeParseFailure }

// ClassificationMissEvent is emitted when an on-shift staff member's
// availability text matched no known marker.
type ClassificationMissEvent struct {
	VenueID   int64
	StaffID   string
	AvailText string
}

func (e ClassificationMissEvent) Type() EventType { return EventTypeClassificationMiss }

// EntriesSkippedEvent reports malformed roster entries dropped by a dialect.
type EntriesSkippedEvent struct {
	VenueID int64
	Dialect string
	Skipped int
}

func (e EntriesSkippedEvent) Type() EventType { return EventTypeEntriesSkipped }

// ObservationStoredEvent is emitted per persisted observation.
type ObservationStoredEvent struct {
	VenueID int64
	OnShift bool
	Working bool
}

func (e ObservationStoredEvent) Type() EventType { return EventTypeObservationStored }

// FetchRetriedEvent is emitted for each transient fetch failure that will be
// retried.
type FetchRetriedEvent struct {
	VenueID int64
	Attempt int
	Err     string
}

func (e FetchRetriedEvent) Type() EventType { return EventTypeFetchRetried }

// JobCompletedEvent summarizes a finished job run.
type JobCompletedEvent struct {
	JobName  string
	Outcome  string
	Duration time.Duration
}

func (e JobCompletedEvent) Type() EventType { return EventTypeJobCompleted }

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers. Handlers run
// synchronously: the emitters are hot classification loops and the
// subscribers are counter increments, so per-event goroutines would cost
// more than they isolate. A panicking handler is contained and logged.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for _, handler := range handlers {
		func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}
