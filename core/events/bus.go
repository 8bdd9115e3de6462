// Package events provides the publish/subscribe bus through which the
// registry, the loader and the lifecycle controller announce state changes.
package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/artpar/deepgraph/adapters/clock"
	"github.com/rs/zerolog"
)

// Event names published by the runtime.
const (
	ComponentRegistered   = "component.registered"
	ComponentDeregistered = "component.deregistered"
	LoaderChanged         = "loader.changed"
	ComponentLoaded       = "component.loaded"
	SystemStarted         = "system.started"
	SystemQuit            = "system.quit"
	BootStarted           = "boot.started"
	BootStopped           = "boot.stopped"
)

// Event represents a published event.
type Event struct {
	// Name is the event name (e.g., "component.registered").
	Name string

	// Source is the emitter: "registry", "loader" or "boot".
	Source string

	// Component is the identifier of the component concerned, if any.
	Component string

	// Data contains the event payload.
	Data map[string]any

	// Time is set by Publish when zero.
	Time time.Time
}

// Clock supplies event timestamps.
type Clock interface {
	Now() time.Time
}

// Handler is a function that processes an event.
type Handler func(ctx context.Context, event Event) error

// Bus is a simple publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	clock    Clock
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		clock:    clock.UTC{},
		logger:   logger,
	}
}

// SetClock replaces the clock used to stamp events.
func (b *Bus) SetClock(c Clock) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clock = c
}

// Subscribe registers a handler for an event.
// Supports wildcard subscriptions:
//   - "component.registered" - exact match
//   - "component.*" - all component events
//   - "*" - all events
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Publish emits an event to all matching handlers.
// Handlers are called synchronously in registration order, exact matches
// first. Handler errors are logged and do not stop delivery.
// A nil bus discards the event.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if b == nil {
		return
	}
	if event.Time.IsZero() {
		b.mu.RLock()
		event.Time = b.clock.Now()
		b.mu.RUnlock()
	}

	b.logger.Debug().
		Str("event", event.Name).
		Str("source", event.Source).
		Str("component", event.Component).
		Msg("event emitted")

	for _, handler := range b.matching(event.Name) {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// HasSubscribers checks if any handlers are registered for an event.
func (b *Bus) HasSubscribers(event string) bool {
	if b == nil {
		return false
	}
	return len(b.matching(event)) > 0
}

// matching snapshots the handlers for name so that handlers may subscribe
// while being called.
func (b *Bus) matching(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []Handler
	matched = append(matched, b.handlers[name]...)
	if prefix, _, ok := strings.Cut(name, "."); ok && name != "*" {
		matched = append(matched, b.handlers[prefix+".*"]...)
	}
	if name != "*" {
		matched = append(matched, b.handlers["*"]...)
	}
	return matched
}
