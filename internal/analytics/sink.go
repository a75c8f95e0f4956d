package analytics

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Sink errors.
var (
	// ErrEventNotFound is returned by AttachClick for an unknown event id.
	ErrEventNotFound = errors.New("analytics event not found")
)

// Sink persists analytics events. Implementations must treat Insert as
// append-only and AttachClick as last-write-wins for the same event id.
type Sink interface {
	// Insert appends a new event.
	Insert(ctx context.Context, event *Event) error

	// AttachClick sets the click on an existing event. Returns
	// ErrEventNotFound for unknown ids, with no side effects.
	AttachClick(ctx context.Context, eventID string, click Click) error

	// EventsSince returns events created at or after the cutoff, newest
	// first. Used by the derived admin views.
	EventsSince(ctx context.Context, since time.Time) ([]*Event, error)
}

// InMemorySink is an in-memory Sink used for testing and development.
// Thread-safe via RWMutex.
type InMemorySink struct {
	mu     sync.RWMutex
	events map[string]*Event
	// Maintain insertion order for queries
	order []string
}

// NewInMemorySink creates a new in-memory analytics sink.
func NewInMemorySink() *InMemorySink {
	return &InMemorySink{
		events: make(map[string]*Event),
	}
}

// Insert appends a new event.
func (s *InMemorySink) Insert(ctx context.Context, event *Event) error {
	eventCopy := *event
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[eventCopy.ID] = &eventCopy
	s.order = append(s.order, eventCopy.ID)
	return nil
}

// AttachClick sets the click on an existing event, last write wins.
func (s *InMemorySink) AttachClick(ctx context.Context, eventID string, click Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	clickCopy := click
	event.Click = &clickCopy
	return nil
}

// EventsSince returns events created at or after the cutoff, newest first.
func (s *InMemorySink) EventsSince(ctx context.Context, since time.Time) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Event
	for i := len(s.order) - 1; i >= 0; i-- {
		event := s.events[s.order[i]]
		if event.CreatedAt.Before(since) {
			continue
		}
		// Return copies to prevent external modification
		eventCopy := *event
		if event.Click != nil {
			clickCopy := *event.Click
			eventCopy.Click = &clickCopy
		}
		results = append(results, &eventCopy)
	}
	return results, nil
}
