package eventstore

import (
	"context"
	"errors"
)

// ErrConcurrencyConflict is returned when an append's expected version
// does not match the stream head. Stores return it unwrapped.
var ErrConcurrencyConflict = errors.New("eventstore: concurrency conflict")

// EventFilter selects events for ReadAll. Zero fields match everything.
type EventFilter struct {
	// Types restricts to the listed event types.
	Types []string
	// StreamID restricts to a single stream.
	StreamID string
}

func (f EventFilter) matches(e *Event) bool {
	if f.StreamID != "" && e.StreamID != f.StreamID {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Store is an append-only event log partitioned into streams.
// Versions start at 0; an empty stream has version -1.
type Store interface {
	// Append adds events to a stream if its head version equals
	// expectedVersion (-1 for a new stream), assigning consecutive
	// versions. Returns the new head version.
	Append(ctx context.Context, streamID string, expectedVersion int, events []*Event) (int, error)

	// Read returns a stream's events from the given version onward.
	Read(ctx context.Context, streamID string, fromVersion int) ([]*Event, error)

	// ReadAll returns every matching event in global append order.
	ReadAll(ctx context.Context, filter EventFilter) ([]*Event, error)

	// StreamVersion returns the stream head version, -1 if missing.
	StreamVersion(ctx context.Context, streamID string) (int, error)

	// DeleteStream removes a stream and its events.
	DeleteStream(ctx context.Context, streamID string) error

	// Close releases store resources.
	Close() error
}
