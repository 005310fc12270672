package eventstore

import (
	"context"
	"sync"
)

// MemoryStore keeps events in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	streams map[string][]*Event
	log     []*Event // global append order
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		streams: make(map[string][]*Event),
	}
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, streamID string, expectedVersion int, events []*Event) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[streamID]
	current := len(stream) - 1
	if current != expectedVersion {
		return 0, ErrConcurrencyConflict
	}

	version := current
	for _, ev := range events {
		version++
		stored := *ev
		stored.StreamID = streamID
		stored.Version = version
		stream = append(stream, &stored)
		s.log = append(s.log, &stored)
	}
	s.streams[streamID] = stream
	return version, nil
}

// Read implements Store.
func (s *MemoryStore) Read(ctx context.Context, streamID string, fromVersion int) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[streamID]
	var out []*Event
	for _, ev := range stream {
		if ev.Version >= fromVersion {
			out = append(out, ev)
		}
	}
	return out, nil
}

// ReadAll implements Store.
func (s *MemoryStore) ReadAll(ctx context.Context, filter EventFilter) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Event
	for _, ev := range s.log {
		if filter.matches(ev) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// StreamVersion implements Store.
func (s *MemoryStore) StreamVersion(ctx context.Context, streamID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.streams[streamID]) - 1, nil
}

// DeleteStream implements Store.
func (s *MemoryStore) DeleteStream(ctx context.Context, streamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.streams, streamID)
	kept := s.log[:0]
	for _, ev := range s.log {
		if ev.StreamID != streamID {
			kept = append(kept, ev)
		}
	}
	s.log = kept
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
