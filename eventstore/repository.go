package eventstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/pflow-xyz/go-mona/token"
)

// ErrStreamNotFound is returned by Load when the stream has no events.
var ErrStreamNotFound = errors.New("eventstore: stream not found")

// Repository rebuilds ledgers from event streams and persists new
// ledger events. The stream version always equals the sequence number
// of the last ledger event, so replay and persistence stay aligned.
type Repository struct {
	store Store
}

// NewRepository creates a repository backed by the given store.
func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

// Load replays the stream into a fresh ledger. It returns the ledger
// and the stream head version.
func (r *Repository) Load(ctx context.Context, streamID string) (*token.Ledger, int, error) {
	stored, err := r.store.Read(ctx, streamID, 0)
	if err != nil {
		return nil, 0, err
	}
	if len(stored) == 0 {
		return nil, -1, fmt.Errorf("%w: %s", ErrStreamNotFound, streamID)
	}

	events := make([]token.Event, 0, len(stored))
	for _, ev := range stored {
		decoded, err := ev.ToLedger()
		if err != nil {
			return nil, 0, err
		}
		events = append(events, decoded)
	}

	ledger, err := token.Replay(events)
	if err != nil {
		return nil, 0, err
	}
	return ledger, stored[len(stored)-1].Version, nil
}

// Save appends ledger events to the stream at the expected version and
// returns the new head version. Appending zero events returns the
// expected version unchanged.
func (r *Repository) Save(ctx context.Context, streamID string, expectedVersion int, events []token.Event) (int, error) {
	if len(events) == 0 {
		return expectedVersion, nil
	}

	stored := make([]*Event, 0, len(events))
	for _, ev := range events {
		encoded, err := FromLedger(streamID, ev)
		if err != nil {
			return 0, err
		}
		stored = append(stored, encoded)
	}
	return r.store.Append(ctx, streamID, expectedVersion, stored)
}

// Version returns the stream head version, -1 when the stream is empty.
func (r *Repository) Version(ctx context.Context, streamID string) (int, error) {
	return r.store.StreamVersion(ctx, streamID)
}

// Events returns the decoded ledger events of a stream starting at
// fromVersion, in order.
func (r *Repository) Events(ctx context.Context, streamID string, fromVersion int) ([]token.Event, error) {
	stored, err := r.store.Read(ctx, streamID, fromVersion)
	if err != nil {
		return nil, err
	}
	events := make([]token.Event, 0, len(stored))
	for _, ev := range stored {
		decoded, err := ev.ToLedger()
		if err != nil {
			return nil, err
		}
		events = append(events, decoded)
	}
	return events, nil
}
