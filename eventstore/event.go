// Package eventstore persists ledger events as append-only streams
// with optimistic concurrency, in memory or in SQLite. One stream
// holds one ledger's history; replaying it rebuilds the ledger.
package eventstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pflow-xyz/go-mona/token"
)

// Event is one stored occurrence. Version is assigned on append and
// equals the ledger sequence number of the wrapped event.
type Event struct {
	ID        string          `json:"id"`
	StreamID  string          `json:"streamId"`
	Version   int             `json:"version"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates an unversioned event with marshaled data.
func NewEvent(streamID, eventType string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("eventstore: marshal %s data: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		StreamID:  streamID,
		Version:   -1,
		Type:      eventType,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// FromLedger wraps a ledger event for storage: the event name becomes
// the type, the attributes become the data.
func FromLedger(streamID string, ev token.Event) (*Event, error) {
	stored, err := NewEvent(streamID, ev.Name, ev.Attrs)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// ToLedger unwraps a stored event back into a ledger event, recovering
// the sequence number from the stored version.
func (e *Event) ToLedger() (token.Event, error) {
	var attrs map[string]string
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, &attrs); err != nil {
			return token.Event{}, fmt.Errorf("eventstore: unmarshal %s data: %w", e.Type, err)
		}
	}
	return token.Event{
		Seq:   uint64(e.Version),
		Name:  e.Type,
		Attrs: attrs,
	}, nil
}
