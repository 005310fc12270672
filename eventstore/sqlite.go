package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists events in a SQLite database. Append runs in a
// transaction, so the version check and the inserts are atomic.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. Use
// ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventstore: open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventstore: migrate: %w", err)
	}
	return store, nil
}

// migrate creates the schema if it doesn't exist.
func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return err
	}
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id        TEXT PRIMARY KEY,
		stream_id TEXT NOT NULL,
		version   INTEGER NOT NULL,
		type      TEXT NOT NULL,
		data      TEXT,
		timestamp TEXT NOT NULL,
		UNIQUE (stream_id, version)
	);
	CREATE INDEX IF NOT EXISTS idx_events_stream ON events (stream_id, version);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events (type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, streamID string, expectedVersion int, events []*Event) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("eventstore: begin append: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), -1) FROM events WHERE stream_id = ?`, streamID,
	).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("eventstore: read stream head: %w", err)
	}
	if current != expectedVersion {
		return 0, ErrConcurrencyConflict
	}

	version := current
	for _, ev := range events {
		version++
		ev.StreamID = streamID
		ev.Version = version
		_, err = tx.ExecContext(ctx,
			`INSERT INTO events (id, stream_id, version, type, data, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.StreamID, ev.Version, ev.Type, string(ev.Data), ev.Timestamp.Format(time.RFC3339Nano),
		)
		if err != nil {
			return 0, fmt.Errorf("eventstore: insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("eventstore: commit append: %w", err)
	}
	return version, nil
}

// Read implements Store.
func (s *SQLiteStore) Read(ctx context.Context, streamID string, fromVersion int) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stream_id, version, type, data, timestamp FROM events
		 WHERE stream_id = ? AND version >= ? ORDER BY version`,
		streamID, fromVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("eventstore: read stream: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ReadAll implements Store.
func (s *SQLiteStore) ReadAll(ctx context.Context, filter EventFilter) ([]*Event, error) {
	query := `SELECT id, stream_id, version, type, data, timestamp FROM events`
	var conds []string
	var args []any
	if filter.StreamID != "" {
		conds = append(conds, `stream_id = ?`)
		args = append(args, filter.StreamID)
	}
	if len(filter.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.Types)), ", ")
		conds = append(conds, `type IN (`+placeholders+`)`)
		for _, t := range filter.Types {
			args = append(args, t)
		}
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("eventstore: read all: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// StreamVersion implements Store.
func (s *SQLiteStore) StreamVersion(ctx context.Context, streamID string) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), -1) FROM events WHERE stream_id = ?`, streamID,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("eventstore: stream version: %w", err)
	}
	return version, nil
}

// DeleteStream implements Store.
func (s *SQLiteStore) DeleteStream(ctx context.Context, streamID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE stream_id = ?`, streamID)
	if err != nil {
		return fmt.Errorf("eventstore: delete stream: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var out []*Event
	for rows.Next() {
		var ev Event
		var data string
		var ts string
		if err := rows.Scan(&ev.ID, &ev.StreamID, &ev.Version, &ev.Type, &data, &ts); err != nil {
			return nil, fmt.Errorf("eventstore: scan event: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("eventstore: parse timestamp: %w", err)
		}
		ev.Data = []byte(data)
		ev.Timestamp = parsed
		out = append(out, &ev)
	}
	return out, rows.Err()
}
