package eventstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pflow-xyz/go-mona/eventstore"
	"github.com/pflow-xyz/go-mona/token"
)

var (
	deployer = token.MustParseAddress("0x00000000000000000000000000000000000000aa")
	holder   = token.MustParseAddress("0x00000000000000000000000000000000000000bb")
)

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func() eventstore.Store {
		return eventstore.NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func() eventstore.Store {
		store, err := eventstore.NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatalf("failed to create sqlite store: %v", err)
		}
		return store
	})
}

// genesisEvents drains a fresh ledger's genesis stream: three
// role-granted events followed by the initial mint.
func genesisEvents(t *testing.T, stream string) []*eventstore.Event {
	t.Helper()
	ledger, err := token.NewLedger(deployer)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	var out []*eventstore.Event
	for _, ev := range ledger.DrainEvents() {
		stored, err := eventstore.FromLedger(stream, ev)
		if err != nil {
			t.Fatalf("wrap event: %v", err)
		}
		out = append(out, stored)
	}
	return out
}

func runStoreTests(t *testing.T, newStore func() eventstore.Store) {
	t.Run("AppendAndRead", func(t *testing.T) {
		store := newStore()
		defer store.Close()
		ctx := context.Background()

		events := genesisEvents(t, "mona:main")

		version, err := store.Append(ctx, "mona:main", -1, events)
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if version != 3 {
			t.Errorf("expected version 3, got %d", version)
		}

		got, err := store.Read(ctx, "mona:main", 0)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(got) != 4 {
			t.Fatalf("expected 4 events, got %d", len(got))
		}
		if got[0].Type != token.EventRoleGranted {
			t.Errorf("expected first event %s, got %s", token.EventRoleGranted, got[0].Type)
		}
		if got[3].Type != token.EventMint {
			t.Errorf("expected last event %s, got %s", token.EventMint, got[3].Type)
		}
		for i, ev := range got {
			if ev.Version != i {
				t.Errorf("event %d: expected version %d, got %d", i, i, ev.Version)
			}
		}
	})

	t.Run("RoundTripAttributes", func(t *testing.T) {
		store := newStore()
		defer store.Close()
		ctx := context.Background()

		events := genesisEvents(t, "mona:main")
		if _, err := store.Append(ctx, "mona:main", -1, events); err != nil {
			t.Fatalf("append failed: %v", err)
		}

		got, err := store.Read(ctx, "mona:main", 3)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 event, got %d", len(got))
		}

		mint, err := got[0].ToLedger()
		if err != nil {
			t.Fatalf("unwrap event: %v", err)
		}
		to, err := mint.Address(token.AttrTo)
		if err != nil {
			t.Fatalf("decode to address: %v", err)
		}
		if to != deployer {
			t.Errorf("expected mint to %s, got %s", deployer, to)
		}
		amount, err := mint.Amount(token.AttrAmount)
		if err != nil {
			t.Fatalf("decode amount: %v", err)
		}
		if !amount.Eq(token.InitialSupply()) {
			t.Errorf("expected initial supply, got %s", amount.Dec())
		}
	})

	t.Run("ConcurrencyConflict", func(t *testing.T) {
		store := newStore()
		defer store.Close()
		ctx := context.Background()

		events := genesisEvents(t, "mona:main")

		if _, err := store.Append(ctx, "mona:main", -1, events[:1]); err != nil {
			t.Fatalf("append failed: %v", err)
		}

		// Stale expected version must be rejected.
		_, err := store.Append(ctx, "mona:main", 5, events[1:2])
		if !errors.Is(err, eventstore.ErrConcurrencyConflict) {
			t.Errorf("expected concurrency conflict, got: %v", err)
		}

		if _, err := store.Append(ctx, "mona:main", 0, events[1:2]); err != nil {
			t.Errorf("append with correct version failed: %v", err)
		}
	})

	t.Run("StreamVersion", func(t *testing.T) {
		store := newStore()
		defer store.Close()
		ctx := context.Background()

		version, err := store.StreamVersion(ctx, "mona:main")
		if err != nil {
			t.Fatalf("stream version failed: %v", err)
		}
		if version != -1 {
			t.Errorf("expected version -1 for missing stream, got %d", version)
		}

		events := genesisEvents(t, "mona:main")
		if _, err := store.Append(ctx, "mona:main", -1, events); err != nil {
			t.Fatalf("append failed: %v", err)
		}

		version, err = store.StreamVersion(ctx, "mona:main")
		if err != nil {
			t.Fatalf("stream version failed: %v", err)
		}
		if version != 3 {
			t.Errorf("expected version 3, got %d", version)
		}
	})

	t.Run("ReadFromVersion", func(t *testing.T) {
		store := newStore()
		defer store.Close()
		ctx := context.Background()

		events := genesisEvents(t, "mona:main")
		if _, err := store.Append(ctx, "mona:main", -1, events); err != nil {
			t.Fatalf("append failed: %v", err)
		}

		got, err := store.Read(ctx, "mona:main", 2)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got))
		}
		if got[0].Version != 2 {
			t.Errorf("expected first event version 2, got %d", got[0].Version)
		}
	})

	t.Run("ReadAllWithFilter", func(t *testing.T) {
		store := newStore()
		defer store.Close()
		ctx := context.Background()

		main := genesisEvents(t, "mona:main")
		test := genesisEvents(t, "mona:test")

		if _, err := store.Append(ctx, "mona:main", -1, main); err != nil {
			t.Fatalf("append failed: %v", err)
		}
		if _, err := store.Append(ctx, "mona:test", -1, test); err != nil {
			t.Fatalf("append failed: %v", err)
		}

		got, err := store.ReadAll(ctx, eventstore.EventFilter{
			Types: []string{token.EventMint},
		})
		if err != nil {
			t.Fatalf("read all failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 mint events across streams, got %d", len(got))
		}

		got, err = store.ReadAll(ctx, eventstore.EventFilter{
			StreamID: "mona:main",
		})
		if err != nil {
			t.Fatalf("read all failed: %v", err)
		}
		if len(got) != 4 {
			t.Errorf("expected 4 events in mona:main, got %d", len(got))
		}

		got, err = store.ReadAll(ctx, eventstore.EventFilter{
			StreamID: "mona:test",
			Types:    []string{token.EventRoleGranted},
		})
		if err != nil {
			t.Fatalf("read all failed: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("expected 3 role grants in mona:test, got %d", len(got))
		}
	})

	t.Run("DeleteStream", func(t *testing.T) {
		store := newStore()
		defer store.Close()
		ctx := context.Background()

		events := genesisEvents(t, "mona:main")
		if _, err := store.Append(ctx, "mona:main", -1, events); err != nil {
			t.Fatalf("append failed: %v", err)
		}

		if err := store.DeleteStream(ctx, "mona:main"); err != nil {
			t.Fatalf("delete stream failed: %v", err)
		}

		version, err := store.StreamVersion(ctx, "mona:main")
		if err != nil {
			t.Fatalf("stream version failed: %v", err)
		}
		if version != -1 {
			t.Errorf("expected version -1 after delete, got %d", version)
		}
	})
}
