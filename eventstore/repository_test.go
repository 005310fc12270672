package eventstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pflow-xyz/go-mona/eventstore"
	"github.com/pflow-xyz/go-mona/token"
)

func newLedger(t *testing.T) *token.Ledger {
	t.Helper()
	l, err := token.NewLedger(deployer)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := eventstore.NewRepository(eventstore.NewMemoryStore())

	live := newLedger(t)
	version, err := repo.Save(ctx, "mona:main", -1, live.DrainEvents())
	if err != nil {
		t.Fatalf("save genesis failed: %v", err)
	}
	if version != 3 {
		t.Errorf("expected version 3 after genesis, got %d", version)
	}

	if err := live.GrantRole(deployer, token.RoleMinter, holder); err != nil {
		t.Fatalf("grant role failed: %v", err)
	}
	if err := live.Mint(holder, holder, token.WholeTokens(5)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	version, err = repo.Save(ctx, "mona:main", version, live.DrainEvents())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if version != 5 {
		t.Errorf("expected version 5, got %d", version)
	}

	rebuilt, head, err := repo.Load(ctx, "mona:main")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if head != 5 {
		t.Errorf("expected head version 5, got %d", head)
	}
	if rebuilt.Sequence() != live.Sequence() {
		t.Errorf("sequence mismatch: rebuilt %d, live %d", rebuilt.Sequence(), live.Sequence())
	}
	if !rebuilt.TotalSupply().Eq(live.TotalSupply()) {
		t.Errorf("supply mismatch: rebuilt %s, live %s", rebuilt.TotalSupply().Dec(), live.TotalSupply().Dec())
	}
	if !rebuilt.BalanceOf(holder).Eq(token.WholeTokens(5)) {
		t.Errorf("expected holder balance 5 tokens, got %s", rebuilt.BalanceOf(holder).Dec())
	}
	if !rebuilt.IsMinter(holder) {
		t.Error("expected rebuilt ledger to keep holder's minter role")
	}
	if err := rebuilt.CheckConservation(); err != nil {
		t.Errorf("rebuilt ledger violates conservation: %v", err)
	}
}

func TestRepositoryLoadMissingStream(t *testing.T) {
	repo := eventstore.NewRepository(eventstore.NewMemoryStore())

	_, _, err := repo.Load(context.Background(), "mona:missing")
	if !errors.Is(err, eventstore.ErrStreamNotFound) {
		t.Errorf("expected stream not found, got: %v", err)
	}
}

func TestRepositoryStaleSave(t *testing.T) {
	ctx := context.Background()
	repo := eventstore.NewRepository(eventstore.NewMemoryStore())

	ledger := newLedger(t)
	events := ledger.DrainEvents()

	if _, err := repo.Save(ctx, "mona:main", -1, events); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// A writer that has not seen the genesis events must be rejected.
	if err := ledger.Pause(deployer); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	_, err := repo.Save(ctx, "mona:main", -1, ledger.DrainEvents())
	if !errors.Is(err, eventstore.ErrConcurrencyConflict) {
		t.Errorf("expected concurrency conflict, got: %v", err)
	}
}

func TestRepositorySaveNothing(t *testing.T) {
	repo := eventstore.NewRepository(eventstore.NewMemoryStore())

	version, err := repo.Save(context.Background(), "mona:main", 7, nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if version != 7 {
		t.Errorf("expected version 7 unchanged, got %d", version)
	}
}
