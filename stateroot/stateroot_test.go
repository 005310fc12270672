package stateroot_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pflow-xyz/go-mona/stateroot"
	"github.com/pflow-xyz/go-mona/token"
)

var (
	deployer = token.MustParseAddress("0x00000000000000000000000000000000000000aa")
	alice    = token.MustParseAddress("0x00000000000000000000000000000000000000bb")
	bob      = token.MustParseAddress("0x00000000000000000000000000000000000000cc")
)

// fundedLedger returns a ledger with three holders and one allowance.
func fundedLedger(t *testing.T) *token.Ledger {
	t.Helper()
	l, err := token.NewLedger(deployer)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	if err := l.Transfer(deployer, alice, token.WholeTokens(1_000)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if err := l.Transfer(deployer, bob, token.WholeTokens(250)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if err := l.Approve(alice, bob, token.WholeTokens(50)); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	return l
}

func TestCommitDeterministic(t *testing.T) {
	first, err := stateroot.Compute(fundedLedger(t).Snapshot())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	second, err := stateroot.Compute(fundedLedger(t).Snapshot())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if first != second {
		t.Errorf("same state produced different roots:\n  %s\n  %s", first, second)
	}
	if len(first) != 2+64 {
		t.Errorf("expected 0x-prefixed 32-byte root, got %q", first)
	}
}

func TestRootTracksState(t *testing.T) {
	ledger, err := token.NewLedger(deployer)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	before, err := stateroot.Compute(ledger.Snapshot())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	if err := ledger.Transfer(deployer, alice, token.WholeTokens(7)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	after, err := stateroot.Compute(ledger.Snapshot())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	if before == after {
		t.Error("root did not change after a transfer")
	}
}

func TestBalanceProof(t *testing.T) {
	snap := fundedLedger(t).Snapshot()
	tree, err := stateroot.BalanceTree(snap, 4)
	if err != nil {
		t.Fatalf("build tree failed: %v", err)
	}

	for _, holder := range snap.Holders() {
		proof, err := tree.Proof(holder.String())
		if err != nil {
			t.Fatalf("proof for %s failed: %v", holder, err)
		}
		if !stateroot.Verify(tree.Root(), proof) {
			t.Errorf("proof for %s did not verify", holder)
		}
	}

	stranger := token.MustParseAddress("0x00000000000000000000000000000000000000dd")
	if _, err := tree.Proof(stranger.String()); !errors.Is(err, stateroot.ErrNotFound) {
		t.Errorf("expected not found for stranger, got: %v", err)
	}
}

func TestTamperedProofFails(t *testing.T) {
	snap := fundedLedger(t).Snapshot()
	tree, err := stateroot.BalanceTree(snap, 4)
	if err != nil {
		t.Fatalf("build tree failed: %v", err)
	}

	proof, err := tree.Proof(alice.String())
	if err != nil {
		t.Fatalf("proof failed: %v", err)
	}

	tampered := bytes.Clone(proof.Siblings[0])
	tampered[len(tampered)-1] ^= 1
	proof.Siblings[0] = tampered

	if stateroot.Verify(tree.Root(), proof) {
		t.Error("tampered proof verified")
	}
}

func TestAllowanceProof(t *testing.T) {
	snap := fundedLedger(t).Snapshot()
	tree, err := stateroot.AllowanceTree(snap, 4)
	if err != nil {
		t.Fatalf("build tree failed: %v", err)
	}

	proof, err := tree.Proof(stateroot.AllowanceKey(alice, bob))
	if err != nil {
		t.Fatalf("proof failed: %v", err)
	}
	if !stateroot.Verify(tree.Root(), proof) {
		t.Error("allowance proof did not verify")
	}

	if _, err := tree.Proof(stateroot.AllowanceKey(bob, alice)); !errors.Is(err, stateroot.ErrNotFound) {
		t.Errorf("expected not found for reversed pair, got: %v", err)
	}
}

func TestTreeFull(t *testing.T) {
	snap := fundedLedger(t).Snapshot() // three holders
	if _, err := stateroot.BalanceTree(snap, 1); !errors.Is(err, stateroot.ErrTreeFull) {
		t.Errorf("expected tree full at depth 1, got: %v", err)
	}
}

func TestCommitmentRoots(t *testing.T) {
	snap := fundedLedger(t).Snapshot()
	c, err := stateroot.Commit(snap)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if len(c.BalanceRoot) != 32 || len(c.AllowanceRoot) != 32 || len(c.Root) != 32 {
		t.Errorf("expected 32-byte roots, got %d/%d/%d",
			len(c.BalanceRoot), len(c.AllowanceRoot), len(c.Root))
	}
	if bytes.Equal(c.BalanceRoot, c.AllowanceRoot) {
		t.Error("balance and allowance subtree roots should differ")
	}
}
