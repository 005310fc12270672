package proof_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/pflow-xyz/go-mona/proof"
	"github.com/pflow-xyz/go-mona/token"
)

var (
	deployer = token.MustParseAddress("0x00000000000000000000000000000000000000aa")
	alice    = token.MustParseAddress("0x00000000000000000000000000000000000000bb")
	bob      = token.MustParseAddress("0x00000000000000000000000000000000000000cc")
)

var (
	proverOnce sync.Once
	prover     *proof.Prover
	proverErr  error
)

// testProver compiles the circuits once for the whole package; the
// Groth16 setup dominates test time.
func testProver(t *testing.T) *proof.Prover {
	t.Helper()
	proverOnce.Do(func() {
		prover = proof.NewProver()
		proverErr = prover.RegisterDefaults()
	})
	if proverErr != nil {
		t.Fatalf("register circuits: %v", proverErr)
	}
	return prover
}

func testLedger(t *testing.T) *token.Ledger {
	t.Helper()
	l, err := token.NewLedger(deployer)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	if err := l.Transfer(deployer, alice, token.WholeTokens(1_000)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if err := l.Approve(alice, bob, token.WholeTokens(100)); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	return l
}

func TestSolvencyProof(t *testing.T) {
	p := testProver(t)
	snap := testLedger(t).Snapshot()

	witness, err := proof.SolvencyWitness(snap, alice, token.WholeTokens(500))
	if err != nil {
		t.Fatalf("build witness: %v", err)
	}

	result, err := p.Prove(proof.CircuitSolvency, witness)
	if err != nil {
		t.Fatalf("prove failed: %v", err)
	}
	if len(result.Proof) != 8 {
		t.Errorf("expected 8 proof words, got %d", len(result.Proof))
	}
	if len(result.PublicInputs) != 3 {
		t.Errorf("expected 3 public inputs, got %d", len(result.PublicInputs))
	}
	if result.Constraints == 0 {
		t.Error("expected a nonzero constraint count")
	}
	t.Logf("solvency circuit: %d constraints", result.Constraints)

	if err := p.Verify(proof.CircuitSolvency, witness); err != nil {
		t.Errorf("verify failed: %v", err)
	}
}

func TestSolvencyWitnessRejectsOverdraft(t *testing.T) {
	snap := testLedger(t).Snapshot()

	_, err := proof.SolvencyWitness(snap, alice, token.WholeTokens(2_000))
	if !errors.Is(err, token.ErrInsufficientBalance) {
		t.Errorf("expected insufficient balance, got: %v", err)
	}
}

func TestSolvencyProofFailsOnTamperedAmount(t *testing.T) {
	p := testProver(t)
	snap := testLedger(t).Snapshot()

	witness, err := proof.SolvencyWitness(snap, alice, token.WholeTokens(500))
	if err != nil {
		t.Fatalf("build witness: %v", err)
	}

	// Claim more than the proven balance; the range check must fail.
	witness.Amount = token.WholeTokens(5_000).ToBig()
	if err := p.Verify(proof.CircuitSolvency, witness); err == nil {
		t.Error("expected proof to fail for amount above balance")
	}
}

func TestAllowanceProof(t *testing.T) {
	p := testProver(t)
	snap := testLedger(t).Snapshot()

	witness, err := proof.AllowanceWitness(snap, alice, bob, token.WholeTokens(60))
	if err != nil {
		t.Fatalf("build witness: %v", err)
	}

	if err := p.Verify(proof.CircuitAllowance, witness); err != nil {
		t.Errorf("verify failed: %v", err)
	}
}

func TestAllowanceWitnessRejections(t *testing.T) {
	ledger := testLedger(t)

	t.Run("OverAllowance", func(t *testing.T) {
		_, err := proof.AllowanceWitness(ledger.Snapshot(), alice, bob, token.WholeTokens(200))
		if !errors.Is(err, token.ErrInsufficientAllowance) {
			t.Errorf("expected insufficient allowance, got: %v", err)
		}
	})

	t.Run("InfiniteAllowance", func(t *testing.T) {
		if err := ledger.Approve(alice, bob, token.MaxAllowance()); err != nil {
			t.Fatalf("approve failed: %v", err)
		}
		_, err := proof.AllowanceWitness(ledger.Snapshot(), alice, bob, token.WholeTokens(1))
		if !errors.Is(err, proof.ErrValueRange) {
			t.Errorf("expected value range error for infinite allowance, got: %v", err)
		}
	})
}

func TestTransitionProof(t *testing.T) {
	p := testProver(t)
	ledger := testLedger(t)

	pre := ledger.Snapshot()
	if err := ledger.Mint(deployer, alice, token.WholeTokens(25)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	post := ledger.Snapshot()

	witness, err := proof.TransitionWitness(pre, post, alice, token.WholeTokens(25), true)
	if err != nil {
		t.Fatalf("build witness: %v", err)
	}
	if err := p.Verify(proof.CircuitTransition, witness); err != nil {
		t.Errorf("mint transition verify failed: %v", err)
	}

	pre = post
	if err := ledger.Burn(alice, token.WholeTokens(10)); err != nil {
		t.Fatalf("burn failed: %v", err)
	}
	post = ledger.Snapshot()

	witness, err = proof.TransitionWitness(pre, post, alice, token.WholeTokens(10), false)
	if err != nil {
		t.Fatalf("build witness: %v", err)
	}
	if err := p.Verify(proof.CircuitTransition, witness); err != nil {
		t.Errorf("burn transition verify failed: %v", err)
	}
}

func TestTransitionWitnessRejections(t *testing.T) {
	ledger := testLedger(t)
	pre := ledger.Snapshot()

	if err := ledger.Mint(deployer, alice, token.WholeTokens(5)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	post := ledger.Snapshot()

	t.Run("WrongAmount", func(t *testing.T) {
		_, err := proof.TransitionWitness(pre, post, alice, token.WholeTokens(6), true)
		if !errors.Is(err, proof.ErrStateMismatch) {
			t.Errorf("expected state mismatch, got: %v", err)
		}
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		stranger := token.MustParseAddress("0x00000000000000000000000000000000000000dd")
		_, err := proof.TransitionWitness(pre, post, stranger, token.WholeTokens(1), true)
		if err == nil {
			t.Error("expected an error for an account outside the pre state")
		}
	})
}

func TestProverPersistence(t *testing.T) {
	p := testProver(t)
	dir := t.TempDir()

	c, ok := p.Get(proof.CircuitSolvency)
	if !ok {
		t.Fatal("solvency circuit not registered")
	}
	if err := c.SaveTo(dir); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	restored := proof.NewProver()
	if _, err := restored.LoadFrom(proof.CircuitSolvency, dir); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	snap := testLedger(t).Snapshot()
	witness, err := proof.SolvencyWitness(snap, alice, token.WholeTokens(1))
	if err != nil {
		t.Fatalf("build witness: %v", err)
	}
	if err := restored.Verify(proof.CircuitSolvency, witness); err != nil {
		t.Errorf("verify with restored keys failed: %v", err)
	}

	// LoadOrRegister over the populated directory adopts the stored keys.
	cached := proof.NewProver()
	if err := cached.LoadOrRegister(proof.CircuitSolvency, &proof.SolvencyCircuit{}, dir); err != nil {
		t.Fatalf("load-or-register failed: %v", err)
	}
	if err := cached.Verify(proof.CircuitSolvency, witness); err != nil {
		t.Errorf("verify with cached keys failed: %v", err)
	}
}

func TestExportVerifier(t *testing.T) {
	p := testProver(t)

	sol, err := p.ExportVerifier(proof.CircuitSolvency)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if len(sol) == 0 {
		t.Fatal("expected verifier source")
	}
}
