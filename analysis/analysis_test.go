package analysis_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-mona/analysis"
	"github.com/pflow-xyz/go-mona/token"
)

var (
	deployer = token.MustParseAddress("0x00000000000000000000000000000000000000aa")
	alice    = token.MustParseAddress("0x00000000000000000000000000000000000000bb")
	bob      = token.MustParseAddress("0x00000000000000000000000000000000000000cc")
)

func TestDeltaMatrix(t *testing.T) {
	m := analysis.BuildDeltaMatrix(token.Schema())

	cases := []struct {
		state, action string
		want          int
	}{
		// Transfers debit and credit balances equally.
		{"balances", "transfer", 0},
		{"balances", "transferFrom", 0},
		{"totalSupply", "transfer", 0},
		// Mint credits both balances and supply; burn debits both.
		{"balances", "mint", 1},
		{"totalSupply", "mint", 1},
		{"balances", "burn", -1},
		{"totalSupply", "burn", -1},
		// Approvals write the allowance table; spending draws it down.
		{"allowances", "approve", 1},
		{"allowances", "transferFrom", -1},
		// Flag and membership actions move no value.
		{"balances", "pause", 0},
		{"balances", "grantRole", 0},
		// Unknown pairs read zero.
		{"ghost", "transfer", 0},
		{"balances", "ghost", 0},
	}
	for _, tc := range cases {
		if got := m.Get(tc.state, tc.action); got != tc.want {
			t.Errorf("delta(%s, %s): expected %d, got %d", tc.state, tc.action, tc.want, got)
		}
	}
}

func TestAnalyzeClassifiesActions(t *testing.T) {
	m := analysis.BuildDeltaMatrix(token.Schema())
	result := analysis.Analyze(m, "totalSupply")

	wantConservative := []string{"grantRole", "pause", "revokeRole", "transfer", "unpause"}
	if !reflect.DeepEqual(result.ConservativeActions, wantConservative) {
		t.Errorf("conservative actions: expected %v, got %v", wantConservative, result.ConservativeActions)
	}
	wantNonConservative := []string{"approve", "burn", "mint", "transferFrom"}
	if !reflect.DeepEqual(result.NonConservativeActions, wantNonConservative) {
		t.Errorf("non-conservative actions: expected %v, got %v", wantNonConservative, result.NonConservativeActions)
	}
	if !reflect.DeepEqual(result.SupplyIncreasing, []string{"mint"}) {
		t.Errorf("expected only mint to increase supply, got %v", result.SupplyIncreasing)
	}
	if !reflect.DeepEqual(result.SupplyDecreasing, []string{"burn"}) {
		t.Errorf("expected only burn to decrease supply, got %v", result.SupplyDecreasing)
	}
}

func TestConservationInvariant(t *testing.T) {
	m := analysis.BuildDeltaMatrix(token.Schema())

	conservation := analysis.StateInvariant{Weights: map[string]int{
		"balances":    1,
		"totalSupply": -1,
	}}
	if !conservation.Verify(m) {
		t.Errorf("conservation should hold structurally, violated by %v", conservation.ViolatingActions(m))
	}
	if s := conservation.String(); !strings.Contains(s, "== const") {
		t.Errorf("unexpected invariant rendering: %q", s)
	}

	// Balances alone are not invariant: mint and burn move them without
	// a matching balance counterweight.
	balancesOnly := analysis.StateInvariant{Weights: map[string]int{"balances": 1}}
	if balancesOnly.Verify(m) {
		t.Error("balances alone should not be invariant")
	}
	want := []string{"burn", "mint"}
	if got := balancesOnly.ViolatingActions(m); !reflect.DeepEqual(got, want) {
		t.Errorf("expected violations %v, got %v", want, got)
	}
}

func TestCheckConstraints(t *testing.T) {
	l, err := token.NewLedger(deployer)
	if err != nil {
		t.Fatalf("new ledger failed: %v", err)
	}
	if err := l.Transfer(deployer, alice, token.WholeTokens(10)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	s := token.Schema()
	if violations := analysis.CheckConstraints(s, l.Snapshot()); len(violations) != 0 {
		t.Fatalf("healthy ledger reported violations: %v", violations)
	}

	// A corrupted snapshot must trip the conservation constraint.
	snap := l.Snapshot()
	snap.TotalSupply.Add(snap.TotalSupply, uint256.NewInt(1))
	violations := analysis.CheckConstraints(s, snap)
	if len(violations) != 1 {
		t.Fatalf("expected one violation, got %v", violations)
	}
	if !strings.Contains(violations[0].String(), "conservation") {
		t.Errorf("expected the conservation constraint, got %q", violations[0].String())
	}
}

func TestSnapshotBindings(t *testing.T) {
	l, err := token.NewLedger(deployer)
	if err != nil {
		t.Fatalf("new ledger failed: %v", err)
	}
	if err := l.Approve(deployer, alice, token.WholeTokens(5)); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	b := analysis.SnapshotBindings(l.Snapshot())

	supply, ok := b["totalSupply"].(*uint256.Int)
	if !ok || !supply.Eq(token.InitialSupply()) {
		t.Errorf("totalSupply binding wrong: %v", b["totalSupply"])
	}
	balances, ok := b["balances"].(map[string]any)
	if !ok {
		t.Fatalf("balances binding is %T", b["balances"])
	}
	bal, ok := balances[deployer.String()].(*uint256.Int)
	if !ok || !bal.Eq(token.InitialSupply()) {
		t.Errorf("deployer balance binding wrong: %v", balances[deployer.String()])
	}
	allowances, ok := b["allowances"].(map[string]any)
	if !ok {
		t.Fatalf("allowances binding is %T", b["allowances"])
	}
	row, ok := allowances[deployer.String()].(map[string]any)
	if !ok {
		t.Fatalf("allowance row is %T", allowances[deployer.String()])
	}
	if alw, ok := row[alice.String()].(*uint256.Int); !ok || !alw.Eq(token.WholeTokens(5)) {
		t.Errorf("allowance binding wrong: %v", row[alice.String()])
	}
	if paused, ok := b["paused"].(bool); !ok || paused {
		t.Errorf("paused binding wrong: %v", b["paused"])
	}
}

// TestActionAllowedMatchesLedger runs the same situations through the
// schema guards and the hand-written ledger and requires them to agree.
func TestActionAllowedMatchesLedger(t *testing.T) {
	s := token.Schema()

	cases := []struct {
		name   string
		setup  func(t *testing.T, l *token.Ledger)
		action string
		caller token.Address
		call   map[string]any
		run    func(l *token.Ledger) error
	}{
		{
			name:   "transfer within balance",
			action: "transfer",
			caller: deployer,
			call:   map[string]any{"to": alice.String(), "amount": token.WholeTokens(10)},
			run:    func(l *token.Ledger) error { return l.Transfer(deployer, alice, token.WholeTokens(10)) },
		},
		{
			name:   "transfer beyond balance",
			action: "transfer",
			caller: alice,
			call:   map[string]any{"to": bob.String(), "amount": token.WholeTokens(1)},
			run:    func(l *token.Ledger) error { return l.Transfer(alice, bob, token.WholeTokens(1)) },
		},
		{
			name: "transfer while paused",
			setup: func(t *testing.T, l *token.Ledger) {
				if err := l.Pause(deployer); err != nil {
					t.Fatalf("pause failed: %v", err)
				}
			},
			action: "transfer",
			caller: deployer,
			call:   map[string]any{"to": alice.String(), "amount": token.WholeTokens(1)},
			run:    func(l *token.Ledger) error { return l.Transfer(deployer, alice, token.WholeTokens(1)) },
		},
		{
			name:   "transfer to zero address",
			action: "transfer",
			caller: deployer,
			call:   map[string]any{"to": token.ZeroAddress.String(), "amount": token.WholeTokens(1)},
			run:    func(l *token.Ledger) error { return l.Transfer(deployer, token.ZeroAddress, token.WholeTokens(1)) },
		},
		{
			name:   "mint without role",
			action: "mint",
			caller: alice,
			call:   map[string]any{"to": bob.String(), "amount": token.WholeTokens(1)},
			run:    func(l *token.Ledger) error { return l.Mint(alice, bob, token.WholeTokens(1)) },
		},
		{
			name:   "mint with role",
			action: "mint",
			caller: deployer,
			call:   map[string]any{"to": bob.String(), "amount": token.WholeTokens(1)},
			run:    func(l *token.Ledger) error { return l.Mint(deployer, bob, token.WholeTokens(1)) },
		},
		{
			name: "transferFrom within allowance",
			setup: func(t *testing.T, l *token.Ledger) {
				if err := l.Approve(deployer, alice, token.WholeTokens(50)); err != nil {
					t.Fatalf("approve failed: %v", err)
				}
			},
			action: "transferFrom",
			caller: alice,
			call:   map[string]any{"from": deployer.String(), "to": bob.String(), "amount": token.WholeTokens(20)},
			run:    func(l *token.Ledger) error { return l.TransferFrom(alice, deployer, bob, token.WholeTokens(20)) },
		},
		{
			name: "transferFrom beyond allowance",
			setup: func(t *testing.T, l *token.Ledger) {
				if err := l.Approve(deployer, alice, token.WholeTokens(5)); err != nil {
					t.Fatalf("approve failed: %v", err)
				}
			},
			action: "transferFrom",
			caller: alice,
			call:   map[string]any{"from": deployer.String(), "to": bob.String(), "amount": token.WholeTokens(20)},
			run:    func(l *token.Ledger) error { return l.TransferFrom(alice, deployer, bob, token.WholeTokens(20)) },
		},
		{
			name:   "burn beyond balance",
			action: "burn",
			caller: alice,
			call:   map[string]any{"amount": token.WholeTokens(1)},
			run:    func(l *token.Ledger) error { return l.Burn(alice, token.WholeTokens(1)) },
		},
		{
			name:   "pause by pauser",
			action: "pause",
			caller: deployer,
			call:   map[string]any{},
			run:    func(l *token.Ledger) error { return l.Pause(deployer) },
		},
		{
			name:   "pause by outsider",
			action: "pause",
			caller: alice,
			call:   map[string]any{},
			run:    func(l *token.Ledger) error { return l.Pause(alice) },
		},
		{
			name:   "unpause when not paused",
			action: "unpause",
			caller: deployer,
			call:   map[string]any{},
			run:    func(l *token.Ledger) error { return l.Unpause(deployer) },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := token.NewLedger(deployer)
			if err != nil {
				t.Fatalf("new ledger failed: %v", err)
			}
			if tc.setup != nil {
				tc.setup(t, l)
			}

			allowed, err := analysis.ActionAllowed(s, l.Snapshot(), tc.action, tc.caller, tc.call)
			if err != nil {
				t.Fatalf("ActionAllowed failed: %v", err)
			}
			applied := tc.run(l) == nil
			if allowed != applied {
				t.Errorf("schema allows=%v but ledger applied=%v", allowed, applied)
			}
		})
	}
}

func TestActionAllowedUnknownAction(t *testing.T) {
	l, err := token.NewLedger(deployer)
	if err != nil {
		t.Fatalf("new ledger failed: %v", err)
	}
	if _, err := analysis.ActionAllowed(token.Schema(), l.Snapshot(), "frobnicate", deployer, nil); err == nil {
		t.Error("expected an error for an unknown action")
	}
}
