package analysis

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/pflow-xyz/go-mona/guard"
	"github.com/pflow-xyz/go-mona/schema"
	"github.com/pflow-xyz/go-mona/token"
)

// Violation is a constraint that failed against a snapshot. Err is nil
// when the constraint evaluated cleanly to false, and carries the
// evaluation error otherwise.
type Violation struct {
	Constraint schema.Constraint
	Err        error
}

func (v Violation) String() string {
	if v.Err != nil {
		return fmt.Sprintf("%s: %v", v.Constraint.ID, v.Err)
	}
	return fmt.Sprintf("%s: %s does not hold", v.Constraint.ID, v.Constraint.Expr)
}

// SnapshotBindings converts ledger state into guard bindings: balances
// and allowances as maps keyed by address string, totalSupply as a
// uint256, paused as a bool.
func SnapshotBindings(snap *token.Snapshot) map[string]any {
	balances := make(map[string]any, len(snap.Balances))
	for a, bal := range snap.Balances {
		balances[a.String()] = new(uint256.Int).Set(bal)
	}

	allowances := make(map[string]any, len(snap.Allowances))
	for owner, spenders := range snap.Allowances {
		inner := make(map[string]any, len(spenders))
		for spender, alw := range spenders {
			inner[spender.String()] = new(uint256.Int).Set(alw)
		}
		allowances[owner.String()] = inner
	}

	return map[string]any{
		"totalSupply": new(uint256.Int).Set(snap.TotalSupply),
		"balances":    balances,
		"allowances":  allowances,
		"paused":      snap.Paused,
	}
}

// CheckConstraints evaluates every schema constraint against the
// snapshot and returns the violations, empty when all hold.
func CheckConstraints(s *schema.Schema, snap *token.Snapshot) []Violation {
	bindings := SnapshotBindings(snap)

	var violations []Violation
	for _, c := range s.Constraints {
		ok, err := guard.Evaluate(c.Expr, bindings, nil)
		if err != nil {
			violations = append(violations, Violation{Constraint: c, Err: err})
			continue
		}
		if !ok {
			violations = append(violations, Violation{Constraint: c})
		}
	}
	return violations
}

// ActionAllowed decides whether an action could fire for the caller in
// the snapshot state: the caller must hold the action's required role
// and the guard must pass under the merged bindings. Call bindings
// (from, to, amount, ...) shadow state bindings on collision.
func ActionAllowed(s *schema.Schema, snap *token.Snapshot, actionID string, caller token.Address, call map[string]any) (bool, error) {
	action := s.ActionByID(actionID)
	if action == nil {
		return false, fmt.Errorf("analysis: unknown action %q", actionID)
	}

	if action.Requires != "" {
		role := token.Role(action.Requires)
		if !hasMember(snap, role, caller) {
			return false, nil
		}
	}

	if action.Guard == "" {
		return true, nil
	}

	bindings := SnapshotBindings(snap)
	bindings["caller"] = caller.String()
	for k, v := range call {
		bindings[k] = v
	}
	return guard.Evaluate(action.Guard, bindings, nil)
}

func hasMember(snap *token.Snapshot, role token.Role, a token.Address) bool {
	for _, member := range snap.Roles[role] {
		if member == a {
			return true
		}
	}
	return false
}
