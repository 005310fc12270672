package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// StateInvariant is a weighted sum over states that no action changes.
// If Verify returns true, the weighted sum is constant in every
// reachable state, whatever the firing order.
type StateInvariant struct {
	Weights map[string]int
}

// String renders the invariant as its weighted-sum expression.
func (inv StateInvariant) String() string {
	var terms []string
	for state, weight := range inv.Weights {
		switch {
		case weight == 1:
			terms = append(terms, state)
		case weight == -1:
			terms = append(terms, "-"+state)
		case weight != 0:
			terms = append(terms, fmt.Sprintf("%d*%s", weight, state))
		}
	}
	sort.Strings(terms)
	return strings.Join(terms, " + ") + " == const"
}

// Verify checks the invariant structurally: for every action, the
// weighted sum of its deltas must be zero.
func (inv StateInvariant) Verify(m *DeltaMatrix) bool {
	for _, action := range m.Actions {
		sum := 0
		for state, weight := range inv.Weights {
			sum += weight * m.Get(state, action)
		}
		if sum != 0 {
			return false
		}
	}
	return true
}

// ViolatingActions lists the actions whose weighted delta is nonzero.
func (inv StateInvariant) ViolatingActions(m *DeltaMatrix) []string {
	var out []string
	for _, action := range m.Actions {
		sum := 0
		for state, weight := range inv.Weights {
			sum += weight * m.Get(state, action)
		}
		if sum != 0 {
			out = append(out, action)
		}
	}
	return out
}

// Result classifies a schema's actions by their structural effect.
type Result struct {
	// ConservativeActions neither create nor destroy value: their
	// deltas sum to zero across all states.
	ConservativeActions []string
	// NonConservativeActions have a nonzero net effect (mint, burn,
	// and set-style actions such as approve).
	NonConservativeActions []string
	// SupplyIncreasing and SupplyDecreasing list the actions that
	// credit or debit the supply state.
	SupplyIncreasing []string
	SupplyDecreasing []string
}

// Analyze classifies every action of the schema. supplyState names the
// state whose deltas define the supply-affecting classes.
func Analyze(m *DeltaMatrix, supplyState string) *Result {
	result := &Result{}
	for _, action := range m.Actions {
		net := 0
		for _, state := range m.States {
			net += m.Get(state, action)
		}
		if net == 0 {
			result.ConservativeActions = append(result.ConservativeActions, action)
		} else {
			result.NonConservativeActions = append(result.NonConservativeActions, action)
		}

		switch delta := m.Get(supplyState, action); {
		case delta > 0:
			result.SupplyIncreasing = append(result.SupplyIncreasing, action)
		case delta < 0:
			result.SupplyDecreasing = append(result.SupplyDecreasing, action)
		}
	}
	return result
}
