// Package analysis proves structural properties of a contract schema
// and checks its declared constraints against live ledger state. The
// delta matrix records how each action moves value between states;
// weighted invariants verified against it hold in every reachable
// state, not just the ones a test happens to visit.
package analysis

import (
	"sort"

	"github.com/pflow-xyz/go-mona/schema"
)

// DeltaMatrix records the net effect of each action on each state.
// Entry (i,j) is the value added to state i when action j fires;
// state→action arcs contribute -1, action→state arcs +1.
type DeltaMatrix struct {
	States  []string // state IDs, row order
	Actions []string // action IDs, column order
	Matrix  [][]int  // [state][action] deltas

	stateIdx  map[string]int
	actionIdx map[string]int
}

// BuildDeltaMatrix constructs the delta matrix from a schema.
// Keyed arcs count with unit weight; the matrix captures structure,
// not amounts.
func BuildDeltaMatrix(s *schema.Schema) *DeltaMatrix {
	states := make([]string, len(s.States))
	for i, st := range s.States {
		states[i] = st.ID
	}
	sort.Strings(states)

	actions := make([]string, len(s.Actions))
	for i, a := range s.Actions {
		actions[i] = a.ID
	}
	sort.Strings(actions)

	stateIdx := make(map[string]int, len(states))
	for i, id := range states {
		stateIdx[id] = i
	}
	actionIdx := make(map[string]int, len(actions))
	for i, id := range actions {
		actionIdx[id] = i
	}

	matrix := make([][]int, len(states))
	for i := range matrix {
		matrix[i] = make([]int, len(actions))
	}

	for _, arc := range s.Arcs {
		if aIdx, ok := actionIdx[arc.Source]; ok {
			// action→state: credit.
			if sIdx, ok := stateIdx[arc.Target]; ok {
				matrix[sIdx][aIdx]++
			}
		} else if aIdx, ok := actionIdx[arc.Target]; ok {
			// state→action: debit.
			if sIdx, ok := stateIdx[arc.Source]; ok {
				matrix[sIdx][aIdx]--
			}
		}
	}

	return &DeltaMatrix{
		States:    states,
		Actions:   actions,
		Matrix:    matrix,
		stateIdx:  stateIdx,
		actionIdx: actionIdx,
	}
}

// Get returns the delta for a state/action pair, zero when unknown.
func (m *DeltaMatrix) Get(state, action string) int {
	sIdx, ok1 := m.stateIdx[state]
	aIdx, ok2 := m.actionIdx[action]
	if !ok1 || !ok2 {
		return 0
	}
	return m.Matrix[sIdx][aIdx]
}
