// Package schema describes a token contract as data: named states,
// guarded actions, the arcs connecting them, and the constraints every
// reachable state must satisfy. The declaration drives structural
// analysis, runtime verification, and Solidity generation.
package schema

import "errors"

var (
	ErrEmptyID              = errors.New("schema: element has empty ID")
	ErrDuplicateID          = errors.New("schema: duplicate element ID")
	ErrUnknownRole          = errors.New("schema: action requires undeclared role")
	ErrInvalidArcSource     = errors.New("schema: arc source not found")
	ErrInvalidArcTarget     = errors.New("schema: arc target not found")
	ErrInvalidArcConnection = errors.New("schema: arcs must connect states to actions")
)

// Schema is a complete contract declaration.
type Schema struct {
	Name        string       `json:"name"`
	Version     string       `json:"version"`
	Roles       []string     `json:"roles,omitempty"`
	States      []State      `json:"states"`
	Actions     []Action     `json:"actions"`
	Arcs        []Arc        `json:"arcs"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// State is one named piece of contract state.
type State struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Initial  string `json:"initial,omitempty"`
	Exported bool   `json:"exported,omitempty"`
}

// Action is one guarded operation.
type Action struct {
	ID       string `json:"id"`
	Guard    string `json:"guard,omitempty"`
	Requires string `json:"requires,omitempty"`
	Emits    string `json:"emits,omitempty"`
}

// Arc is a directed flow between a state and an action. A state→action
// arc debits the state when the action fires; action→state credits it.
// Keys name the bindings used to index into map-typed states.
type Arc struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Keys   []string `json:"keys,omitempty"`
	Value  string   `json:"value,omitempty"`
}

// Constraint is an expression that must hold in every reachable state.
type Constraint struct {
	ID   string `json:"id"`
	Expr string `json:"expr"`
}

// NewSchema creates an empty schema with the given name.
func NewSchema(name string) *Schema {
	return &Schema{
		Name:    name,
		Version: "v1.0.0",
	}
}

// AddState appends a state declaration.
func (s *Schema) AddState(st State) {
	s.States = append(s.States, st)
}

// AddAction appends an action declaration.
func (s *Schema) AddAction(a Action) {
	s.Actions = append(s.Actions, a)
}

// AddArc appends an arc.
func (s *Schema) AddArc(a Arc) {
	s.Arcs = append(s.Arcs, a)
}

// AddConstraint appends a constraint.
func (s *Schema) AddConstraint(c Constraint) {
	s.Constraints = append(s.Constraints, c)
}

// StateByID returns the state with the given ID, or nil.
func (s *Schema) StateByID(id string) *State {
	for i := range s.States {
		if s.States[i].ID == id {
			return &s.States[i]
		}
	}
	return nil
}

// ActionByID returns the action with the given ID, or nil.
func (s *Schema) ActionByID(id string) *Action {
	for i := range s.Actions {
		if s.Actions[i].ID == id {
			return &s.Actions[i]
		}
	}
	return nil
}

// InputArcs returns the state→action arcs feeding an action.
func (s *Schema) InputArcs(actionID string) []Arc {
	var arcs []Arc
	for _, a := range s.Arcs {
		if a.Target == actionID {
			arcs = append(arcs, a)
		}
	}
	return arcs
}

// OutputArcs returns the action→state arcs leaving an action.
func (s *Schema) OutputArcs(actionID string) []Arc {
	var arcs []Arc
	for _, a := range s.Arcs {
		if a.Source == actionID {
			arcs = append(arcs, a)
		}
	}
	return arcs
}

// HasRole reports whether the schema declares the role.
func (s *Schema) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Validate checks the schema for structural correctness: non-empty
// unique IDs, bipartite arcs with known endpoints, and declared roles.
func (s *Schema) Validate() error {
	stateIDs := make(map[string]bool)
	actionIDs := make(map[string]bool)

	for _, st := range s.States {
		if st.ID == "" {
			return ErrEmptyID
		}
		if stateIDs[st.ID] {
			return ErrDuplicateID
		}
		stateIDs[st.ID] = true
	}

	for _, a := range s.Actions {
		if a.ID == "" {
			return ErrEmptyID
		}
		if actionIDs[a.ID] || stateIDs[a.ID] {
			return ErrDuplicateID
		}
		actionIDs[a.ID] = true
		if a.Requires != "" && !s.HasRole(a.Requires) {
			return ErrUnknownRole
		}
	}

	for _, arc := range s.Arcs {
		sourceIsState := stateIDs[arc.Source]
		sourceIsAction := actionIDs[arc.Source]
		targetIsState := stateIDs[arc.Target]
		targetIsAction := actionIDs[arc.Target]

		if !sourceIsState && !sourceIsAction {
			return ErrInvalidArcSource
		}
		if !targetIsState && !targetIsAction {
			return ErrInvalidArcTarget
		}
		// Arcs connect states to actions or vice versa (bipartite).
		if sourceIsState == targetIsState {
			return ErrInvalidArcConnection
		}
	}

	return nil
}
