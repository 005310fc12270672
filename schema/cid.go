package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// CID computes the content-addressed identifier of the schema.
// Any change to the declaration changes the CID.
func (s *Schema) CID() string {
	data, err := json.Marshal(s.normalize())
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return "cid:" + hex.EncodeToString(hash[:])
}

// IdentityHash computes a structural fingerprint: two schemas with the
// same states, actions, and arcs share it even if name, version, or
// constraints differ.
func (s *Schema) IdentityHash() string {
	structural := struct {
		States  []State  `json:"states"`
		Actions []Action `json:"actions"`
		Arcs    []Arc    `json:"arcs"`
	}{
		States:  s.normalizeStates(),
		Actions: s.normalizeActions(),
		Arcs:    s.normalizeArcs(),
	}

	data, err := json.Marshal(structural)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return "idh:" + hex.EncodeToString(hash[:16])
}

// Equal reports whether two schemas have the same CID.
func (s *Schema) Equal(other *Schema) bool {
	return other != nil && s.CID() == other.CID()
}

// normalize creates a deterministically ordered copy for hashing.
func (s *Schema) normalize() *Schema {
	roles := make([]string, len(s.Roles))
	copy(roles, s.Roles)
	sort.Strings(roles)

	constraints := make([]Constraint, len(s.Constraints))
	copy(constraints, s.Constraints)
	sort.Slice(constraints, func(i, j int) bool {
		return constraints[i].ID < constraints[j].ID
	})

	return &Schema{
		Name:        s.Name,
		Version:     s.Version,
		Roles:       roles,
		States:      s.normalizeStates(),
		Actions:     s.normalizeActions(),
		Arcs:        s.normalizeArcs(),
		Constraints: constraints,
	}
}

func (s *Schema) normalizeStates() []State {
	states := make([]State, len(s.States))
	copy(states, s.States)
	sort.Slice(states, func(i, j int) bool {
		return states[i].ID < states[j].ID
	})
	return states
}

func (s *Schema) normalizeActions() []Action {
	actions := make([]Action, len(s.Actions))
	copy(actions, s.Actions)
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].ID < actions[j].ID
	})
	return actions
}

func (s *Schema) normalizeArcs() []Arc {
	arcs := make([]Arc, len(s.Arcs))
	copy(arcs, s.Arcs)
	sort.Slice(arcs, func(i, j int) bool {
		if arcs[i].Source != arcs[j].Source {
			return arcs[i].Source < arcs[j].Source
		}
		return arcs[i].Target < arcs[j].Target
	})
	return arcs
}
