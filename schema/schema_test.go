package schema_test

import (
	"errors"
	"testing"

	"github.com/pflow-xyz/go-mona/schema"
)

// counter declares a minimal valid schema for the structural tests.
func counter() *schema.Schema {
	return schema.Build("counter").
		Roles("operator").
		Data("count", "uint256").Initial("0").
		Action("increment").Requires("operator").Emits("incremented").
		Flow("increment", "count").
		Constraint("positive", "count >= 0").
		MustSchema()
}

func TestBuilder(t *testing.T) {
	s := counter()

	if s.Version != "v1.0.0" {
		t.Errorf("expected default version v1.0.0, got %q", s.Version)
	}
	st := s.StateByID("count")
	if st == nil || st.Initial != "0" {
		t.Fatalf("state not built as declared: %+v", st)
	}
	a := s.ActionByID("increment")
	if a == nil || a.Requires != "operator" || a.Emits != "incremented" {
		t.Fatalf("action not built as declared: %+v", a)
	}
	if s.StateByID("missing") != nil || s.ActionByID("missing") != nil {
		t.Error("lookup of missing elements should return nil")
	}
}

func TestArcLookups(t *testing.T) {
	s := schema.Build("flows").
		Data("a", "uint256").
		Data("b", "uint256").
		Action("move").
		Flow("a", "move").Keys("caller").
		Flow("move", "b").
		MustSchema()

	in := s.InputArcs("move")
	if len(in) != 1 || in[0].Source != "a" {
		t.Errorf("expected one input arc from a, got %v", in)
	}
	if len(in) == 1 && (len(in[0].Keys) != 1 || in[0].Keys[0] != "caller") {
		t.Errorf("expected arc keyed by caller, got %v", in[0].Keys)
	}
	out := s.OutputArcs("move")
	if len(out) != 1 || out[0].Target != "b" {
		t.Errorf("expected one output arc to b, got %v", out)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		s    *schema.Schema
		want error
	}{
		{
			name: "empty state id",
			s: &schema.Schema{
				States: []schema.State{{ID: ""}},
			},
			want: schema.ErrEmptyID,
		},
		{
			name: "duplicate state",
			s: &schema.Schema{
				States: []schema.State{{ID: "x"}, {ID: "x"}},
			},
			want: schema.ErrDuplicateID,
		},
		{
			name: "action shadows state",
			s: &schema.Schema{
				States:  []schema.State{{ID: "x"}},
				Actions: []schema.Action{{ID: "x"}},
			},
			want: schema.ErrDuplicateID,
		},
		{
			name: "undeclared role",
			s: &schema.Schema{
				Actions: []schema.Action{{ID: "op", Requires: "ghost"}},
			},
			want: schema.ErrUnknownRole,
		},
		{
			name: "arc from nowhere",
			s: &schema.Schema{
				Actions: []schema.Action{{ID: "op"}},
				Arcs:    []schema.Arc{{Source: "ghost", Target: "op"}},
			},
			want: schema.ErrInvalidArcSource,
		},
		{
			name: "arc to nowhere",
			s: &schema.Schema{
				States: []schema.State{{ID: "x"}},
				Arcs:   []schema.Arc{{Source: "x", Target: "ghost"}},
			},
			want: schema.ErrInvalidArcTarget,
		},
		{
			name: "state to state arc",
			s: &schema.Schema{
				States: []schema.State{{ID: "x"}, {ID: "y"}},
				Arcs:   []schema.Arc{{Source: "x", Target: "y"}},
			},
			want: schema.ErrInvalidArcConnection,
		},
		{
			name: "action to action arc",
			s: &schema.Schema{
				Actions: []schema.Action{{ID: "op"}, {ID: "other"}},
				Arcs:    []schema.Arc{{Source: "op", Target: "other"}},
			},
			want: schema.ErrInvalidArcConnection,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.s.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got: %v", tc.want, err)
			}
		})
	}
}

func TestBuilderRejectsInvalid(t *testing.T) {
	_, err := schema.Build("bad").
		Action("op").Requires("ghost").
		Schema()
	if !errors.Is(err, schema.ErrUnknownRole) {
		t.Errorf("expected ErrUnknownRole, got: %v", err)
	}
}

func TestCIDIgnoresDeclarationOrder(t *testing.T) {
	a := counter()

	// The same contract declared with elements in a different order.
	b := &schema.Schema{
		Name:        a.Name,
		Version:     a.Version,
		Roles:       a.Roles,
		States:      a.States,
		Actions:     a.Actions,
		Arcs:        a.Arcs,
		Constraints: a.Constraints,
	}
	b.Roles = append([]string{}, a.Roles...)
	b.Constraints = append([]schema.Constraint{{ID: "zz", Expr: "count < 100"}}, a.Constraints...)
	a.AddConstraint(schema.Constraint{ID: "zz", Expr: "count < 100"})

	if a.CID() != b.CID() {
		t.Error("constraint order changed the CID")
	}
	if !a.Equal(b) {
		t.Error("expected order-permuted schemas to be equal")
	}
}

func TestCIDTracksContent(t *testing.T) {
	a := counter()
	b := counter()
	b.ActionByID("increment").Guard = "count < 10"

	if a.CID() == b.CID() {
		t.Error("guard change did not change the CID")
	}
	if a.Equal(b) {
		t.Error("changed schemas compare equal")
	}
}

func TestIdentityHashIgnoresMetadata(t *testing.T) {
	a := counter()
	b := counter()
	b.Name = "renamed"
	b.Version = "v9.9.9"
	b.Constraints = nil

	if a.IdentityHash() != b.IdentityHash() {
		t.Error("metadata changed the identity hash")
	}
	if a.CID() == b.CID() {
		t.Error("metadata did not change the CID")
	}

	c := counter()
	c.AddState(schema.State{ID: "extra", Type: "bool"})
	if a.IdentityHash() == c.IdentityHash() {
		t.Error("structural change did not change the identity hash")
	}
}
