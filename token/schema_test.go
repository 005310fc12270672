package token_test

import (
	"testing"

	"github.com/pflow-xyz/go-mona/token"
)

func TestSchemaDeclaration(t *testing.T) {
	s := token.Schema()

	if err := s.Validate(); err != nil {
		t.Fatalf("schema does not validate: %v", err)
	}
	if s.Name != token.Name {
		t.Errorf("expected schema name %q, got %q", token.Name, s.Name)
	}
	if len(s.Actions) != 9 {
		t.Errorf("expected 9 actions, got %d", len(s.Actions))
	}
	if len(s.States) != 5 {
		t.Errorf("expected 5 states, got %d", len(s.States))
	}
	if len(s.Roles) != len(token.Roles) {
		t.Errorf("expected %d roles, got %d", len(token.Roles), len(s.Roles))
	}

	// The declaration is stable: its CID pins the contract version.
	if s.CID() != token.Schema().CID() {
		t.Error("schema CID is not deterministic")
	}
}

func TestSchemaRoleGates(t *testing.T) {
	s := token.Schema()

	gates := map[string]string{
		"transfer":     "",
		"approve":      "",
		"transferFrom": "",
		"burn":         "",
		"mint":         string(token.RoleMinter),
		"pause":        string(token.RolePauser),
		"unpause":      string(token.RolePauser),
		"grantRole":    string(token.RoleAdmin),
		"revokeRole":   string(token.RoleAdmin),
	}
	for id, want := range gates {
		action := s.ActionByID(id)
		if action == nil {
			t.Errorf("action %q not declared", id)
			continue
		}
		if action.Requires != want {
			t.Errorf("action %q: expected required role %q, got %q", id, want, action.Requires)
		}
	}
}

func TestSchemaEmitsWireEvents(t *testing.T) {
	s := token.Schema()

	emits := map[string]string{
		"transfer":     token.EventTransfer,
		"transferFrom": token.EventTransfer,
		"approve":      token.EventApproval,
		"mint":         token.EventMint,
		"burn":         token.EventBurn,
		"pause":        token.EventPaused,
		"unpause":      token.EventUnpaused,
		"grantRole":    token.EventRoleGranted,
		"revokeRole":   token.EventRoleRevoked,
	}
	for id, want := range emits {
		action := s.ActionByID(id)
		if action == nil {
			t.Errorf("action %q not declared", id)
			continue
		}
		if action.Emits != want {
			t.Errorf("action %q: expected emit %q, got %q", id, want, action.Emits)
		}
	}
}
