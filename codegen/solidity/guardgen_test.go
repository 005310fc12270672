package solidity

import (
	"testing"
)

func ledgerStates() map[string]bool {
	return map[string]bool{
		"totalSupply": true,
		"balances":    true,
		"allowances":  true,
		"paused":      true,
		"roles":       true,
	}
}

func TestGuardTranslator(t *testing.T) {
	tests := []struct {
		name     string
		guard    string
		wantReqs []string
		wantErr  bool
	}{
		{
			name:  "balance check",
			guard: "balances[caller] >= amount",
			wantReqs: []string{
				`require(balances[msg.sender] >= amount, "insufficient balance");`,
			},
		},
		{
			name:  "transfer guard",
			guard: "!paused && balances[caller] >= amount && to != address(0)",
			wantReqs: []string{
				`require(!paused, "paused");`,
				`require(balances[msg.sender] >= amount, "insufficient balance");`,
				`require(to != address(0), "zero address");`,
			},
		},
		{
			name:  "allowance check",
			guard: "allowances[from][caller] >= amount",
			wantReqs: []string{
				`require(allowances[from][msg.sender] >= amount, "insufficient allowance");`,
			},
		},
		{
			name:  "unpause guard",
			guard: "paused",
			wantReqs: []string{
				`require(paused, "not paused");`,
			},
		},
		{
			name:  "authorization check",
			guard: "caller == from || roles[role][caller]",
			wantReqs: []string{
				`require(msg.sender == from || roles[role][msg.sender], "not authorized");`,
			},
		},
		{
			name:  "plain comparison keeps its expression",
			guard: "count > 0",
			wantReqs: []string{
				`require(count > 0, "count > 0");`,
			},
		},
		{
			name:     "empty guard",
			guard:    "",
			wantReqs: nil,
		},
		{
			name:    "unparsable guard",
			guard:   "balances[",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translator := NewGuardTranslator(ledgerStates())
			reqs, err := translator.TranslateGuard(tt.guard)

			if (err != nil) != tt.wantErr {
				t.Errorf("TranslateGuard() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if len(reqs) != len(tt.wantReqs) {
				t.Errorf("TranslateGuard() got %d requires, want %d", len(reqs), len(tt.wantReqs))
				t.Logf("got: %v", reqs)
				return
			}

			for i, req := range reqs {
				if req != tt.wantReqs[i] {
					t.Errorf("require[%d] = %q, want %q", i, req, tt.wantReqs[i])
				}
			}
		})
	}
}

func TestExtractParameters(t *testing.T) {
	tests := []struct {
		name       string
		guard      string
		wantParams []string
	}{
		{
			name:       "transfer guard",
			guard:      "!paused && balances[caller] >= amount && to != address(0)",
			wantParams: []string{"to", "amount"},
		},
		{
			name:       "transferFrom guard",
			guard:      "balances[from] >= amount && allowances[from][caller] >= amount",
			wantParams: []string{"from", "amount"},
		},
		{
			name:       "role guard",
			guard:      "roles[role][caller]",
			wantParams: []string{"role"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translator := NewGuardTranslator(ledgerStates())
			params, err := translator.ExtractParameters(tt.guard)
			if err != nil {
				t.Fatalf("ExtractParameters() error = %v", err)
			}

			for _, want := range tt.wantParams {
				if _, ok := params[want]; !ok {
					t.Errorf("missing parameter %q, got %v", want, params)
				}
			}

			if _, ok := params["caller"]; ok {
				t.Error("caller should not be a parameter")
			}
			for _, state := range []string{"balances", "allowances", "paused", "roles", "totalSupply"} {
				if _, ok := params[state]; ok {
					t.Errorf("state %q should not be a parameter", state)
				}
			}
		})
	}
}

func TestParameterTypes(t *testing.T) {
	translator := NewGuardTranslator(ledgerStates())
	params, err := translator.ExtractParameters("roles[role][caller] && to != address(0) && amount > 0")
	if err != nil {
		t.Fatalf("ExtractParameters() error = %v", err)
	}

	want := map[string]string{
		"role":   "bytes32",
		"to":     "address",
		"amount": "uint256",
	}
	for name, typ := range want {
		if got := params[name]; got != typ {
			t.Errorf("parameter %s type = %q, want %q", name, got, typ)
		}
	}
}

func TestTranslateGuardTextFallback(t *testing.T) {
	reqs := translateGuardText("balances[caller] >= amount && to != address(0)")
	if len(reqs) != 2 {
		t.Fatalf("got %d requires, want 2", len(reqs))
	}
	if reqs[0] != `require(balances[msg.sender] >= amount, "precondition failed");` {
		t.Errorf("unexpected first require: %s", reqs[0])
	}
}
