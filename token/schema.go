package token

import (
	"github.com/pflow-xyz/go-mona/schema"
)

// Schema declares the ledger as data: its states, guarded actions, and
// the conservation constraint. The declaration is what the analysis,
// verification, and Solidity generation packages consume; ledger.go is
// its hand-written execution.
//
// Pause and role actions carry no arcs: they flip flags and membership
// rather than moving value, so they cannot disturb conservation.
func Schema() *schema.Schema {
	return schema.Build(Name).
		Version("MONA:1.0.0").
		Roles(string(RoleAdmin), string(RoleMinter), string(RolePauser)).
		// States
		Data("totalSupply", "uint256").Initial(InitialSupply().Dec()).Exported().
		Data("balances", "map[address]uint256").Exported().
		Data("allowances", "map[address]map[address]uint256").Exported().
		Data("paused", "bool").Initial("false").Exported().
		Data("roles", "map[role]set[address]").Exported().
		// Actions with guards. Bindings mirror the ledger call
		// signatures: transfer and burn debit the caller, approve
		// writes the caller's allowance row.
		Action("transfer").
		Guard("!paused && balances[caller] >= amount && to != address(0)").
		Emits(EventTransfer).
		Action("approve").
		Guard("spender != address(0)").
		Emits(EventApproval).
		Action("transferFrom").
		Guard("!paused && balances[from] >= amount && allowances[from][caller] >= amount && to != address(0)").
		Emits(EventTransfer).
		Action("mint").
		Guard("to != address(0)").
		Requires(string(RoleMinter)).
		Emits(EventMint).
		Action("burn").
		Guard("balances[caller] >= amount").
		Emits(EventBurn).
		Action("pause").
		Guard("!paused").
		Requires(string(RolePauser)).
		Emits(EventPaused).
		Action("unpause").
		Guard("paused").
		Requires(string(RolePauser)).
		Emits(EventUnpaused).
		Action("grantRole").
		Requires(string(RoleAdmin)).
		Emits(EventRoleGranted).
		Action("revokeRole").
		Requires(string(RoleAdmin)).
		Emits(EventRoleRevoked).
		// Transfer flows
		Flow("balances", "transfer").Keys("caller").
		Flow("transfer", "balances").Keys("to").
		// Approve flows
		Flow("approve", "allowances").Keys("caller", "spender").
		// TransferFrom flows
		Flow("balances", "transferFrom").Keys("from").
		Flow("allowances", "transferFrom").Keys("from", "caller").
		Flow("transferFrom", "balances").Keys("to").
		// Mint flows
		Flow("mint", "balances").Keys("to").
		Flow("mint", "totalSupply").
		// Burn flows
		Flow("balances", "burn").Keys("caller").
		Flow("totalSupply", "burn").
		// Invariants
		Constraint("conservation", "sum(balances) == totalSupply").
		MustSchema()
}
