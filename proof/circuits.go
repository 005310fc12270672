// Package proof generates zero-knowledge proofs about ledger state:
// an account can cover an amount, a spender's allowance covers a
// transfer, or a mint/burn moved one balance by exactly the claimed
// amount. Circuits verify Merkle membership against the stateroot
// commitment layout, so a proof binds to a specific state root.
package proof

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/pflow-xyz/go-mona/stateroot"
)

// Depth matches the commitment tree depth. Circuits are compiled for
// exactly this many Merkle levels.
const Depth = stateroot.DefaultDepth

// AmountBits bounds every amount and balance a circuit range-checks.
// Token amounts are wei-scale, so 64 bits is too small and 128 covers
// any plausible supply.
const AmountBits = 128

// Circuit names for the prover registry.
const (
	CircuitSolvency   = "solvency"
	CircuitAllowance  = "allowance"
	CircuitTransition = "transition"
)

// mimcHash computes MiMC(left, right) in-circuit.
func mimcHash(api frontend.API, left, right frontend.Variable) frontend.Variable {
	h, _ := mimc.NewMiMC(api)
	h.Write(left)
	h.Write(right)
	return h.Sum()
}

// MerklePath carries the sibling nodes and index bits of one leaf.
type MerklePath struct {
	Siblings [Depth]frontend.Variable
	Bits     [Depth]frontend.Variable
}

// fold hashes a leaf up the path and returns the implied root.
func (p *MerklePath) fold(api frontend.API, leaf frontend.Variable) frontend.Variable {
	cur := leaf
	for i := 0; i < Depth; i++ {
		api.AssertIsBoolean(p.Bits[i])
		left := api.Select(p.Bits[i], p.Siblings[i], cur)
		right := api.Select(p.Bits[i], cur, p.Siblings[i])
		cur = mimcHash(api, left, right)
	}
	return cur
}

// SolvencyCircuit proves balances[from] >= amount against the balance
// subtree root without revealing the balance.
type SolvencyCircuit struct {
	BalanceRoot frontend.Variable `gnark:",public"`
	From        frontend.Variable `gnark:",public"`
	Amount      frontend.Variable `gnark:",public"`

	Balance frontend.Variable
	Path    MerklePath
}

func (c *SolvencyCircuit) Define(api frontend.API) error {
	// balance - amount must be non-negative, shown by fitting the
	// range. A negative difference wraps the field and fails.
	diff := api.Sub(c.Balance, c.Amount)
	api.ToBinary(diff, AmountBits)

	leaf := mimcHash(api, c.From, c.Balance)
	api.AssertIsEqual(c.Path.fold(api, leaf), c.BalanceRoot)
	return nil
}

// AllowanceCircuit proves the transferFrom guard: the source balance
// and the caller's allowance both cover the amount. Both memberships
// bind to the combined state root through the subtree roots.
type AllowanceCircuit struct {
	StateRoot frontend.Variable `gnark:",public"`
	From      frontend.Variable `gnark:",public"`
	Caller    frontend.Variable `gnark:",public"`
	Amount    frontend.Variable `gnark:",public"`

	Balance       frontend.Variable
	Allowance     frontend.Variable
	BalanceRoot   frontend.Variable
	AllowanceRoot frontend.Variable
	BalancePath   MerklePath
	AllowancePath MerklePath
}

func (c *AllowanceCircuit) Define(api frontend.API) error {
	api.ToBinary(api.Sub(c.Balance, c.Amount), AmountBits)
	api.ToBinary(api.Sub(c.Allowance, c.Amount), AmountBits)

	balanceLeaf := mimcHash(api, c.From, c.Balance)
	api.AssertIsEqual(c.BalancePath.fold(api, balanceLeaf), c.BalanceRoot)

	key := mimcHash(api, c.From, c.Caller)
	allowanceLeaf := mimcHash(api, key, c.Allowance)
	api.AssertIsEqual(c.AllowancePath.fold(api, allowanceLeaf), c.AllowanceRoot)

	api.AssertIsEqual(mimcHash(api, c.BalanceRoot, c.AllowanceRoot), c.StateRoot)
	return nil
}

// TransitionCircuit proves a single-account supply change: a mint adds
// Amount to the account's balance, a burn removes it, and the same
// Merkle path binds the account to both the pre and post balance
// roots, so no other leaf moved.
type TransitionCircuit struct {
	PreRoot  frontend.Variable `gnark:",public"`
	PostRoot frontend.Variable `gnark:",public"`
	Account  frontend.Variable `gnark:",public"`
	Amount   frontend.Variable `gnark:",public"`
	Minted   frontend.Variable `gnark:",public"` // 1 = mint, 0 = burn

	PreBalance frontend.Variable
	Path       MerklePath
}

func (c *TransitionCircuit) Define(api frontend.API) error {
	api.AssertIsBoolean(c.Minted)
	api.ToBinary(c.Amount, AmountBits)
	api.ToBinary(c.PreBalance, AmountBits)

	added := api.Add(c.PreBalance, c.Amount)
	removed := api.Sub(c.PreBalance, c.Amount)
	post := api.Select(c.Minted, added, removed)
	// A burn past the balance wraps the field and fails this check.
	api.ToBinary(post, AmountBits+1)

	preLeaf := mimcHash(api, c.Account, c.PreBalance)
	api.AssertIsEqual(c.Path.fold(api, preLeaf), c.PreRoot)

	postLeaf := mimcHash(api, c.Account, post)
	api.AssertIsEqual(c.Path.fold(api, postLeaf), c.PostRoot)
	return nil
}
