package proof

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-mona/stateroot"
	"github.com/pflow-xyz/go-mona/token"
)

var (
	// ErrValueRange is returned when a balance, allowance, or amount
	// does not fit the circuit's range bound. The infinite-allowance
	// sentinel is the usual culprit.
	ErrValueRange = errors.New("proof: value exceeds circuit range")

	// ErrShapeChanged is returned when the pre and post states place
	// the account differently, which a single-path transition proof
	// cannot express.
	ErrShapeChanged = errors.New("proof: tree shape changed between states")

	// ErrStateMismatch is returned when the post state does not show
	// the claimed balance change.
	ErrStateMismatch = errors.New("proof: post state does not match claimed change")
)

// pathWitness converts a native Merkle path into circuit variables.
func pathWitness(p *stateroot.Proof) MerklePath {
	var mp MerklePath
	for i := 0; i < Depth; i++ {
		mp.Siblings[i] = new(big.Int).SetBytes(p.Siblings[i])
		mp.Bits[i] = p.Bits[i]
	}
	return mp
}

// addressValue maps an address to its field representation. Addresses
// are 160 bits, well under the modulus, so no reduction happens.
func addressValue(a token.Address) *big.Int {
	return new(big.Int).SetBytes(a.Bytes())
}

// rangedValue converts an amount for circuit use, rejecting values the
// range checks cannot accept.
func rangedValue(what string, v *uint256.Int) (*big.Int, error) {
	if v == nil {
		v = new(uint256.Int)
	}
	if v.BitLen() > AmountBits {
		return nil, fmt.Errorf("%w: %s has %d bits", ErrValueRange, what, v.BitLen())
	}
	return v.ToBig(), nil
}

// SolvencyWitness builds the assignment proving that from's balance in
// snap covers amount. The guard is checked natively first so callers
// get a ledger error instead of a failed proving run.
func SolvencyWitness(snap *token.Snapshot, from token.Address, amount *uint256.Int) (*SolvencyCircuit, error) {
	balance, ok := snap.Balances[from]
	if !ok {
		return nil, fmt.Errorf("%w: %s", stateroot.ErrNotFound, from)
	}
	if balance.Lt(amount) {
		return nil, fmt.Errorf("%w: balance %s < amount %s",
			token.ErrInsufficientBalance, balance.Dec(), amount.Dec())
	}

	amt, err := rangedValue("amount", amount)
	if err != nil {
		return nil, err
	}
	bal, err := rangedValue("balance", balance)
	if err != nil {
		return nil, err
	}

	tree, err := stateroot.BalanceTree(snap, Depth)
	if err != nil {
		return nil, err
	}
	path, err := tree.Proof(from.String())
	if err != nil {
		return nil, err
	}

	return &SolvencyCircuit{
		BalanceRoot: new(big.Int).SetBytes(tree.Root()),
		From:        addressValue(from),
		Amount:      amt,
		Balance:     bal,
		Path:        pathWitness(path),
	}, nil
}

// AllowanceWitness builds the assignment proving the transferFrom
// guard for caller spending from's funds. Infinite allowances exceed
// the circuit range and cannot be proven.
func AllowanceWitness(snap *token.Snapshot, from, caller token.Address, amount *uint256.Int) (*AllowanceCircuit, error) {
	balance, ok := snap.Balances[from]
	if !ok {
		return nil, fmt.Errorf("%w: %s", stateroot.ErrNotFound, from)
	}
	var allowance *uint256.Int
	if inner, ok := snap.Allowances[from]; ok {
		allowance = inner[caller]
	}
	if allowance == nil {
		return nil, fmt.Errorf("%w: %s", stateroot.ErrNotFound, stateroot.AllowanceKey(from, caller))
	}
	if balance.Lt(amount) {
		return nil, fmt.Errorf("%w: balance %s < amount %s",
			token.ErrInsufficientBalance, balance.Dec(), amount.Dec())
	}
	if allowance.Lt(amount) {
		return nil, fmt.Errorf("%w: allowance %s < amount %s",
			token.ErrInsufficientAllowance, allowance.Dec(), amount.Dec())
	}

	amt, err := rangedValue("amount", amount)
	if err != nil {
		return nil, err
	}
	bal, err := rangedValue("balance", balance)
	if err != nil {
		return nil, err
	}
	alw, err := rangedValue("allowance", allowance)
	if err != nil {
		return nil, err
	}

	commitment, err := stateroot.Commit(snap)
	if err != nil {
		return nil, err
	}
	balances, err := stateroot.BalanceTree(snap, Depth)
	if err != nil {
		return nil, err
	}
	allowances, err := stateroot.AllowanceTree(snap, Depth)
	if err != nil {
		return nil, err
	}

	balancePath, err := balances.Proof(from.String())
	if err != nil {
		return nil, err
	}
	allowancePath, err := allowances.Proof(stateroot.AllowanceKey(from, caller))
	if err != nil {
		return nil, err
	}

	return &AllowanceCircuit{
		StateRoot:     new(big.Int).SetBytes(commitment.Root),
		From:          addressValue(from),
		Caller:        addressValue(caller),
		Amount:        amt,
		Balance:       bal,
		Allowance:     alw,
		BalanceRoot:   new(big.Int).SetBytes(commitment.BalanceRoot),
		AllowanceRoot: new(big.Int).SetBytes(commitment.AllowanceRoot),
		BalancePath:   pathWitness(balancePath),
		AllowancePath: pathWitness(allowancePath),
	}, nil
}

// TransitionWitness builds the assignment proving that a mint or burn
// moved account's balance by amount between the two snapshots. The
// account must exist in both states at the same slot with identical
// siblings; minting to a brand-new holder reshapes the tree and is not
// provable with a single path.
func TransitionWitness(pre, post *token.Snapshot, account token.Address, amount *uint256.Int, minted bool) (*TransitionCircuit, error) {
	preBalance, ok := pre.Balances[account]
	if !ok {
		return nil, fmt.Errorf("%w: %s not in pre state", stateroot.ErrNotFound, account)
	}

	expected := new(uint256.Int)
	if minted {
		expected.Add(preBalance, amount)
	} else {
		if preBalance.Lt(amount) {
			return nil, fmt.Errorf("%w: balance %s < amount %s",
				token.ErrInsufficientBalance, preBalance.Dec(), amount.Dec())
		}
		expected.Sub(preBalance, amount)
	}
	postBalance := new(uint256.Int)
	if b, ok := post.Balances[account]; ok {
		postBalance.Set(b)
	}
	if !expected.Eq(postBalance) {
		return nil, fmt.Errorf("%w: expected %s, post state holds %s",
			ErrStateMismatch, expected.Dec(), postBalance.Dec())
	}

	amt, err := rangedValue("amount", amount)
	if err != nil {
		return nil, err
	}
	bal, err := rangedValue("pre balance", preBalance)
	if err != nil {
		return nil, err
	}

	preTree, err := stateroot.BalanceTree(pre, Depth)
	if err != nil {
		return nil, err
	}
	postTree, err := stateroot.BalanceTree(post, Depth)
	if err != nil {
		return nil, err
	}

	prePath, err := preTree.Proof(account.String())
	if err != nil {
		return nil, err
	}
	postPath, err := postTree.Proof(account.String())
	if err != nil {
		return nil, err
	}
	if !samePath(prePath, postPath) {
		return nil, ErrShapeChanged
	}

	mintedBit := 0
	if minted {
		mintedBit = 1
	}
	return &TransitionCircuit{
		PreRoot:    new(big.Int).SetBytes(preTree.Root()),
		PostRoot:   new(big.Int).SetBytes(postTree.Root()),
		Account:    addressValue(account),
		Amount:     amt,
		Minted:     mintedBit,
		PreBalance: bal,
		Path:       pathWitness(prePath),
	}, nil
}

// samePath reports whether two proofs walk the same slot with the same
// siblings.
func samePath(a, b *stateroot.Proof) bool {
	for i := range a.Bits {
		if a.Bits[i] != b.Bits[i] {
			return false
		}
		if string(a.Siblings[i]) != string(b.Siblings[i]) {
			return false
		}
	}
	return true
}
