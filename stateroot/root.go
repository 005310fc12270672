package stateroot

import (
	"github.com/pflow-xyz/go-mona/token"
)

// Commitment holds the three roots the proof circuits consume.
type Commitment struct {
	BalanceRoot   []byte
	AllowanceRoot []byte
	Root          []byte
}

// Hex returns the combined root as a 0x-prefixed hex string.
func (c *Commitment) Hex() string {
	return HexRoot(c.Root)
}

// AllowanceKey identifies an (owner, spender) leaf in the allowance tree.
func AllowanceKey(owner, spender token.Address) string {
	return owner.String() + ":" + spender.String()
}

// BalanceTree builds the balance subtree from a snapshot. Holders are
// assigned slots in address order, so the same state always yields the
// same tree regardless of map iteration order.
func BalanceTree(snap *token.Snapshot, depth int) (*Tree, error) {
	holders := snap.Holders()
	keys := make([]string, 0, len(holders))
	leaves := make([][]byte, 0, len(holders))
	for _, a := range holders {
		keys = append(keys, a.String())
		leaves = append(leaves, hashPair(addressElement(a), amountElement(snap.Balances[a])))
	}
	return newTree(depth, keys, leaves)
}

// AllowanceTree builds the allowance subtree from a snapshot. Leaves
// are ordered by owner, then spender.
func AllowanceTree(snap *token.Snapshot, depth int) (*Tree, error) {
	var keys []string
	var leaves [][]byte
	for _, owner := range snap.Owners() {
		spenders := make([]token.Address, 0, len(snap.Allowances[owner]))
		for spender := range snap.Allowances[owner] {
			spenders = append(spenders, spender)
		}
		token.SortAddresses(spenders)
		for _, spender := range spenders {
			key := hashPair(addressElement(owner), addressElement(spender))
			keys = append(keys, AllowanceKey(owner, spender))
			leaves = append(leaves, hashPair(key, amountElement(snap.Allowances[owner][spender])))
		}
	}
	return newTree(depth, keys, leaves)
}

// CommitAtDepth computes the commitment for a snapshot at the given
// tree depth.
func CommitAtDepth(snap *token.Snapshot, depth int) (*Commitment, error) {
	balances, err := BalanceTree(snap, depth)
	if err != nil {
		return nil, err
	}
	allowances, err := AllowanceTree(snap, depth)
	if err != nil {
		return nil, err
	}
	c := &Commitment{
		BalanceRoot:   balances.Root(),
		AllowanceRoot: allowances.Root(),
	}
	c.Root = hashPair(c.BalanceRoot, c.AllowanceRoot)
	return c, nil
}

// Commit computes the commitment at DefaultDepth.
func Commit(snap *token.Snapshot) (*Commitment, error) {
	return CommitAtDepth(snap, DefaultDepth)
}

// Compute returns the combined root for a snapshot as a hex string.
func Compute(snap *token.Snapshot) (string, error) {
	c, err := Commit(snap)
	if err != nil {
		return "", err
	}
	return c.Hex(), nil
}
