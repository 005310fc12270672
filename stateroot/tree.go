// Package stateroot commits ledger state to a MiMC Merkle root over the
// BN254 scalar field. The layout matches the proof circuits: balance
// leaves are MiMC(address, balance), allowance leaves are
// MiMC(MiMC(owner, spender), amount), and the combined root is
// MiMC(balanceRoot, allowanceRoot).
package stateroot

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-mona/token"
)

// DefaultDepth is the Merkle depth used for ledger commitments. The
// proof circuits are compiled at this depth, so both sides must agree.
const DefaultDepth = 16

// ErrTreeFull is returned when a snapshot holds more entries than the
// tree has leaf slots.
var ErrTreeFull = errors.New("stateroot: too many entries for tree depth")

// ErrNotFound is returned when a proof is requested for an address
// that has no leaf in the tree.
var ErrNotFound = errors.New("stateroot: no leaf for address")

// Tree is a fixed-depth MiMC Merkle tree. Occupied leaves sit in a
// contiguous prefix; everything past them is an empty subtree, so only
// the occupied nodes are materialized and the rest resolve to
// precomputed zero-subtree hashes.
type Tree struct {
	depth  int
	zero   [][]byte   // zero[k] = root of an empty subtree of height k
	levels [][][]byte // levels[k] = occupied nodes at height k
	index  map[string]int
}

// Proof is a Merkle path from a leaf to the root. Siblings[i] is the
// sibling node at height i; Bits[i] is the leaf index bit at that
// height (0 = leaf on the left).
type Proof struct {
	Leaf     []byte
	Siblings [][]byte
	Bits     []int
}

// newTree builds a tree of the given depth from keyed leaves. Keys
// identify leaves for proofs; order determines slot assignment, so
// callers must pass entries in a deterministic order.
func newTree(depth int, keys []string, leaves [][]byte) (*Tree, error) {
	if len(leaves) > 1<<depth {
		return nil, fmt.Errorf("%w: %d entries, %d slots", ErrTreeFull, len(leaves), 1<<depth)
	}

	t := &Tree{
		depth:  depth,
		zero:   zeroHashes(depth),
		levels: make([][][]byte, depth+1),
		index:  make(map[string]int, len(keys)),
	}
	for i, key := range keys {
		t.index[key] = i
	}

	t.levels[0] = leaves
	for k := 0; k < depth; k++ {
		width := (len(t.levels[k]) + 1) / 2
		next := make([][]byte, width)
		for i := range next {
			next[i] = hashPair(t.node(k, 2*i), t.node(k, 2*i+1))
		}
		t.levels[k+1] = next
	}
	return t, nil
}

// node returns the tree node at the given height and index, resolving
// past-the-prefix positions to the empty-subtree hash.
func (t *Tree) node(height, idx int) []byte {
	if idx < len(t.levels[height]) {
		return t.levels[height][idx]
	}
	return t.zero[height]
}

// Root returns the tree root as a field element in big-endian form.
func (t *Tree) Root() []byte {
	return t.node(t.depth, 0)
}

// Proof returns the Merkle path for the leaf stored under key.
func (t *Tree) Proof(key string) (*Proof, error) {
	idx, ok := t.index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	proof := &Proof{
		Leaf:     t.node(0, idx),
		Siblings: make([][]byte, t.depth),
		Bits:     make([]int, t.depth),
	}
	for height := 0; height < t.depth; height++ {
		proof.Bits[height] = idx & 1
		proof.Siblings[height] = t.node(height, idx^1)
		idx >>= 1
	}
	return proof, nil
}

// Verify folds a proof back to the root, returning true when it
// matches. This is the native mirror of the in-circuit check.
func Verify(root []byte, proof *Proof) bool {
	cur := proof.Leaf
	for i, sib := range proof.Siblings {
		if proof.Bits[i] == 0 {
			cur = hashPair(cur, sib)
		} else {
			cur = hashPair(sib, cur)
		}
	}
	return bytes.Equal(cur, root)
}

// hashPair computes MiMC(left, right) over two field elements.
func hashPair(left, right []byte) []byte {
	h := mimc.NewMiMC()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// zeroHashes returns the empty-subtree hash for each height up to depth.
func zeroHashes(depth int) [][]byte {
	zh := make([][]byte, depth+1)
	zh[0] = zeroElement()
	for i := 1; i <= depth; i++ {
		zh[i] = hashPair(zh[i-1], zh[i-1])
	}
	return zh
}

// addressElement reduces an address into the scalar field.
func addressElement(a token.Address) []byte {
	var e fr.Element
	e.SetBigInt(new(big.Int).SetBytes(a.Bytes()))
	return e.Marshal()
}

// amountElement reduces a uint256 amount into the scalar field.
// Values at or above the field modulus (such as the infinite-allowance
// sentinel) reduce mod r, which keeps the commitment deterministic.
func amountElement(v *uint256.Int) []byte {
	var e fr.Element
	if v != nil {
		e.SetBigInt(v.ToBig())
	}
	return e.Marshal()
}

func zeroElement() []byte {
	var e fr.Element
	return e.Marshal()
}

// HexRoot formats a root as a 0x-prefixed hex string.
func HexRoot(root []byte) string {
	return "0x" + hex.EncodeToString(root)
}
