package token

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Event names. These are fixed wire identifiers: they appear in the event
// store, over RPC, and in generated Solidity, so renaming one is a
// breaking change.
const (
	EventMint        = "mint-occurred"
	EventBurn        = "burn-occurred"
	EventTransfer    = "transfer-occurred"
	EventApproval    = "approval-set"
	EventRoleGranted = "role-granted"
	EventRoleRevoked = "role-revoked"
	EventPaused      = "paused"
	EventUnpaused    = "unpaused"
)

// Event attribute keys.
const (
	AttrTo      = "to"
	AttrFrom    = "from"
	AttrAmount  = "amount"
	AttrMinter  = "minter"
	AttrRole    = "role"
	AttrAccount = "account"
	AttrAdmin   = "admin"
	AttrOwner   = "owner"
	AttrSpender = "spender"
)

// Event is one observable ledger occurrence. Seq is the ledger sequence
// number at emission; amounts are decimal base-unit strings, addresses
// 0x hex, roles their identifiers.
type Event struct {
	Seq   uint64            `json:"seq"`
	Name  string            `json:"name"`
	Attrs map[string]string `json:"attrs"`
}

// Address returns an address-valued attribute.
func (e Event) Address(key string) (Address, error) {
	raw, ok := e.Attrs[key]
	if !ok {
		return Address{}, fmt.Errorf("%w: %s missing attr %q", ErrBadEvent, e.Name, key)
	}
	a, err := ParseAddress(raw)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %s attr %q: %v", ErrBadEvent, e.Name, key, err)
	}
	return a, nil
}

// Amount returns an amount-valued attribute in base units.
func (e Event) Amount(key string) (*uint256.Int, error) {
	raw, ok := e.Attrs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s missing attr %q", ErrBadEvent, e.Name, key)
	}
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s attr %q: %v", ErrBadEvent, e.Name, key, err)
	}
	return v, nil
}

// Role returns a role-valued attribute.
func (e Event) Role(key string) (Role, error) {
	raw, ok := e.Attrs[key]
	if !ok {
		return "", fmt.Errorf("%w: %s missing attr %q", ErrBadEvent, e.Name, key)
	}
	r, err := ParseRole(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s attr %q: %v", ErrBadEvent, e.Name, key, err)
	}
	return r, nil
}

func (e Event) String() string {
	return fmt.Sprintf("#%d %s %v", e.Seq, e.Name, e.Attrs)
}
