package token

import (
	"bytes"
	"sort"

	"github.com/holiman/uint256"
)

// Snapshot is a deep copy of ledger state at one sequence number.
// Mutating a snapshot never touches the live ledger.
type Snapshot struct {
	Sequence    uint64                               `json:"sequence"`
	TotalSupply *uint256.Int                         `json:"totalSupply"`
	Balances    map[Address]*uint256.Int             `json:"balances"`
	Allowances  map[Address]map[Address]*uint256.Int `json:"allowances"`
	Roles       map[Role][]Address                   `json:"roles"`
	Paused      bool                                 `json:"paused"`
}

// Snapshot captures the current state.
func (l *Ledger) Snapshot() *Snapshot {
	s := &Snapshot{
		Sequence:    l.seq,
		TotalSupply: new(uint256.Int).Set(l.supply),
		Balances:    make(map[Address]*uint256.Int, len(l.balances)),
		Allowances:  make(map[Address]map[Address]*uint256.Int, len(l.allowances)),
		Roles:       make(map[Role][]Address, len(l.roles)),
		Paused:      l.paused,
	}
	for a, bal := range l.balances {
		s.Balances[a] = new(uint256.Int).Set(bal)
	}
	for owner, spenders := range l.allowances {
		inner := make(map[Address]*uint256.Int, len(spenders))
		for spender, alw := range spenders {
			inner[spender] = new(uint256.Int).Set(alw)
		}
		s.Allowances[owner] = inner
	}
	for role, members := range l.roles {
		list := make([]Address, 0, len(members))
		for a := range members {
			list = append(list, a)
		}
		SortAddresses(list)
		s.Roles[role] = list
	}
	return s
}

// Holders returns the accounts with nonzero balances in address order.
func (s *Snapshot) Holders() []Address {
	out := make([]Address, 0, len(s.Balances))
	for a := range s.Balances {
		out = append(out, a)
	}
	SortAddresses(out)
	return out
}

// Owners returns the accounts with outstanding allowances in address order.
func (s *Snapshot) Owners() []Address {
	out := make([]Address, 0, len(s.Allowances))
	for a := range s.Allowances {
		out = append(out, a)
	}
	SortAddresses(out)
	return out
}

// SortAddresses orders addresses by raw byte comparison, the canonical
// iteration order for commitments and display.
func SortAddresses(list []Address) {
	sort.Slice(list, func(i, j int) bool {
		return bytes.Compare(list[i][:], list[j][:]) < 0
	})
}
