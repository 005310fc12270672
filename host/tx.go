package host

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-mona/token"
)

// Op identifies a ledger operation. Values match the schema action IDs.
type Op string

const (
	OpTransfer     Op = "transfer"
	OpApprove      Op = "approve"
	OpTransferFrom Op = "transferFrom"
	OpMint         Op = "mint"
	OpBurn         Op = "burn"
	OpPause        Op = "pause"
	OpUnpause      Op = "unpause"
	OpGrantRole    Op = "grantRole"
	OpRevokeRole   Op = "revokeRole"
)

// Tx is an intent to mutate the ledger. Caller is the account the
// operation executes as; fields an op does not use may stay zero.
type Tx struct {
	ID      string
	Op      Op
	Caller  token.Address
	To      token.Address // transfer / transferFrom / mint destination
	From    token.Address // transferFrom source
	Spender token.Address // approve
	Account token.Address // grantRole / revokeRole subject
	Role    token.Role    // grantRole / revokeRole
	Amount  *uint256.Int  // value-bearing ops
}

// Receipt statuses.
const (
	StatusApplied  = "applied"
	StatusRejected = "rejected"
)

// Receipt reports the outcome of a submitted transaction. Rejected
// receipts carry the pre-transaction sequence, version, and root, since
// the ledger did not move.
type Receipt struct {
	TxID      string        `json:"txId"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Sequence  uint64        `json:"sequence"`
	Version   int           `json:"version"`
	StateRoot string        `json:"stateRoot"`
	Events    []token.Event `json:"events,omitempty"`
	Time      time.Time     `json:"time"`
}

// Applied reports whether the transaction mutated the ledger.
func (r *Receipt) Applied() bool { return r.Status == StatusApplied }
