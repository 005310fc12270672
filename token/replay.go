package token

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Apply replays one event against the ledger without re-running guards,
// reusing the same apply helpers as live execution. Events must arrive
// in emission order; gaps, unknown names, and writes that would corrupt
// state (wrapping a balance, redundant pause) are rejected.
func (l *Ledger) Apply(ev Event) error {
	if ev.Seq != l.seq {
		return fmt.Errorf("%w: event seq %d, ledger at %d", ErrBadEvent, ev.Seq, l.seq)
	}

	switch ev.Name {
	case EventMint:
		to, amount, err := addrAmount(ev, AttrTo)
		if err != nil {
			return err
		}
		if _, overflow := new(uint256.Int).AddOverflow(l.supply, amount); overflow {
			return fmt.Errorf("%w: %s overflows supply", ErrBadEvent, ev.Name)
		}
		l.applyMint(to, amount)

	case EventBurn:
		from, amount, err := addrAmount(ev, AttrFrom)
		if err != nil {
			return err
		}
		if l.balanceOf(from).Lt(amount) {
			return fmt.Errorf("%w: %s exceeds balance", ErrBadEvent, ev.Name)
		}
		l.applyBurn(from, amount)

	case EventTransfer:
		from, amount, err := addrAmount(ev, AttrFrom)
		if err != nil {
			return err
		}
		to, err := ev.Address(AttrTo)
		if err != nil {
			return err
		}
		if l.balanceOf(from).Lt(amount) {
			return fmt.Errorf("%w: %s exceeds balance", ErrBadEvent, ev.Name)
		}
		if _, delegated := ev.Attrs[AttrSpender]; delegated {
			spender, err := ev.Address(AttrSpender)
			if err != nil {
				return err
			}
			alw := l.allowanceOf(from, spender)
			if !alw.Eq(maxUint256) && alw.Lt(amount) {
				return fmt.Errorf("%w: %s exceeds allowance", ErrBadEvent, ev.Name)
			}
			l.applySpendAllowance(from, spender, amount)
		}
		l.applyMove(from, to, amount)

	case EventApproval:
		owner, amount, err := addrAmount(ev, AttrOwner)
		if err != nil {
			return err
		}
		spender, err := ev.Address(AttrSpender)
		if err != nil {
			return err
		}
		l.setAllowance(owner, spender, amount)

	case EventRoleGranted:
		role, account, err := roleAccount(ev)
		if err != nil {
			return err
		}
		if l.HasRole(role, account) {
			return fmt.Errorf("%w: redundant %s", ErrBadEvent, ev.Name)
		}
		l.setRole(role, account, true)

	case EventRoleRevoked:
		role, account, err := roleAccount(ev)
		if err != nil {
			return err
		}
		if !l.HasRole(role, account) {
			return fmt.Errorf("%w: redundant %s", ErrBadEvent, ev.Name)
		}
		l.setRole(role, account, false)

	case EventPaused:
		if l.paused {
			return fmt.Errorf("%w: redundant %s", ErrBadEvent, ev.Name)
		}
		l.paused = true

	case EventUnpaused:
		if !l.paused {
			return fmt.Errorf("%w: redundant %s", ErrBadEvent, ev.Name)
		}
		l.paused = false

	default:
		return fmt.Errorf("%w: unknown event %q", ErrBadEvent, ev.Name)
	}

	l.seq = ev.Seq + 1
	return nil
}

// Replay rebuilds a ledger by applying events in order to an empty one.
func Replay(events []Event) (*Ledger, error) {
	l := EmptyLedger()
	for _, ev := range events {
		if err := l.Apply(ev); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func addrAmount(ev Event, addrKey string) (Address, *uint256.Int, error) {
	a, err := ev.Address(addrKey)
	if err != nil {
		return Address{}, nil, err
	}
	amount, err := ev.Amount(AttrAmount)
	if err != nil {
		return Address{}, nil, err
	}
	return a, amount, nil
}

func roleAccount(ev Event) (Role, Address, error) {
	role, err := ev.Role(AttrRole)
	if err != nil {
		return "", Address{}, err
	}
	account, err := ev.Address(AttrAccount)
	if err != nil {
		return "", Address{}, err
	}
	return role, account, nil
}
