// Package token implements the Monad Token ledger: account balances,
// total supply, allowances, role membership, and a global pause flag,
// mutated through guarded operations. Every mutator validates before it
// writes, so a failed operation leaves no partial state. The ledger is
// unsynchronized; the host serializes access.
package token

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Identity constants.
const (
	Name     = "Monad Token"
	Symbol   = "MONA"
	Decimals = 18

	// InitialWholeSupply is minted to the deployer at genesis, in whole tokens.
	InitialWholeSupply = 100_000
)

// maxUint256 marks an infinite allowance, which is never drawn down.
var maxUint256 = new(uint256.Int).SetAllOne()

// MaxAllowance returns the infinite-allowance sentinel, the maximum
// uint256 value. Spending against it never reduces the allowance.
func MaxAllowance() *uint256.Int {
	return new(uint256.Int).Set(maxUint256)
}

// Ledger holds the complete state of one deployed token.
type Ledger struct {
	supply     *uint256.Int
	balances   map[Address]*uint256.Int
	allowances map[Address]map[Address]*uint256.Int
	roles      map[Role]map[Address]bool
	paused     bool

	// seq counts emitted events; pending holds events not yet drained.
	seq     uint64
	pending []Event
}

// EmptyLedger returns a ledger with no supply, no balances, and no role
// members. Used as the replay target; live ledgers start with NewLedger.
func EmptyLedger() *Ledger {
	l := &Ledger{
		supply:     new(uint256.Int),
		balances:   make(map[Address]*uint256.Int),
		allowances: make(map[Address]map[Address]*uint256.Int),
		roles:      make(map[Role]map[Address]bool, len(Roles)),
	}
	for _, r := range Roles {
		l.roles[r] = make(map[Address]bool)
	}
	return l
}

// NewLedger creates the genesis state: the deployer holds all three
// roles and the initial supply. Genesis is expressed as ordinary events
// so a replayed ledger reconstructs it exactly.
func NewLedger(deployer Address) (*Ledger, error) {
	if deployer.IsZero() {
		return nil, fmt.Errorf("%w: deployer", ErrZeroAddress)
	}
	l := EmptyLedger()
	for _, r := range Roles {
		l.setRole(r, deployer, true)
		l.emit(EventRoleGranted, map[string]string{
			AttrRole:    r.String(),
			AttrAccount: deployer.String(),
			AttrAdmin:   deployer.String(),
		})
	}
	supply := InitialSupply()
	l.applyMint(deployer, supply)
	l.emit(EventMint, map[string]string{
		AttrTo:     deployer.String(),
		AttrAmount: supply.Dec(),
		AttrMinter: deployer.String(),
	})
	return l, nil
}

// Mint credits amount to the destination and grows total supply.
// The caller must hold the minter role; the destination must not be the
// zero address; supply overflow is rejected before any write.
func (l *Ledger) Mint(caller, to Address, amount *uint256.Int) error {
	if err := l.requireRole(caller, RoleMinter); err != nil {
		return err
	}
	if to.IsZero() {
		return fmt.Errorf("%w: mint to the zero address", ErrZeroAddress)
	}
	if _, overflow := new(uint256.Int).AddOverflow(l.supply, amount); overflow {
		return fmt.Errorf("%w: minting %s", ErrOverflow, amount.Dec())
	}
	l.applyMint(to, amount)
	l.emit(EventMint, map[string]string{
		AttrTo:     to.String(),
		AttrAmount: amount.Dec(),
		AttrMinter: caller.String(),
	})
	return nil
}

// Burn debits amount from the caller's own balance and shrinks total
// supply. Burning while paused is allowed.
func (l *Ledger) Burn(caller Address, amount *uint256.Int) error {
	if bal := l.balanceOf(caller); bal.Lt(amount) {
		return fmt.Errorf("%w: burn %s exceeds balance %s", ErrInsufficientBalance, amount.Dec(), bal.Dec())
	}
	l.applyBurn(caller, amount)
	l.emit(EventBurn, map[string]string{
		AttrFrom:   caller.String(),
		AttrAmount: amount.Dec(),
	})
	return nil
}

// Transfer moves amount from the caller to the destination.
func (l *Ledger) Transfer(caller, to Address, amount *uint256.Int) error {
	if err := l.transferChecks(caller, to, amount); err != nil {
		return err
	}
	l.applyMove(caller, to, amount)
	l.emit(EventTransfer, map[string]string{
		AttrFrom:   caller.String(),
		AttrTo:     to.String(),
		AttrAmount: amount.Dec(),
	})
	return nil
}

// TransferFrom moves amount from the owner to the destination on the
// strength of the caller's allowance, which is drawn down unless set to
// the infinite value.
func (l *Ledger) TransferFrom(caller, from, to Address, amount *uint256.Int) error {
	if err := l.transferChecks(from, to, amount); err != nil {
		return err
	}
	if alw := l.allowanceOf(from, caller); alw.Lt(amount) {
		return fmt.Errorf("%w: spend %s exceeds allowance %s", ErrInsufficientAllowance, amount.Dec(), alw.Dec())
	}
	l.applySpendAllowance(from, caller, amount)
	l.applyMove(from, to, amount)
	l.emit(EventTransfer, map[string]string{
		AttrFrom:    from.String(),
		AttrTo:      to.String(),
		AttrAmount:  amount.Dec(),
		AttrSpender: caller.String(),
	})
	return nil
}

// Approve sets the caller's allowance for spender to exactly amount.
func (l *Ledger) Approve(caller, spender Address, amount *uint256.Int) error {
	if spender.IsZero() {
		return fmt.Errorf("%w: approve the zero address", ErrZeroAddress)
	}
	l.setAllowance(caller, spender, new(uint256.Int).Set(amount))
	l.emit(EventApproval, map[string]string{
		AttrOwner:   caller.String(),
		AttrSpender: spender.String(),
		AttrAmount:  amount.Dec(),
	})
	return nil
}

// Pause blocks transfers. Fails if already paused.
func (l *Ledger) Pause(caller Address) error {
	if err := l.requireRole(caller, RolePauser); err != nil {
		return err
	}
	if l.paused {
		return ErrAlreadyPaused
	}
	l.paused = true
	l.emit(EventPaused, map[string]string{AttrAccount: caller.String()})
	return nil
}

// Unpause re-enables transfers. Fails if not paused.
func (l *Ledger) Unpause(caller Address) error {
	if err := l.requireRole(caller, RolePauser); err != nil {
		return err
	}
	if !l.paused {
		return ErrNotPaused
	}
	l.paused = false
	l.emit(EventUnpaused, map[string]string{AttrAccount: caller.String()})
	return nil
}

// GrantRole adds account to role. Granting a role the account already
// holds succeeds without an event. There is no guard against the admin
// set becoming empty: revoking the last admin locks role administration
// permanently, and that is accepted behavior.
func (l *Ledger) GrantRole(caller Address, role Role, account Address) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if err := l.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	if l.HasRole(role, account) {
		return nil
	}
	l.setRole(role, account, true)
	l.emit(EventRoleGranted, map[string]string{
		AttrRole:    role.String(),
		AttrAccount: account.String(),
		AttrAdmin:   caller.String(),
	})
	return nil
}

// RevokeRole removes account from role. Revoking a role the account
// does not hold succeeds without an event.
func (l *Ledger) RevokeRole(caller Address, role Role, account Address) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if err := l.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	if !l.HasRole(role, account) {
		return nil
	}
	l.setRole(role, account, false)
	l.emit(EventRoleRevoked, map[string]string{
		AttrRole:    role.String(),
		AttrAccount: account.String(),
		AttrAdmin:   caller.String(),
	})
	return nil
}

// BalanceOf returns the account's balance in base units. Untouched
// accounts read zero.
func (l *Ledger) BalanceOf(a Address) *uint256.Int {
	return l.balanceOf(a)
}

// TotalSupply returns the current total supply in base units.
func (l *Ledger) TotalSupply() *uint256.Int {
	return new(uint256.Int).Set(l.supply)
}

// Allowance returns what spender may move on the owner's behalf.
func (l *Ledger) Allowance(owner, spender Address) *uint256.Int {
	return l.allowanceOf(owner, spender)
}

// Paused reports whether transfers are blocked.
func (l *Ledger) Paused() bool {
	return l.paused
}

// HasRole reports role membership.
func (l *Ledger) HasRole(role Role, a Address) bool {
	return l.roles[role][a]
}

// IsAdmin reports whether a holds the admin role.
func (l *Ledger) IsAdmin(a Address) bool { return l.HasRole(RoleAdmin, a) }

// IsMinter reports whether a holds the minter role.
func (l *Ledger) IsMinter(a Address) bool { return l.HasRole(RoleMinter, a) }

// IsPauser reports whether a holds the pauser role.
func (l *Ledger) IsPauser(a Address) bool { return l.HasRole(RolePauser, a) }

// Sequence returns the next event sequence number.
func (l *Ledger) Sequence() uint64 {
	return l.seq
}

// DrainEvents returns the events emitted since the last drain and
// clears the pending list.
func (l *Ledger) DrainEvents() []Event {
	evs := l.pending
	l.pending = nil
	return evs
}

// CheckConservation verifies sum(balances) == totalSupply.
func (l *Ledger) CheckConservation() error {
	sum := new(uint256.Int)
	for _, bal := range l.balances {
		sum.Add(sum, bal)
	}
	if !sum.Eq(l.supply) {
		return fmt.Errorf("token: conservation violated: sum(balances) %s != totalSupply %s", sum.Dec(), l.supply.Dec())
	}
	return nil
}

// requireRole is the shared precondition guard for privileged operations.
func (l *Ledger) requireRole(caller Address, role Role) error {
	if !l.HasRole(role, caller) {
		return fmt.Errorf("%w: %s is not %s", ErrUnauthorized, caller, role)
	}
	return nil
}

// transferChecks validates the shared debit/credit preconditions for
// Transfer and TransferFrom without touching state.
func (l *Ledger) transferChecks(from, to Address, amount *uint256.Int) error {
	if l.paused {
		return ErrPaused
	}
	if to.IsZero() {
		return fmt.Errorf("%w: transfer to the zero address", ErrZeroAddress)
	}
	if bal := l.balanceOf(from); bal.Lt(amount) {
		return fmt.Errorf("%w: transfer %s exceeds balance %s", ErrInsufficientBalance, amount.Dec(), bal.Dec())
	}
	return nil
}

// applyMint, applyBurn, applyMove, and applySpendAllowance perform the
// already-validated state writes. Replay shares them, so live execution
// and replay cannot drift apart.

func (l *Ledger) applyMint(to Address, amount *uint256.Int) {
	l.supply = new(uint256.Int).Add(l.supply, amount)
	bal := l.balanceOf(to)
	l.setBalance(to, bal.Add(bal, amount))
}

func (l *Ledger) applyBurn(from Address, amount *uint256.Int) {
	l.supply = new(uint256.Int).Sub(l.supply, amount)
	bal := l.balanceOf(from)
	l.setBalance(from, bal.Sub(bal, amount))
}

func (l *Ledger) applyMove(from, to Address, amount *uint256.Int) {
	fromBal := l.balanceOf(from)
	l.setBalance(from, fromBal.Sub(fromBal, amount))
	// Re-reading after the debit keeps from == to transfers exact.
	toBal := l.balanceOf(to)
	l.setBalance(to, toBal.Add(toBal, amount))
}

func (l *Ledger) applySpendAllowance(owner, spender Address, amount *uint256.Int) {
	alw := l.allowanceOf(owner, spender)
	if alw.Eq(maxUint256) {
		return
	}
	l.setAllowance(owner, spender, alw.Sub(alw, amount))
}

// balanceOf returns a copy, so callers may mutate the result freely.
func (l *Ledger) balanceOf(a Address) *uint256.Int {
	if bal, ok := l.balances[a]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// setBalance stores v, dropping zero entries: a zero balance is
// indistinguishable from an untouched account.
func (l *Ledger) setBalance(a Address, v *uint256.Int) {
	if v.IsZero() {
		delete(l.balances, a)
		return
	}
	l.balances[a] = v
}

func (l *Ledger) allowanceOf(owner, spender Address) *uint256.Int {
	if alw, ok := l.allowances[owner][spender]; ok {
		return new(uint256.Int).Set(alw)
	}
	return new(uint256.Int)
}

func (l *Ledger) setAllowance(owner, spender Address, v *uint256.Int) {
	if v.IsZero() {
		delete(l.allowances[owner], spender)
		if len(l.allowances[owner]) == 0 {
			delete(l.allowances, owner)
		}
		return
	}
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[Address]*uint256.Int)
	}
	l.allowances[owner][spender] = v
}

func (l *Ledger) setRole(role Role, a Address, member bool) {
	if member {
		l.roles[role][a] = true
		return
	}
	delete(l.roles[role], a)
}

func (l *Ledger) emit(name string, attrs map[string]string) {
	l.pending = append(l.pending, Event{Seq: l.seq, Name: name, Attrs: attrs})
	l.seq++
}
