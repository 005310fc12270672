// Package host runs the token ledger behind a single processing loop.
// Submissions are applied one at a time: validate, apply, persist,
// publish. A transaction is either fully committed to the event stream
// or leaves no trace.
package host

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-mona/eventstore"
	"github.com/pflow-xyz/go-mona/stateroot"
	"github.com/pflow-xyz/go-mona/token"
)

var (
	// ErrStopped is returned by Submit after the host has shut down.
	ErrStopped = errors.New("host: stopped")

	// ErrUnknownOp rejects transactions with an unrecognized operation.
	ErrUnknownOp = errors.New("host: unknown operation")
)

// EventHandler receives committed ledger events. Handlers run on the
// processing loop, so they must not block.
type EventHandler func(token.Event)

// Config controls host startup.
type Config struct {
	// StreamID is the event stream the ledger lives in. Defaults to
	// "mona:main".
	StreamID string

	// Deployer receives the initial supply and all roles when the
	// stream does not exist yet.
	Deployer token.Address

	// CheckInvariants verifies supply conservation after every apply.
	CheckInvariants bool

	// QueueSize bounds pending submissions. Defaults to 256.
	QueueSize int
}

type request struct {
	tx    Tx
	reply chan result
}

type result struct {
	receipt *Receipt
	err     error
}

// Host owns the ledger and serializes every mutation through one loop.
// Reads are served from the snapshot taken after the last commit.
type Host struct {
	cfg  Config
	repo *eventstore.Repository

	requests chan request

	mu      sync.RWMutex
	running bool
	created bool
	stopCh  chan struct{}
	done    chan struct{}
	ledger  *token.Ledger
	version int
	snap    *token.Snapshot
	root    string

	subMu sync.RWMutex
	subs  map[string]EventHandler

	appliedCount  int64
	rejectedCount int64
	eventCount    int64
}

// New creates a host over the given repository. Call Start before
// submitting.
func New(repo *eventstore.Repository, cfg Config) *Host {
	if cfg.StreamID == "" {
		cfg.StreamID = "mona:main"
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &Host{
		cfg:      cfg,
		repo:     repo,
		requests: make(chan request, cfg.QueueSize),
		subs:     make(map[string]EventHandler),
	}
}

// Start loads the ledger from the stream, writing the genesis events
// first if the stream does not exist, and begins processing.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return nil
	}

	ledger, version, err := h.repo.Load(ctx, h.cfg.StreamID)
	switch {
	case errors.Is(err, eventstore.ErrStreamNotFound):
		ledger, err = token.NewLedger(h.cfg.Deployer)
		if err != nil {
			return fmt.Errorf("host: genesis: %w", err)
		}
		version, err = h.repo.Save(ctx, h.cfg.StreamID, -1, ledger.DrainEvents())
		if err != nil {
			return fmt.Errorf("host: write genesis: %w", err)
		}
		h.created = true
	case err != nil:
		return fmt.Errorf("host: load stream %s: %w", h.cfg.StreamID, err)
	}

	snap := ledger.Snapshot()
	root, err := stateroot.Compute(snap)
	if err != nil {
		return fmt.Errorf("host: compute state root: %w", err)
	}

	h.ledger = ledger
	h.version = version
	h.snap = snap
	h.root = root
	h.running = true
	h.stopCh = make(chan struct{})
	h.done = make(chan struct{})
	go h.processLoop(h.stopCh, h.done)
	return nil
}

// Stop halts processing and waits for the loop to drain. Pending
// submissions receive ErrStopped.
func (h *Host) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.stopCh)
	done := h.done
	h.mu.Unlock()
	<-done
}

// Submit queues a transaction and waits for its receipt. Domain
// rejections come back as rejected receipts with a nil error;
// infrastructure failures (store conflicts, shutdown) as errors.
func (h *Host) Submit(ctx context.Context, tx Tx) (*Receipt, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	h.mu.RLock()
	running, stopCh := h.running, h.stopCh
	h.mu.RUnlock()
	if !running {
		return nil, ErrStopped
	}

	req := request{tx: tx, reply: make(chan result, 1)}
	select {
	case h.requests <- req:
	case <-stopCh:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.receipt, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// processLoop applies submissions one at a time.
func (h *Host) processLoop(stopCh, done chan struct{}) {
	defer close(done)
	for {
		select {
		case req := <-h.requests:
			req.reply <- h.process(req.tx)
		case <-stopCh:
			for {
				select {
				case req := <-h.requests:
					req.reply <- result{err: ErrStopped}
				default:
					return
				}
			}
		}
	}
}

// process runs one transaction through validate, apply, persist,
// publish. On a persistence failure the in-memory ledger is rebuilt
// from the store so memory never diverges from the log.
func (h *Host) process(tx Tx) result {
	now := timeNow()

	if err := h.dispatch(tx); err != nil {
		atomic.AddInt64(&h.rejectedCount, 1)
		h.mu.RLock()
		receipt := &Receipt{
			TxID:      tx.ID,
			Status:    StatusRejected,
			Error:     err.Error(),
			Sequence:  h.snap.Sequence,
			Version:   h.version,
			StateRoot: h.root,
			Time:      now,
		}
		h.mu.RUnlock()
		return result{receipt: receipt}
	}

	events := h.ledger.DrainEvents()

	if h.cfg.CheckInvariants {
		if err := h.ledger.CheckConservation(); err != nil {
			h.reload()
			return result{err: fmt.Errorf("host: conservation violated, tx dropped: %w", err)}
		}
	}

	version, err := h.repo.Save(context.Background(), h.cfg.StreamID, h.version, events)
	if err != nil {
		h.reload()
		return result{err: fmt.Errorf("host: persist events: %w", err)}
	}

	snap := h.ledger.Snapshot()
	root, rootErr := stateroot.Compute(snap)
	if rootErr != nil {
		// The commit is already durable; the root is derived metadata.
		log.Printf("host: compute state root: %v", rootErr)
	}

	h.mu.Lock()
	h.version = version
	h.snap = snap
	h.root = root
	h.mu.Unlock()

	atomic.AddInt64(&h.appliedCount, 1)
	atomic.AddInt64(&h.eventCount, int64(len(events)))
	h.publish(events)

	return result{receipt: &Receipt{
		TxID:      tx.ID,
		Status:    StatusApplied,
		Sequence:  snap.Sequence,
		Version:   version,
		StateRoot: root,
		Events:    events,
		Time:      now,
	}}
}

// dispatch routes a transaction to the ledger operation it names.
func (h *Host) dispatch(tx Tx) error {
	switch tx.Op {
	case OpTransfer, OpTransferFrom, OpApprove, OpMint, OpBurn:
		if tx.Amount == nil {
			return fmt.Errorf("%w: %s requires an amount", token.ErrBadAmount, tx.Op)
		}
	}

	switch tx.Op {
	case OpTransfer:
		return h.ledger.Transfer(tx.Caller, tx.To, tx.Amount)
	case OpTransferFrom:
		return h.ledger.TransferFrom(tx.Caller, tx.From, tx.To, tx.Amount)
	case OpApprove:
		return h.ledger.Approve(tx.Caller, tx.Spender, tx.Amount)
	case OpMint:
		return h.ledger.Mint(tx.Caller, tx.To, tx.Amount)
	case OpBurn:
		return h.ledger.Burn(tx.Caller, tx.Amount)
	case OpPause:
		return h.ledger.Pause(tx.Caller)
	case OpUnpause:
		return h.ledger.Unpause(tx.Caller)
	case OpGrantRole:
		return h.ledger.GrantRole(tx.Caller, tx.Role, tx.Account)
	case OpRevokeRole:
		return h.ledger.RevokeRole(tx.Caller, tx.Role, tx.Account)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, tx.Op)
	}
}

// reload rebuilds in-memory state from the store.
func (h *Host) reload() {
	ledger, version, err := h.repo.Load(context.Background(), h.cfg.StreamID)
	if err != nil {
		log.Printf("host: reload after failed persist: %v", err)
		return
	}
	snap := ledger.Snapshot()
	root, err := stateroot.Compute(snap)
	if err != nil {
		log.Printf("host: recompute state root: %v", err)
	}

	h.mu.Lock()
	h.ledger = ledger
	h.version = version
	h.snap = snap
	h.root = root
	h.mu.Unlock()
}

// Subscribe registers a handler for committed events under an ID.
// Registering the same ID again replaces the handler.
func (h *Host) Subscribe(id string, fn EventHandler) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	h.subs[id] = fn
}

// Unsubscribe removes a handler.
func (h *Host) Unsubscribe(id string) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	delete(h.subs, id)
}

// publish fans committed events out to subscribers in order.
func (h *Host) publish(events []token.Event) {
	h.subMu.RLock()
	handlers := make([]EventHandler, 0, len(h.subs))
	for _, fn := range h.subs {
		handlers = append(handlers, fn)
	}
	h.subMu.RUnlock()

	for _, ev := range events {
		for _, fn := range handlers {
			fn(ev)
		}
	}
}

// Snapshot returns the state after the last commit. Callers must not
// mutate it.
func (h *Host) Snapshot() *token.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

// StateRoot returns the commitment to the state after the last commit.
func (h *Host) StateRoot() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.root
}

// Version returns the stream head version.
func (h *Host) Version() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

// Created reports whether this host wrote the genesis events on Start.
func (h *Host) Created() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.created
}

// StreamID returns the event stream the host serves.
func (h *Host) StreamID() string {
	return h.cfg.StreamID
}

// BalanceOf returns the balance of an account, zero if it holds none.
func (h *Host) BalanceOf(a token.Address) *uint256.Int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if b, ok := h.snap.Balances[a]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

// TotalSupply returns the current total supply.
func (h *Host) TotalSupply() *uint256.Int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return new(uint256.Int).Set(h.snap.TotalSupply)
}

// Allowance returns the remaining allowance from owner to spender.
func (h *Host) Allowance(owner, spender token.Address) *uint256.Int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if inner, ok := h.snap.Allowances[owner]; ok {
		if a, ok := inner[spender]; ok {
			return new(uint256.Int).Set(a)
		}
	}
	return new(uint256.Int)
}

// Paused reports whether transfers are halted.
func (h *Host) Paused() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap.Paused
}

// HasRole reports whether an account holds a role.
func (h *Host) HasRole(role token.Role, a token.Address) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, member := range h.snap.Roles[role] {
		if member == a {
			return true
		}
	}
	return false
}

// History returns committed ledger events starting at fromVersion.
func (h *Host) History(ctx context.Context, fromVersion int) ([]token.Event, error) {
	return h.repo.Events(ctx, h.cfg.StreamID, fromVersion)
}

// Stats reports processing counters.
type Stats struct {
	Applied     int64 `json:"applied"`
	Rejected    int64 `json:"rejected"`
	Events      int64 `json:"events"`
	QueueDepth  int   `json:"queueDepth"`
	Subscribers int   `json:"subscribers"`
}

// Stats returns a point-in-time view of the processing counters.
func (h *Host) Stats() Stats {
	h.subMu.RLock()
	subs := len(h.subs)
	h.subMu.RUnlock()
	return Stats{
		Applied:     atomic.LoadInt64(&h.appliedCount),
		Rejected:    atomic.LoadInt64(&h.rejectedCount),
		Events:      atomic.LoadInt64(&h.eventCount),
		QueueDepth:  len(h.requests),
		Subscribers: subs,
	}
}

// Time source for testing.
var timeNow = func() time.Time { return time.Now().UTC() }
