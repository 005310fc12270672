// Package rpc exposes a ledger host over HTTP: transaction submission,
// state queries, schema and proof endpoints, and a WebSocket stream of
// committed events. A node serves exactly one ledger stream; deploy
// writes its genesis when the backing store does not hold it yet.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/consensys/gnark/frontend"
	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-mona/analysis"
	"github.com/pflow-xyz/go-mona/eventstore"
	"github.com/pflow-xyz/go-mona/host"
	"github.com/pflow-xyz/go-mona/proof"
	"github.com/pflow-xyz/go-mona/schema"
	"github.com/pflow-xyz/go-mona/token"
)

// ErrAlreadyDeployed is returned when deploy names a different deployer
// than the one the stream was created with.
var ErrAlreadyDeployed = errors.New("rpc: ledger already deployed")

// ErrNotDeployed is returned by queries before a ledger exists.
var ErrNotDeployed = errors.New("rpc: no ledger deployed")

// Config controls the node.
type Config struct {
	// StreamID is the event stream the node serves. Defaults to
	// "mona:main".
	StreamID string

	// CheckInvariants forwards to the host.
	CheckInvariants bool

	// Prover serves the proof endpoints when set. Without it those
	// endpoints answer 503.
	Prover *proof.Prover
}

// Server is the HTTP node. It owns at most one host: either adopted
// from an existing stream on Start or created by the first deploy.
type Server struct {
	cfg      Config
	repo     *eventstore.Repository
	schema   *schema.Schema
	started  time.Time
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	host     *host.Host
	deployer token.Address
	ledger   token.Address

	clientMu sync.RWMutex
	clients  map[*streamClient]bool
}

// NewServer creates a node over the given repository. Call Start to
// attach to an existing stream before serving.
func NewServer(repo *eventstore.Repository, cfg Config) *Server {
	if cfg.StreamID == "" {
		cfg.StreamID = "mona:main"
	}
	return &Server{
		cfg:     cfg,
		repo:    repo,
		schema:  token.Schema(),
		started: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*streamClient]bool),
	}
}

// Start adopts the stream if it already exists. An empty store leaves
// the node waiting for a deploy.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.host != nil {
		return nil
	}

	version, err := s.repo.Version(ctx, s.cfg.StreamID)
	if err != nil {
		return fmt.Errorf("rpc: check stream %s: %w", s.cfg.StreamID, err)
	}
	if version < 0 {
		log.Printf("rpc: stream %s is empty, waiting for deploy", s.cfg.StreamID)
		return nil
	}

	h := host.New(s.repo, host.Config{
		StreamID:        s.cfg.StreamID,
		CheckInvariants: s.cfg.CheckInvariants,
	})
	if err := h.Start(ctx); err != nil {
		return err
	}
	return s.adoptLocked(ctx, h)
}

// Close stops the host and drops connected stream clients.
func (s *Server) Close() {
	s.mu.Lock()
	h := s.host
	s.host = nil
	s.mu.Unlock()
	if h != nil {
		h.Unsubscribe(streamSubscriberID)
		h.Stop()
	}

	s.clientMu.Lock()
	for client := range s.clients {
		client.conn.Close()
	}
	s.clientMu.Unlock()
}

// Deploy creates the ledger stream for the deployer, or reports the
// existing one when the same deployer deploys again.
func (s *Server) Deploy(ctx context.Context, deployer token.Address) (*DeployResponse, error) {
	if deployer.IsZero() {
		return nil, fmt.Errorf("%w: deployer", token.ErrZeroAddress)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := false
	if s.host == nil {
		h := host.New(s.repo, host.Config{
			StreamID:        s.cfg.StreamID,
			Deployer:        deployer,
			CheckInvariants: s.cfg.CheckInvariants,
		})
		if err := h.Start(ctx); err != nil {
			return nil, fmt.Errorf("rpc: deploy: %w", err)
		}
		if err := s.adoptLocked(ctx, h); err != nil {
			return nil, err
		}
		created = h.Created()
	}
	if s.deployer != deployer {
		return nil, fmt.Errorf("%w: stream %s belongs to %s", ErrAlreadyDeployed, s.cfg.StreamID, s.deployer)
	}

	return &DeployResponse{
		Created:     created,
		Ledger:      s.ledger.String(),
		Deployer:    s.deployer.String(),
		Stream:      s.host.StreamID(),
		Name:        token.Name,
		Symbol:      token.Symbol,
		Decimals:    token.Decimals,
		TotalSupply: s.host.TotalSupply().Dec(),
		Version:     s.host.Version(),
		StateRoot:   s.host.StateRoot(),
	}, nil
}

// adoptLocked takes ownership of a started host: the genesis deployer
// is recovered from the first stream event and fixes the ledger
// address. Callers hold s.mu.
func (s *Server) adoptLocked(ctx context.Context, h *host.Host) error {
	events, err := h.History(ctx, 0)
	if err != nil {
		h.Stop()
		return fmt.Errorf("rpc: read genesis: %w", err)
	}
	if len(events) == 0 {
		h.Stop()
		return fmt.Errorf("rpc: stream %s has no genesis events", s.cfg.StreamID)
	}
	deployer, err := events[0].Address(token.AttrAccount)
	if err != nil {
		h.Stop()
		return fmt.Errorf("rpc: recover deployer: %w", err)
	}

	s.host = h
	s.deployer = deployer
	s.ledger = token.LedgerAddress(deployer, events[0].Seq)
	h.Subscribe(streamSubscriberID, s.broadcastEvent)

	log.Printf("rpc: serving ledger %s (stream %s, version %d)", s.ledger, h.StreamID(), h.Version())
	return nil
}

// running returns the host, nil before deploy.
func (s *Server) running() *host.Host {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.host
}

// Handler returns the HTTP handler for the node.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /deploy", s.handleDeploy)
	mux.HandleFunc("POST /tx", s.handleSubmit)
	mux.HandleFunc("GET /balance/{address}", s.handleBalance)
	mux.HandleFunc("GET /allowance/{owner}/{spender}", s.handleAllowance)
	mux.HandleFunc("GET /roles/{account}", s.handleRoles)
	mux.HandleFunc("GET /schema", s.handleSchema)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /verify", s.handleVerify)
	mux.HandleFunc("GET /circuits", s.handleCircuits)
	mux.HandleFunc("POST /prove/{circuit}", s.handleProve)
	mux.HandleFunc("GET /verifier/{circuit}", s.handleVerifier)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return mux
}

// HealthResponse is the response for the health endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Deployed bool   `json:"deployed"`
	Clients  int    `json:"clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientMu.RLock()
	clients := len(s.clients)
	s.clientMu.RUnlock()

	resp := HealthResponse{
		Status:   "ok",
		Uptime:   time.Since(s.started).String(),
		Deployed: s.running() != nil,
		Clients:  clients,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// StatusResponse describes the ledger the node serves.
type StatusResponse struct {
	Stream      string     `json:"stream"`
	Ledger      string     `json:"ledger"`
	Deployer    string     `json:"deployer"`
	Name        string     `json:"name"`
	Symbol      string     `json:"symbol"`
	Decimals    int        `json:"decimals"`
	TotalSupply string     `json:"totalSupply"`
	Paused      bool       `json:"paused"`
	Sequence    uint64     `json:"sequence"`
	Version     int        `json:"version"`
	StateRoot   string     `json:"stateRoot"`
	Stats       host.Stats `json:"stats"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	h := s.running()
	if h == nil {
		http.Error(w, ErrNotDeployed.Error(), http.StatusServiceUnavailable)
		return
	}

	s.mu.RLock()
	ledger, deployer := s.ledger, s.deployer
	s.mu.RUnlock()
	snap := h.Snapshot()

	resp := StatusResponse{
		Stream:      h.StreamID(),
		Ledger:      ledger.String(),
		Deployer:    deployer.String(),
		Name:        token.Name,
		Symbol:      token.Symbol,
		Decimals:    token.Decimals,
		TotalSupply: snap.TotalSupply.Dec(),
		Paused:      snap.Paused,
		Sequence:    snap.Sequence,
		Version:     h.Version(),
		StateRoot:   h.StateRoot(),
		Stats:       h.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// DeployRequest names the account receiving genesis supply and roles.
type DeployRequest struct {
	Deployer string `json:"deployer"`
}

// DeployResponse reports the deployed ledger's identity.
type DeployResponse struct {
	Created     bool   `json:"created"`
	Ledger      string `json:"ledger"`
	Deployer    string `json:"deployer"`
	Stream      string `json:"stream"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
	Version     int    `json:"version"`
	StateRoot   string `json:"stateRoot"`
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	deployer, err := token.ParseAddress(req.Deployer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.Deploy(r.Context(), deployer)
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrAlreadyDeployed):
			code = http.StatusConflict
		case errors.Is(err, token.ErrZeroAddress):
			code = http.StatusBadRequest
		}
		http.Error(w, err.Error(), code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// TxRequest is a transaction in wire form. Addresses are 0x hex,
// amounts decimal base-unit strings, fields an op does not use stay
// empty.
type TxRequest struct {
	Op      string `json:"op"`
	Caller  string `json:"caller"`
	To      string `json:"to,omitempty"`
	From    string `json:"from,omitempty"`
	Spender string `json:"spender,omitempty"`
	Account string `json:"account,omitempty"`
	Role    string `json:"role,omitempty"`
	Amount  string `json:"amount,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h := s.running()
	if h == nil {
		http.Error(w, ErrNotDeployed.Error(), http.StatusServiceUnavailable)
		return
	}

	var req TxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	tx, err := parseTx(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	receipt, err := h.Submit(r.Context(), tx)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, host.ErrStopped) {
			code = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), code)
		return
	}

	if receipt.Applied() {
		log.Printf("rpc: tx %s %s applied, seq=%d", receipt.TxID, tx.Op, receipt.Sequence)
	} else {
		log.Printf("rpc: tx %s %s rejected: %s", receipt.TxID, tx.Op, receipt.Error)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(receipt)
}

// parseTx converts a wire transaction. Empty address fields stay the
// zero address; the ledger rejects the ones an op requires.
func parseTx(req TxRequest) (host.Tx, error) {
	tx := host.Tx{Op: host.Op(req.Op), Role: token.Role(req.Role)}

	caller, err := token.ParseAddress(req.Caller)
	if err != nil {
		return tx, fmt.Errorf("caller: %w", err)
	}
	tx.Caller = caller

	for _, f := range []struct {
		name  string
		raw   string
		field *token.Address
	}{
		{"to", req.To, &tx.To},
		{"from", req.From, &tx.From},
		{"spender", req.Spender, &tx.Spender},
		{"account", req.Account, &tx.Account},
	} {
		if f.raw == "" {
			continue
		}
		a, err := token.ParseAddress(f.raw)
		if err != nil {
			return tx, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.field = a
	}

	if req.Amount != "" {
		amount, err := uint256.FromDecimal(req.Amount)
		if err != nil {
			return tx, fmt.Errorf("amount %q: %w", req.Amount, err)
		}
		tx.Amount = amount
	}
	return tx, nil
}

// BalanceResponse carries a balance in base units and whole tokens.
type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Tokens  string `json:"tokens"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	h := s.running()
	if h == nil {
		http.Error(w, ErrNotDeployed.Error(), http.StatusServiceUnavailable)
		return
	}
	addr, err := token.ParseAddress(r.PathValue("address"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	balance := h.BalanceOf(addr)
	resp := BalanceResponse{
		Address: addr.String(),
		Balance: balance.Dec(),
		Tokens:  token.FormatAmount(balance),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// AllowanceResponse carries a remaining allowance. Unlimited marks the
// max-uint256 sentinel that transferFrom never draws down.
type AllowanceResponse struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Remaining string `json:"remaining"`
	Tokens    string `json:"tokens"`
	Unlimited bool   `json:"unlimited"`
}

func (s *Server) handleAllowance(w http.ResponseWriter, r *http.Request) {
	h := s.running()
	if h == nil {
		http.Error(w, ErrNotDeployed.Error(), http.StatusServiceUnavailable)
		return
	}
	owner, err := token.ParseAddress(r.PathValue("owner"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	spender, err := token.ParseAddress(r.PathValue("spender"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	remaining := h.Allowance(owner, spender)
	resp := AllowanceResponse{
		Owner:     owner.String(),
		Spender:   spender.String(),
		Remaining: remaining.Dec(),
		Tokens:    token.FormatAmount(remaining),
		Unlimited: remaining.Eq(token.MaxAllowance()),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// RolesResponse reports role membership for one account.
type RolesResponse struct {
	Account string          `json:"account"`
	Roles   map[string]bool `json:"roles"`
}

func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	h := s.running()
	if h == nil {
		http.Error(w, ErrNotDeployed.Error(), http.StatusServiceUnavailable)
		return
	}
	account, err := token.ParseAddress(r.PathValue("account"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	roles := make(map[string]bool, len(token.Roles))
	for _, role := range token.Roles {
		roles[role.String()] = h.HasRole(role, account)
	}
	resp := RolesResponse{Account: account.String(), Roles: roles}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// SchemaResponse carries the contract declaration and its content
// address.
type SchemaResponse struct {
	CID    string         `json:"cid"`
	Schema *schema.Schema `json:"schema"`
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	resp := SchemaResponse{
		CID:    s.schema.CID(),
		Schema: s.schema,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// EventsResponse is a slice of committed history.
type EventsResponse struct {
	Stream string        `json:"stream"`
	From   int           `json:"from"`
	Count  int           `json:"count"`
	Events []token.Event `json:"events"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	h := s.running()
	if h == nil {
		http.Error(w, ErrNotDeployed.Error(), http.StatusServiceUnavailable)
		return
	}

	from := 0
	if raw := r.URL.Query().Get("from"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("from %q is not an integer", raw), http.StatusBadRequest)
			return
		}
		from = n
	}

	events, err := h.History(r.Context(), from)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := EventsResponse{
		Stream: h.StreamID(),
		From:   from,
		Count:  len(events),
		Events: events,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// VerifyResponse reports whether the schema constraints hold against
// the live snapshot.
type VerifyResponse struct {
	OK          bool     `json:"ok"`
	Sequence    uint64   `json:"sequence"`
	StateRoot   string   `json:"stateRoot"`
	Constraints int      `json:"constraints"`
	Violations  []string `json:"violations,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	h := s.running()
	if h == nil {
		http.Error(w, ErrNotDeployed.Error(), http.StatusServiceUnavailable)
		return
	}

	snap := h.Snapshot()
	violations := analysis.CheckConstraints(s.schema, snap)
	resp := VerifyResponse{
		OK:          len(violations) == 0,
		Sequence:    snap.Sequence,
		StateRoot:   h.StateRoot(),
		Constraints: len(s.schema.Constraints),
	}
	for _, v := range violations {
		resp.Violations = append(resp.Violations, v.String())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CircuitInfo provides metadata about a registered circuit.
type CircuitInfo struct {
	Name        string `json:"name"`
	Constraints int    `json:"constraints"`
}

// CircuitsResponse lists all registered circuits.
type CircuitsResponse struct {
	Circuits []CircuitInfo `json:"circuits"`
}

func (s *Server) handleCircuits(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Prover == nil {
		http.Error(w, "prover not configured", http.StatusServiceUnavailable)
		return
	}

	var resp CircuitsResponse
	for _, name := range s.cfg.Prover.Names() {
		c, ok := s.cfg.Prover.Get(name)
		if !ok {
			continue
		}
		resp.Circuits = append(resp.Circuits, CircuitInfo{
			Name:        c.Name,
			Constraints: c.Constraints,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ProveRequest names the accounts and amount a proof is built for. The
// witness comes from the live snapshot, not the request.
type ProveRequest struct {
	From   string `json:"from,omitempty"`
	Caller string `json:"caller,omitempty"`
	Amount string `json:"amount"`
}

// ProveResponse is the response from proof generation.
type ProveResponse struct {
	Proof       *proof.Result `json:"proof,omitempty"`
	Error       string        `json:"error,omitempty"`
	ProofTimeMs int64         `json:"proofTimeMs"`
	Circuit     string        `json:"circuit"`
	Constraints int           `json:"constraints"`
}

func (s *Server) handleProve(w http.ResponseWriter, r *http.Request) {
	circuit := r.PathValue("circuit")
	if s.cfg.Prover == nil {
		http.Error(w, "prover not configured", http.StatusServiceUnavailable)
		return
	}
	cc, ok := s.cfg.Prover.Get(circuit)
	if !ok {
		http.Error(w, fmt.Sprintf("circuit %q not found", circuit), http.StatusNotFound)
		return
	}
	h := s.running()
	if h == nil {
		http.Error(w, ErrNotDeployed.Error(), http.StatusServiceUnavailable)
		return
	}

	var req ProveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	assignment, err := liveAssignment(h.Snapshot(), circuit, req)
	if err != nil {
		resp := ProveResponse{
			Error:       err.Error(),
			Circuit:     circuit,
			Constraints: cc.Constraints,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(resp)
		return
	}

	start := time.Now()
	result, err := s.cfg.Prover.Prove(circuit, assignment)
	elapsed := time.Since(start)

	resp := ProveResponse{
		Circuit:     circuit,
		Constraints: cc.Constraints,
		ProofTimeMs: elapsed.Milliseconds(),
	}
	if err != nil {
		resp.Error = err.Error()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(resp)
		return
	}
	resp.Proof = result

	log.Printf("rpc: proof generated, circuit=%s constraints=%d elapsed=%s", circuit, cc.Constraints, elapsed)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// liveAssignment builds a circuit witness from the current snapshot.
// Transition proofs compare two snapshots and cannot be built from a
// single live state.
func liveAssignment(snap *token.Snapshot, circuit string, req ProveRequest) (frontend.Circuit, error) {
	if req.Amount == "" {
		return nil, fmt.Errorf("%w: amount required", token.ErrBadAmount)
	}
	amount, err := uint256.FromDecimal(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", req.Amount, err)
	}
	from, err := token.ParseAddress(req.From)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}

	switch circuit {
	case proof.CircuitSolvency:
		return proof.SolvencyWitness(snap, from, amount)
	case proof.CircuitAllowance:
		caller, err := token.ParseAddress(req.Caller)
		if err != nil {
			return nil, fmt.Errorf("caller: %w", err)
		}
		return proof.AllowanceWitness(snap, from, caller, amount)
	default:
		return nil, fmt.Errorf("rpc: no live witness for circuit %q", circuit)
	}
}

func (s *Server) handleVerifier(w http.ResponseWriter, r *http.Request) {
	circuit := r.PathValue("circuit")
	if s.cfg.Prover == nil {
		http.Error(w, "prover not configured", http.StatusServiceUnavailable)
		return
	}

	solidity, err := s.cfg.Prover.ExportVerifier(circuit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(solidity))
}
