package proof

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// Prover compiles the ledger circuits once and generates Groth16
// proofs on demand. BN254 keeps proofs verifiable by the generated
// Solidity verifier.
type Prover struct {
	mu       sync.RWMutex
	circuits map[string]*Circuit
	curve    ecc.ID
}

// Circuit is a compiled constraint system with its keys.
type Circuit struct {
	Name         string
	CS           constraint.ConstraintSystem
	ProvingKey   groth16.ProvingKey
	VerifyingKey groth16.VerifyingKey
	Constraints  int
}

// Result is a generated proof in the flat form on-chain verifiers
// take: eight field words for (A, B, C) plus the public inputs.
type Result struct {
	Circuit      string   `json:"circuit"`
	Proof        []string `json:"proof"`
	PublicInputs []string `json:"publicInputs"`
	Constraints  int      `json:"constraints"`
}

// NewProver creates an empty prover. Register circuits before proving.
func NewProver() *Prover {
	return &Prover{
		circuits: make(map[string]*Circuit),
		curve:    ecc.BN254,
	}
}

// Register compiles a circuit, runs the setup, and stores it under
// name. Setup here is single-party; production deployments substitute
// a ceremony.
func (p *Prover) Register(name string, circuit frontend.Circuit) error {
	cs, err := frontend.Compile(p.curve.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return fmt.Errorf("proof: compile %s: %w", name, err)
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return fmt.Errorf("proof: setup %s: %w", name, err)
	}
	p.store(&Circuit{
		Name:         name,
		CS:           cs,
		ProvingKey:   pk,
		VerifyingKey: vk,
		Constraints:  cs.GetNbConstraints(),
	})
	return nil
}

// RegisterDefaults compiles the three ledger circuits.
func (p *Prover) RegisterDefaults() error {
	if err := p.Register(CircuitSolvency, &SolvencyCircuit{}); err != nil {
		return err
	}
	if err := p.Register(CircuitAllowance, &AllowanceCircuit{}); err != nil {
		return err
	}
	return p.Register(CircuitTransition, &TransitionCircuit{})
}

func (p *Prover) store(c *Circuit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.circuits[c.Name] = c
}

// Get returns a compiled circuit by name.
func (p *Prover) Get(name string) (*Circuit, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.circuits[name]
	return c, ok
}

// Names lists the registered circuits in sorted order.
func (p *Prover) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.circuits))
	for name := range p.circuits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Prove generates a proof for the named circuit from an assignment.
func (p *Prover) Prove(name string, assignment frontend.Circuit) (*Result, error) {
	c, ok := p.Get(name)
	if !ok {
		return nil, fmt.Errorf("proof: circuit %q not registered", name)
	}

	witness, err := frontend.NewWitness(assignment, p.curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("proof: build witness: %w", err)
	}
	generated, err := groth16.Prove(c.CS, c.ProvingKey, witness)
	if err != nil {
		return nil, fmt.Errorf("proof: prove %s: %w", name, err)
	}
	public, err := witness.Public()
	if err != nil {
		return nil, fmt.Errorf("proof: extract public witness: %w", err)
	}

	result, err := flatten(generated, c)
	if err != nil {
		return nil, err
	}
	result.PublicInputs, err = publicInputs(public)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Verify generates and verifies a proof locally, returning nil when
// the assignment satisfies the circuit.
func (p *Prover) Verify(name string, assignment frontend.Circuit) error {
	c, ok := p.Get(name)
	if !ok {
		return fmt.Errorf("proof: circuit %q not registered", name)
	}

	witness, err := frontend.NewWitness(assignment, p.curve.ScalarField())
	if err != nil {
		return fmt.Errorf("proof: build witness: %w", err)
	}
	generated, err := groth16.Prove(c.CS, c.ProvingKey, witness)
	if err != nil {
		return fmt.Errorf("proof: prove %s: %w", name, err)
	}
	public, err := witness.Public()
	if err != nil {
		return fmt.Errorf("proof: extract public witness: %w", err)
	}
	return groth16.Verify(generated, c.VerifyingKey, public)
}

// ExportVerifier renders the Solidity verifier contract for a circuit.
func (p *Prover) ExportVerifier(name string) (string, error) {
	c, ok := p.Get(name)
	if !ok {
		return "", fmt.Errorf("proof: circuit %q not registered", name)
	}
	var buf bytes.Buffer
	if err := c.VerifyingKey.ExportSolidity(&buf); err != nil {
		return "", fmt.Errorf("proof: export verifier: %w", err)
	}
	return buf.String(), nil
}

// flatten serializes a proof into the eight-word layout
// [A.X, A.Y, B.X0, B.X1, B.Y0, B.Y1, C.X, C.Y].
func flatten(generated groth16.Proof, c *Circuit) (*Result, error) {
	var buf bytes.Buffer
	if _, err := generated.WriteRawTo(&buf); err != nil {
		return nil, fmt.Errorf("proof: serialize proof: %w", err)
	}
	raw := buf.Bytes()

	// Uncompressed BN254 layout: A (G1, 64 bytes), B (G2, 128), C (G1, 64).
	const want = 256
	if len(raw) < want {
		return nil, fmt.Errorf("proof: short proof serialization: %d bytes", len(raw))
	}

	words := make([]string, 8)
	for i := range words {
		word := new(big.Int).SetBytes(raw[i*32 : (i+1)*32])
		words[i] = fmt.Sprintf("0x%064x", word)
	}
	return &Result{
		Circuit:     c.Name,
		Proof:       words,
		Constraints: c.Constraints,
	}, nil
}

// publicInputs decodes the public witness into hex field words. The
// witness serialization is a 12-byte header followed by 32-byte
// elements.
func publicInputs(public interface{ MarshalBinary() ([]byte, error) }) ([]string, error) {
	raw, err := public.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("proof: marshal public witness: %w", err)
	}

	const headerSize = 12
	const elementSize = 32
	if len(raw) < headerSize {
		return nil, fmt.Errorf("proof: short public witness: %d bytes", len(raw))
	}

	data := raw[headerSize:]
	out := make([]string, 0, len(data)/elementSize)
	for start := 0; start+elementSize <= len(data); start += elementSize {
		word := new(big.Int).SetBytes(data[start : start+elementSize])
		out = append(out, fmt.Sprintf("0x%064x", word))
	}
	return out, nil
}
