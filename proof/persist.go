package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// SaveTo persists a compiled circuit's constraint system and keys
// under dir, creating it if needed. Files written:
//
//	circuit.r1cs  — constraint system
//	proving.key   — proving key
//	verifying.key — verifying key
//	circuit.hash  — SHA-256 of the constraint system (hex)
func (c *Circuit) SaveTo(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("proof: create key dir: %w", err)
	}

	if err := writeTo(filepath.Join(dir, "circuit.r1cs"), c.CS); err != nil {
		return fmt.Errorf("proof: save constraint system: %w", err)
	}
	if err := writeTo(filepath.Join(dir, "proving.key"), c.ProvingKey); err != nil {
		return fmt.Errorf("proof: save proving key: %w", err)
	}
	if err := writeTo(filepath.Join(dir, "verifying.key"), c.VerifyingKey); err != nil {
		return fmt.Errorf("proof: save verifying key: %w", err)
	}

	hash, err := hashCS(c.CS)
	if err != nil {
		return fmt.Errorf("proof: hash constraint system: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "circuit.hash"), []byte(hash), 0o644); err != nil {
		return fmt.Errorf("proof: save circuit hash: %w", err)
	}
	return nil
}

// LoadFrom restores a compiled circuit from dir.
func (p *Prover) LoadFrom(name, dir string) (*Circuit, error) {
	cs := groth16.NewCS(p.curve)
	if err := readFrom(filepath.Join(dir, "circuit.r1cs"), cs); err != nil {
		return nil, fmt.Errorf("proof: load constraint system: %w", err)
	}
	pk := groth16.NewProvingKey(p.curve)
	if err := readFrom(filepath.Join(dir, "proving.key"), pk); err != nil {
		return nil, fmt.Errorf("proof: load proving key: %w", err)
	}
	vk := groth16.NewVerifyingKey(p.curve)
	if err := readFrom(filepath.Join(dir, "verifying.key"), vk); err != nil {
		return nil, fmt.Errorf("proof: load verifying key: %w", err)
	}

	c := &Circuit{
		Name:         name,
		CS:           cs,
		ProvingKey:   pk,
		VerifyingKey: vk,
		Constraints:  cs.GetNbConstraints(),
	}
	p.store(c)
	return c, nil
}

// LoadOrRegister reuses cached keys under dir when they match the
// circuit definition, and compiles plus re-runs the setup otherwise.
// Compilation is cheap next to the setup, so the staleness check
// compiles fresh and compares hashes.
func (p *Prover) LoadOrRegister(name string, circuit frontend.Circuit, dir string) error {
	cs, err := frontend.Compile(p.curve.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return fmt.Errorf("proof: compile %s: %w", name, err)
	}
	fresh, err := hashCS(cs)
	if err != nil {
		return fmt.Errorf("proof: hash constraint system: %w", err)
	}

	stored, err := os.ReadFile(filepath.Join(dir, "circuit.hash"))
	if err == nil && string(stored) == fresh {
		if _, err := p.LoadFrom(name, dir); err == nil {
			return nil
		}
	}

	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return fmt.Errorf("proof: setup %s: %w", name, err)
	}
	c := &Circuit{
		Name:         name,
		CS:           cs,
		ProvingKey:   pk,
		VerifyingKey: vk,
		Constraints:  cs.GetNbConstraints(),
	}
	p.store(c)
	return c.SaveTo(dir)
}

// LoadOrRegisterDefaults is RegisterDefaults with key caching: each
// circuit keeps its keys in its own subdirectory of dir.
func (p *Prover) LoadOrRegisterDefaults(dir string) error {
	if err := p.LoadOrRegister(CircuitSolvency, &SolvencyCircuit{}, filepath.Join(dir, CircuitSolvency)); err != nil {
		return err
	}
	if err := p.LoadOrRegister(CircuitAllowance, &AllowanceCircuit{}, filepath.Join(dir, CircuitAllowance)); err != nil {
		return err
	}
	return p.LoadOrRegister(CircuitTransition, &TransitionCircuit{}, filepath.Join(dir, CircuitTransition))
}

func writeTo(path string, src io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = src.WriteTo(f)
	return err
}

func readFrom(path string, dst io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = dst.ReadFrom(f)
	return err
}

func hashCS(cs constraint.ConstraintSystem) (string, error) {
	h := sha256.New()
	if _, err := cs.WriteTo(h); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
