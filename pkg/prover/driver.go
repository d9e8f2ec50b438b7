// Copyright 2025 Certen Protocol
//
// Driver generates Groth16 proofs for batch state transitions, either
// in-process or by invoking an external prover binary as a subprocess,
// mirroring the validator's governance-proof CLI adapter pattern.

package prover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// Proof is a generated Groth16 proof serialized for storage/submission,
// together with the public inputs it attests to.
type Proof struct {
	Bytes           []byte
	OldStateRoot    [32]byte
	NewStateRoot    [32]byte
	BatchCommitment [32]byte
}

// Driver owns the compiled circuit and its proving/verification keys, and
// generates proofs either in-process or via an external binary.
type Driver struct {
	mu sync.RWMutex

	cs constraint.ConstraintSystem
	pk groth16.ProvingKey
	vk groth16.VerifyingKey

	initialized bool

	proverBinaryPath string
	maxRetries       int
	dataDir          string

	logger *log.Logger
}

// New constructs a Driver. If proverBinaryPath is empty, proofs are always
// generated in-process.
func New(proverBinaryPath string, maxRetries int, dataDir string) *Driver {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Driver{
		proverBinaryPath: proverBinaryPath,
		maxRetries:       maxRetries,
		dataDir:          dataDir,
		logger:           log.New(log.Writer(), "[Prover] ", log.LstdFlags),
	}
}

// compileCircuit compiles circuit into an R1CS constraint system, shared
// by Setup (which also runs the trusted setup) and execute mode (which
// only needs the constraint count).
func compileCircuit(circuit *TransferBatchCircuit) (constraint.ConstraintSystem, error) {
	return frontend.Compile(CurveID.ScalarField(), r1cs.NewBuilder, circuit)
}

func (d *Driver) keyPaths() (pk, vk, cs string) {
	dir := filepath.Join(d.dataDir, "prover_keys")
	return filepath.Join(dir, "pk.bin"), filepath.Join(dir, "vk.bin"), filepath.Join(dir, "cs.bin")
}

// Setup compiles the circuit and performs the Groth16 trusted setup if no
// key files exist yet at dataDir/prover_keys; otherwise it loads the
// existing keys. The path-existence check makes the first process to run
// Setup (across replicas sharing dataDir) the writer; everyone else loads.
func (d *Driver) Setup() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	pkPath, vkPath, csPath := d.keyPaths()
	if _, err := os.Stat(pkPath); err == nil {
		return d.loadKeysLocked(pkPath, vkPath, csPath)
	}

	if err := os.MkdirAll(filepath.Dir(pkPath), 0o755); err != nil {
		return fmt.Errorf("create prover key directory: %w", err)
	}

	var circuit TransferBatchCircuit
	cs, err := compileCircuit(&circuit)
	if err != nil {
		return fmt.Errorf("compile circuit: %w", err)
	}

	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return fmt.Errorf("groth16 setup: %w", err)
	}

	d.cs, d.pk, d.vk = cs, pk, vk
	d.initialized = true

	if err := d.saveKeysLocked(pkPath, vkPath, csPath); err != nil {
		d.logger.Printf("warning: failed to persist prover keys: %v", err)
	}
	return nil
}

func (d *Driver) loadKeysLocked(pkPath, vkPath, csPath string) error {
	csFile, err := os.Open(csPath)
	if err != nil {
		return fmt.Errorf("open constraint system: %w", err)
	}
	defer csFile.Close()

	d.cs = groth16.NewCS(ecc.BN254)
	if _, err := d.cs.ReadFrom(csFile); err != nil {
		return fmt.Errorf("read constraint system: %w", err)
	}

	pkFile, err := os.Open(pkPath)
	if err != nil {
		return fmt.Errorf("open proving key: %w", err)
	}
	defer pkFile.Close()

	d.pk = groth16.NewProvingKey(ecc.BN254)
	if _, err := d.pk.ReadFrom(pkFile); err != nil {
		return fmt.Errorf("read proving key: %w", err)
	}

	vkFile, err := os.Open(vkPath)
	if err != nil {
		return fmt.Errorf("open verification key: %w", err)
	}
	defer vkFile.Close()

	d.vk = groth16.NewVerifyingKey(ecc.BN254)
	if _, err := d.vk.ReadFrom(vkFile); err != nil {
		return fmt.Errorf("read verification key: %w", err)
	}

	d.initialized = true
	return nil
}

func (d *Driver) saveKeysLocked(pkPath, vkPath, csPath string) error {
	csFile, err := os.Create(csPath)
	if err != nil {
		return fmt.Errorf("create constraint system file: %w", err)
	}
	defer csFile.Close()
	if _, err := d.cs.WriteTo(csFile); err != nil {
		return fmt.Errorf("write constraint system: %w", err)
	}

	pkFile, err := os.Create(pkPath)
	if err != nil {
		return fmt.Errorf("create proving key file: %w", err)
	}
	defer pkFile.Close()
	if _, err := d.pk.WriteTo(pkFile); err != nil {
		return fmt.Errorf("write proving key: %w", err)
	}

	vkFile, err := os.Create(vkPath)
	if err != nil {
		return fmt.Errorf("create verification key file: %w", err)
	}
	defer vkFile.Close()
	if _, err := d.vk.WriteTo(vkFile); err != nil {
		return fmt.Errorf("write verification key: %w", err)
	}
	return nil
}

// GenerateProof proves witness, retrying up to maxRetries times. When a
// prover binary is configured, generation happens out-of-process via its
// --prove flag; otherwise the in-process Groth16 prover runs
// directly.
func (d *Driver) GenerateProof(ctx context.Context, witness *BatchWitness) (*Proof, error) {
	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		var proof *Proof
		var err error
		if d.proverBinaryPath != "" {
			proof, err = d.generateViaSubprocess(ctx, witness)
		} else {
			proof, err = d.generateInProcess(witness)
		}
		if err == nil {
			return proof, nil
		}
		lastErr = err
		d.logger.Printf("proof generation attempt %d/%d failed: %v", attempt, d.maxRetries, err)
	}
	return nil, fmt.Errorf("proof generation failed after %d attempts: %w", d.maxRetries, lastErr)
}

func (d *Driver) generateInProcess(witness *BatchWitness) (*Proof, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return nil, errors.New("prover not initialized, call Setup first")
	}

	assignment := witness.Assignment()
	w, err := frontend.NewWitness(assignment, CurveID.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("create witness: %w", err)
	}

	proof, err := groth16.Prove(d.cs, d.pk, w)
	if err != nil {
		return nil, fmt.Errorf("generate proof: %w", err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize proof: %w", err)
	}

	return &Proof{
		Bytes:           buf.Bytes(),
		OldStateRoot:    witness.OldStateRoot,
		NewStateRoot:    witness.NewStateRoot,
		BatchCommitment: witness.BatchCommitment,
	}, nil
}

// generateViaSubprocess invokes the external prover binary with --prove,
// feeding it the wire-encoded witness on stdin and reading the
// serialized proof from stdout. Mirrors the governance-proof CLI adapter:
// a bounded timeout, stderr surfaced on exec.ExitError.
func (d *Driver) generateViaSubprocess(ctx context.Context, witness *BatchWitness) (*Proof, error) {
	encoded, err := witness.EncodeWireFormat()
	if err != nil {
		return nil, err
	}

	cmdCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, d.proverBinaryPath, "--prove", "--data-dir", d.dataDir)
	cmd.Stdin = bytes.NewReader(encoded)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("prover subprocess exited %d: %s", exitErr.ExitCode(), stderr.String())
		}
		return nil, fmt.Errorf("prover subprocess error: %w", err)
	}

	return &Proof{
		Bytes:           stdout.Bytes(),
		OldStateRoot:    witness.OldStateRoot,
		NewStateRoot:    witness.NewStateRoot,
		BatchCommitment: witness.BatchCommitment,
	}, nil
}

// VerifyLocally verifies proof against the driver's verification key, for
// tests and pre-submission sanity checks.
func (d *Driver) VerifyLocally(proof *Proof) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return false, errors.New("prover not initialized, call Setup first")
	}

	assignment := &TransferBatchCircuit{
		OldStateRoot:    rootToField(proof.OldStateRoot),
		NewStateRoot:    rootToField(proof.NewStateRoot),
		BatchCommitment: rootToField(proof.BatchCommitment),
	}
	publicWitness, err := frontend.NewWitness(assignment, CurveID.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("create public witness: %w", err)
	}

	proof16 := groth16.NewProof(ecc.BN254)
	if _, err := proof16.ReadFrom(bytes.NewReader(proof.Bytes)); err != nil {
		return false, fmt.Errorf("deserialize proof: %w", err)
	}

	if err := groth16.Verify(proof16, d.vk, publicWitness); err != nil {
		return false, nil
	}
	return true, nil
}
