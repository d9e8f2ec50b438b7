// Copyright 2025 Certen Protocol
//
// RunCLI implements the offline prover binary: a subprocess the Driver
// spawns in prove mode, and a standalone tool operators can run in
// execute mode to dry-run a witness without touching the proving key
// cache. Flag handling mirrors the original script's mutually-exclusive
// --execute/--prove contract.

package prover

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
)

// BatchResult is the committed output of execute mode: the same shape as
// the zkVM program's public result, bincode-compatible (a single u64
// field serializes as its 8-byte little-endian encoding, with no extra
// framing).
type BatchResult struct {
	CyclesUsed uint64
}

// EncodeBatchResult serializes r the way a single-field bincode struct
// with no variable-length members does: just the field bytes.
func EncodeBatchResult(r BatchResult) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, r.CyclesUsed)
	return buf
}

// RunCLI parses os.Args[1:], runs the requested mode against a witness
// read from stdin, and writes its result to stdout. It returns an error
// only for mutually-exclusive flag misuse or a mode failure; callers are
// expected to translate a non-nil error into exit code 1.
func RunCLI(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) error {
	fs := flag.NewFlagSet("prover", flag.ContinueOnError)
	fs.SetOutput(stderr)
	execute := fs.Bool("execute", false, "execute the batch circuit without generating a proof")
	prove := fs.Bool("prove", false, "generate a Groth16 proof for the batch circuit")
	dataDir := fs.String("data-dir", ".", "directory holding the persisted proving/verifying key cache")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *execute == *prove {
		return fmt.Errorf("specify exactly one of --execute or --prove")
	}

	encoded, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("read witness from stdin: %w", err)
	}
	witness, err := DecodeWireFormat(encoded)
	if err != nil {
		return fmt.Errorf("decode witness: %w", err)
	}

	if *execute {
		return runExecute(witness, stdout)
	}
	return runProve(witness, *dataDir, stdout)
}

// runExecute runs the circuit's public computation without a trusted
// setup or proof, reporting a constraint-count proxy for cycles_used —
// there is no zkVM instruction trace in a Groth16/gnark circuit, so this
// is the closest deterministic stand-in for "how much work did proving
// this witness take."
func runExecute(_ *BatchWitness, stdout io.Writer) error {
	var circuit TransferBatchCircuit
	cs, err := compileCircuit(&circuit)
	if err != nil {
		return fmt.Errorf("compile circuit: %w", err)
	}

	result := BatchResult{CyclesUsed: uint64(cs.GetNbConstraints())}
	_, err = stdout.Write(EncodeBatchResult(result))
	return err
}

func runProve(witness *BatchWitness, dataDir string, stdout io.Writer) error {
	driver := New("", 1, dataDir)
	if err := driver.Setup(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	proof, err := driver.generateInProcess(witness)
	if err != nil {
		return fmt.Errorf("generate proof: %w", err)
	}

	ok, err := driver.VerifyLocally(proof)
	if err != nil {
		return fmt.Errorf("local verification: %w", err)
	}
	if !ok {
		return fmt.Errorf("generated proof failed local verification")
	}

	_, err = stdout.Write(proof.Bytes)
	return err
}

