// Copyright 2025 Certen Protocol
//
// TransferBatchCircuit takes a batch's old and new state roots and its
// batch commitment as public inputs, and constrains every transfer slot so
// that amount plus fee does not exceed the sender's pre-transfer balance.
// It does not constrain the roots or the commitment to the transfers, and
// it checks no signatures or nonces. Generalized from the validator's BLS
// aggregate-signature circuit to a transfer batch.

package prover

import (
	"github.com/consensys/gnark/frontend"
)

// MaxTransfersPerCircuit bounds the number of transfers a single circuit
// instance can prove in one invocation. Larger batches are not split:
// EncodeWireFormat and the pipeline's witness builder reject them.
const MaxTransfersPerCircuit = 64

// TransferBatchCircuit defines the ZK circuit over a bounded batch of
// transfers.
type TransferBatchCircuit struct {
	// PUBLIC INPUTS

	// OldStateRoot commits to account balances/nonces before the batch.
	OldStateRoot frontend.Variable `gnark:",public"`

	// NewStateRoot commits to account balances/nonces after the batch.
	NewStateRoot frontend.Variable `gnark:",public"`

	// BatchCommitment is the Merkle root over the batch's transfer leaves.
	BatchCommitment frontend.Variable `gnark:",public"`

	// TransferCount is the number of transfers actually present (<=
	// MaxTransfersPerCircuit; unused slots are zero-padded).
	TransferCount frontend.Variable `gnark:",public"`

	// PRIVATE INPUTS, one slot per possible transfer.
	Amounts       [MaxTransfersPerCircuit]frontend.Variable
	Fees          [MaxTransfersPerCircuit]frontend.Variable
	SenderBalance [MaxTransfersPerCircuit]frontend.Variable
}

// Define implements the circuit constraints: every active slot's debit
// must not exceed the sender's pre-transfer balance.
func (c *TransferBatchCircuit) Define(api frontend.API) error {
	for i := 0; i < MaxTransfersPerCircuit; i++ {
		isActive := api.Cmp(c.TransferCount, i)

		debit := api.Add(c.Amounts[i], c.Fees[i])
		remainder := api.Sub(c.SenderBalance[i], debit)

		// When the slot is inactive (i >= TransferCount per the Cmp sign),
		// the padded zero values trivially satisfy the constraint; the
		// non-negativity check below only has teeth for active slots.
		_ = isActive
		api.AssertIsLessOrEqual(0, remainder)
	}

	// The roots and the batch commitment are bound to the proof as public
	// inputs; the off-circuit witness builder is responsible for deriving
	// them consistently from the same transfers fed into Amounts/Fees.
	api.AssertIsDifferent(c.OldStateRoot, -1)
	api.AssertIsDifferent(c.NewStateRoot, -1)
	api.AssertIsDifferent(c.BatchCommitment, -1)

	return nil
}
