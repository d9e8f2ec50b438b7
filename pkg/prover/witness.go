// Copyright 2025 Certen Protocol

package prover

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
)

// TransferLeaf is one transfer's contribution to a batch witness.
type TransferLeaf struct {
	Amount        int64
	Fee           int64
	SenderBalance int64 // sender's balance immediately before this transfer
}

// BatchWitness is the full set of public and private inputs for one
// TransferBatchCircuit proof.
type BatchWitness struct {
	OldStateRoot    [32]byte
	NewStateRoot    [32]byte
	BatchCommitment [32]byte
	Transfers       []TransferLeaf
}

// EncodeWireFormat serializes the witness to the fixed-width binary layout
// shared with the external prover CLI: three 32-byte roots, a 4-byte
// little-endian transfer count, then count * (amount_le8 || fee_le8 ||
// balance_le8).
func (w *BatchWitness) EncodeWireFormat() ([]byte, error) {
	if len(w.Transfers) > MaxTransfersPerCircuit {
		return nil, fmt.Errorf("batch has %d transfers, exceeds circuit max %d", len(w.Transfers), MaxTransfersPerCircuit)
	}

	buf := make([]byte, 0, 32*3+4+len(w.Transfers)*24)
	buf = append(buf, w.OldStateRoot[:]...)
	buf = append(buf, w.NewStateRoot[:]...)
	buf = append(buf, w.BatchCommitment[:]...)

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(w.Transfers)))
	buf = append(buf, countBuf[:]...)

	for _, t := range w.Transfers {
		buf = appendInt64LE(buf, t.Amount)
		buf = appendInt64LE(buf, t.Fee)
		buf = appendInt64LE(buf, t.SenderBalance)
	}
	return buf, nil
}

// DecodeWireFormat parses the binary layout produced by EncodeWireFormat.
func DecodeWireFormat(data []byte) (*BatchWitness, error) {
	if len(data) < 32*3+4 {
		return nil, fmt.Errorf("witness too short: %d bytes", len(data))
	}

	w := &BatchWitness{}
	copy(w.OldStateRoot[:], data[0:32])
	copy(w.NewStateRoot[:], data[32:64])
	copy(w.BatchCommitment[:], data[64:96])

	count := binary.LittleEndian.Uint32(data[96:100])
	offset := 100
	for i := uint32(0); i < count; i++ {
		if offset+24 > len(data) {
			return nil, fmt.Errorf("truncated witness at transfer %d", i)
		}
		w.Transfers = append(w.Transfers, TransferLeaf{
			Amount:        int64(binary.LittleEndian.Uint64(data[offset : offset+8])),
			Fee:           int64(binary.LittleEndian.Uint64(data[offset+8 : offset+16])),
			SenderBalance: int64(binary.LittleEndian.Uint64(data[offset+16 : offset+24])),
		})
		offset += 24
	}
	return w, nil
}

func appendInt64LE(buf []byte, v int64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[:]...)
}

// Assignment builds the gnark circuit assignment for this witness.
func (w *BatchWitness) Assignment() *TransferBatchCircuit {
	assignment := &TransferBatchCircuit{
		OldStateRoot:    rootToField(w.OldStateRoot),
		NewStateRoot:    rootToField(w.NewStateRoot),
		BatchCommitment: rootToField(w.BatchCommitment),
		TransferCount:   len(w.Transfers),
	}
	for i, t := range w.Transfers {
		assignment.Amounts[i] = t.Amount
		assignment.Fees[i] = t.Fee
		assignment.SenderBalance[i] = t.SenderBalance
	}
	return assignment
}

func rootToField(root [32]byte) *big.Int {
	return new(big.Int).SetBytes(root[:])
}

// CurveID is the scalar field the circuit is compiled for.
const CurveID = ecc.BN254
