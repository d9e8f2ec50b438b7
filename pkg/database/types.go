// Copyright 2025 Certen Protocol
//
// Domain types persisted by the ledger rollup service.
package database

import (
	"time"

	"github.com/google/uuid"
)

// Account is a single address's balance and nonce. PendingBalance mirrors
// Balance: transfers are applied within a single DB transaction, under a
// row lock on the sender, with no separate reservation phase, so there is never a
// window where pending and settled balance diverge; the column exists to
// satisfy the account-balance API contract and to leave room for a future
// intent-reservation phase without a schema change.
type Account struct {
	Address        [32]byte
	Balance        int64
	PendingBalance int64
	Nonce          int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TransactionStatus is the four-state vocabulary for a single transfer's
// lifecycle: pending -> processing -> (executed | failed), monotonic.
// A transaction's status stays "executed" once bound to a batch; the
// batch's own BatchStatus tracks proving/submission/finality separately.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusExecuted   TransactionStatus = "executed"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// Transaction is a single executed (or rejected) transfer or mint.
type Transaction struct {
	TxID      uuid.UUID
	From      *[32]byte // nil for a mint
	To        [32]byte
	Amount    int64
	Fee       int64
	Nonce     *int64 // nil for a mint
	Signature []byte
	Status    TransactionStatus
	BatchID   *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BatchStatus is the six-state vocabulary for a batch's lifecycle, kept
// distinct from TransactionStatus.
type BatchStatus string

const (
	BatchStatusAssembling BatchStatus = "assembling"
	BatchStatusProving    BatchStatus = "proving"
	BatchStatusProved     BatchStatus = "proved"
	BatchStatusSubmitted  BatchStatus = "submitted"
	BatchStatusFinalized  BatchStatus = "finalized"
	BatchStatusFailed     BatchStatus = "failed"
)

// Batch is a group of transactions proven and submitted together.
type Batch struct {
	BatchID       uuid.UUID
	Status        BatchStatus
	StateRoot     []byte
	Proof         []byte
	DABlockNumber *int64
	DABlockHash   []byte
	FinalizedAt   *time.Time
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DASStatus is the lifecycle of a single data-availability-sampling check.
type DASStatus string

const (
	DASStatusPending    DASStatus = "pending"
	DASStatusInProgress DASStatus = "in_progress"
	DASStatusVerified   DASStatus = "verified"
	DASStatusFailed     DASStatus = "failed"
)

// DASVerification records a data-availability-sampling check for a DA
// block, keyed by its own ID so a block can be (re-)sampled independently
// of any one batch referencing it.
type DASVerification struct {
	ID            uuid.UUID
	BlockHash     string
	BlockNumber   int64
	Status        DASStatus
	Progress      float64 // 0 for Pending, reported value for InProgress, 1 for terminal
	CellsVerified int
	CellsTotal    int
	Confidence    float64
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
