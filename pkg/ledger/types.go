// Copyright 2025 Certen Protocol

package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/certen/ledger-rollup/pkg/database"
)

// FeeCollectorAddress is the well-known account fees are credited to so
// they are transferred, not destroyed (conservation invariant). It matches
// the account seeded by the initial schema migration at 0x00...01.
var FeeCollectorAddress = [32]byte{31: 0x01}

// TransferRequest is the caller-supplied input to ExecuteTransfer. From is
// nil for a mint, in which case Signature must verify against the issuer's
// mint message rather than the sender's transfer message.
type TransferRequest struct {
	From      *[32]byte
	To        [32]byte
	Amount    int64
	Fee       int64
	Nonce     int64
	Signature []byte
}

// TransferResult mirrors the persisted transaction row produced by a
// successful ExecuteTransfer call.
type TransferResult struct {
	TxID      uuid.UUID
	Status    database.TransactionStatus
	CreatedAt time.Time
}
