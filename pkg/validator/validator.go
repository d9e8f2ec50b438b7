// Copyright 2025 Certen Protocol
//
// Package validator implements stateless per-transaction checks and a
// deterministic, wall-clock-independent batch pre-flight simulation.
package validator

import (
	"fmt"

	"github.com/certen/ledger-rollup/pkg/apperr"
	"github.com/certen/ledger-rollup/pkg/signing"
)

// TransferInput is the raw, unverified input to a transfer request.
type TransferInput struct {
	From      *[signing.AddressSize]byte // nil denotes a mint
	To        [signing.AddressSize]byte
	Amount    int64
	Fee       int64
	Nonce     int64
	Signature []byte
}

// Limits holds the validator's configurable bounds.
type Limits struct {
	MaxFee       int64
	MaxBatchSize int
}

// ValidateTransferInput performs the stateless per-transaction checks from
// the component design: amount > 0, 0 <= fee <= MaxFee, signature length,
// and well-formed addresses.
func ValidateTransferInput(in TransferInput, limits Limits) error {
	if in.Amount <= 0 {
		return apperr.New(apperr.KindInvalidInput, "amount must be positive")
	}
	if in.Fee < 0 || in.Fee > limits.MaxFee {
		return apperr.New(apperr.KindInvalidInput, fmt.Sprintf("fee must be between 0 and %d", limits.MaxFee))
	}
	if len(in.Signature) != signing.SignatureSize {
		return apperr.New(apperr.KindInvalidInput, fmt.Sprintf("signature must be %d bytes", signing.SignatureSize))
	}
	return nil
}

// SenderState is the initial (nonce, balance) snapshot for one sender at the
// start of a batch pre-flight simulation.
type SenderState struct {
	Nonce   int64
	Balance int64
}

// PreflightTransfer is a single transfer considered during batch pre-flight.
// From is the zero value for a mint (mints are not subject to nonce/balance
// checks and always pass pre-flight).
type PreflightTransfer struct {
	From   [signing.AddressSize]byte
	IsMint bool
	Amount int64
	Fee    int64
	Nonce  int64
}

// ErrInvalidBatchSize is returned by PreflightBatch when the batch exceeds
// the configured size cap (scenario S7).
var ErrInvalidBatchSize = apperr.New(apperr.KindInvalidInput, "batch size exceeds maximum")

// PreflightBatch simulates a proposed ordered batch sequentially against an
// initial (nonce, balance) snapshot per sender. It is deterministic and
// independent of wall-clock time: the same inputs always produce the same
// result.
//
// It rejects the batch if: the batch exceeds limits.MaxBatchSize, any
// sender's nonce is not exactly current+1 at its turn, or a debit would
// drive a sender's balance negative.
func PreflightBatch(transfers []PreflightTransfer, initial map[[signing.AddressSize]byte]SenderState, limits Limits) error {
	if len(transfers) > limits.MaxBatchSize {
		return ErrInvalidBatchSize
	}

	// Work on a local copy so the caller's initial map is untouched.
	state := make(map[[signing.AddressSize]byte]SenderState, len(initial))
	for k, v := range initial {
		state[k] = v
	}

	for i, tr := range transfers {
		if tr.IsMint {
			continue
		}

		s, ok := state[tr.From]
		if !ok {
			return apperr.New(apperr.KindNotFound, fmt.Sprintf("transfer %d: unknown sender", i))
		}

		expectedNonce := s.Nonce + 1
		if tr.Nonce != expectedNonce {
			return apperr.New(apperr.KindInvalidNonce,
				fmt.Sprintf("transfer %d: expected nonce %d, got %d", i, expectedNonce, tr.Nonce))
		}

		debit := tr.Amount + tr.Fee
		if s.Balance-debit < 0 {
			return apperr.New(apperr.KindInsufficientBalance,
				fmt.Sprintf("transfer %d: balance %d insufficient for debit %d", i, s.Balance, debit))
		}

		state[tr.From] = SenderState{Nonce: tr.Nonce, Balance: s.Balance - debit}
	}

	return nil
}
