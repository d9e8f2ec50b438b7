// Copyright 2025 Certen Protocol
//
// Package ledger provides sentinel errors for ledger operations.

package ledger

import (
	"fmt"

	"github.com/certen/ledger-rollup/pkg/apperr"
)

var (
	// ErrInvalidSignature is returned when a transfer or mint's signature
	// fails to verify against its canonical message.
	ErrInvalidSignature = apperr.New(apperr.KindInvalidSignature, "signature does not verify")

	// ErrIssuerNotConfigured is returned when a mint is submitted but no
	// issuer public key was configured at startup.
	ErrIssuerNotConfigured = apperr.New(apperr.KindInvalidInput, "issuer public key not configured")
)

func apperrInvalidNonce(expected, got int64) error {
	return apperr.New(apperr.KindInvalidNonce, fmt.Sprintf("expected nonce %d, got %d", expected, got))
}

func apperrInsufficientBalance(balance, debit int64) error {
	return apperr.New(apperr.KindInsufficientBalance, fmt.Sprintf("balance %d insufficient for debit %d", balance, debit))
}
