// Copyright 2025 Certen Protocol
//
// Package ledger executes individual transfers and mints against the
// accounts/transactions tables, enforcing nonce sequencing and
// non-negative balances under row-level locking.
package ledger

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/certen/ledger-rollup/pkg/database"
	"github.com/certen/ledger-rollup/pkg/eventbus"
	"github.com/certen/ledger-rollup/pkg/signing"
	"github.com/certen/ledger-rollup/pkg/validator"
)

// Executor applies validated transfers and mints to the ledger, one
// transaction at a time, each within its own database transaction.
type Executor struct {
	client       *database.Client
	repos        *database.Repositories
	bus          *eventbus.Bus
	limits       validator.Limits
	issuerPubKey ed25519.PublicKey
	logger       *log.Logger
}

// New constructs an Executor. issuerPubKey may be nil if mints are
// disabled for this deployment.
func New(client *database.Client, repos *database.Repositories, bus *eventbus.Bus, limits validator.Limits, issuerPubKey ed25519.PublicKey) *Executor {
	return &Executor{
		client:       client,
		repos:        repos,
		bus:          bus,
		limits:       limits,
		issuerPubKey: issuerPubKey,
		logger:       log.New(log.Writer(), "[Ledger] ", log.LstdFlags),
	}
}

// ExecuteTransfer validates and applies a single transfer or mint:
//
//  1. Stateless validation (amount/fee/signature shape).
//  2. Signature verification (Ed25519 transfer signature, or issuer mint
//     signature when req.From is nil).
//  3. Within one *sql.Tx: lock the sender row with SELECT ... FOR UPDATE,
//     check nonce == current+1 and balance >= amount+fee, debit the
//     sender, credit (or create-and-credit) the recipient, insert the
//     transaction row as executed, commit.
//  4. Publish a transaction.executed event after the commit succeeds.
//
// A mint skips the sender lock/nonce/balance checks entirely and credits
// only the recipient and, for a non-zero fee, the fee-collector account.
func (e *Executor) ExecuteTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if err := e.validateInput(req); err != nil {
		return nil, err
	}
	if err := e.verifySignature(req); err != nil {
		return nil, err
	}

	tx, err := e.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	txID := uuid.New()

	if req.From == nil {
		if err := e.applyMint(ctx, tx, req); err != nil {
			return nil, err
		}
	} else {
		if err := e.applyTransfer(ctx, tx, req); err != nil {
			return nil, err
		}
	}

	txn := e.buildTransactionRow(txID, req)
	if err := e.repos.Transactions.Insert(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfer: %w", err)
	}

	stored, err := e.repos.Transactions.Get(ctx, txID)
	if err != nil {
		e.logger.Printf("warning: could not re-fetch committed transaction %s: %v", txID, err)
		stored = txn
	}

	e.bus.Publish(eventbus.Event{
		Type:        eventbus.EventTransactionExecuted,
		TxID:        &txID,
		Transaction: stored,
	})

	return &TransferResult{TxID: txID, Status: stored.Status, CreatedAt: stored.CreatedAt}, nil
}

func (e *Executor) validateInput(req TransferRequest) error {
	in := validator.TransferInput{
		From:      req.From,
		To:        req.To,
		Amount:    req.Amount,
		Fee:       req.Fee,
		Nonce:     req.Nonce,
		Signature: req.Signature,
	}
	return validator.ValidateTransferInput(in, e.limits)
}

func (e *Executor) verifySignature(req TransferRequest) error {
	if req.From == nil {
		if e.issuerPubKey == nil {
			return ErrIssuerNotConfigured
		}
		if !signing.VerifyMintSignature(req.To, req.Amount, req.Signature, e.issuerPubKey) {
			return ErrInvalidSignature
		}
		return nil
	}

	msg := signing.TransferMessage{
		From:      *req.From,
		To:        req.To,
		Amount:    req.Amount,
		Fee:       req.Fee,
		Nonce:     req.Nonce,
		PublicKey: *req.From,
	}
	if !signing.VerifyTransferSignature(msg, req.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

// applyTransfer locks the sender row, enforces nonce sequencing and a
// non-negative post-debit balance, then debits the sender and credits the
// recipient (creating the recipient account on first receipt) and the
// fee-collector account (creating it is a no-op past the first transfer,
// since the schema migration seeds it). Crediting the fee separately from
// the amount keeps the sum of all account balances invariant under a
// successful transfer: the fee is transferred, not destroyed.
func (e *Executor) applyTransfer(ctx context.Context, tx *sql.Tx, req TransferRequest) error {
	sender, err := e.repos.Accounts.GetForUpdate(ctx, tx, *req.From)
	if err != nil {
		return err
	}

	expectedNonce := sender.Nonce + 1
	if req.Nonce != expectedNonce {
		return apperrInvalidNonce(expectedNonce, req.Nonce)
	}

	debit := req.Amount + req.Fee
	if sender.Balance < debit {
		return apperrInsufficientBalance(sender.Balance, debit)
	}

	if err := e.repos.Accounts.UpdateBalanceAndNonce(ctx, tx, *req.From, sender.Balance-debit, req.Nonce); err != nil {
		return err
	}

	if err := e.creditRecipient(ctx, tx, req.To, req.Amount); err != nil {
		return err
	}
	return e.creditFee(ctx, tx, req.Fee)
}

// applyMint credits the recipient and, if the mint carries a fee, the
// fee-collector account, without touching any sender row or nonce sequence.
func (e *Executor) applyMint(ctx context.Context, tx *sql.Tx, req TransferRequest) error {
	if err := e.creditRecipient(ctx, tx, req.To, req.Amount); err != nil {
		return err
	}
	return e.creditFee(ctx, tx, req.Fee)
}

// creditFee routes fee to the fee-collector account. A zero fee is a no-op
// so fee-free transfers don't take an extra row lock.
func (e *Executor) creditFee(ctx context.Context, tx *sql.Tx, fee int64) error {
	if fee == 0 {
		return nil
	}
	return e.creditRecipient(ctx, tx, FeeCollectorAddress, fee)
}

func (e *Executor) creditRecipient(ctx context.Context, tx *sql.Tx, to [32]byte, amount int64) error {
	if err := e.repos.Accounts.CreateIfMissing(ctx, tx, to); err != nil {
		return err
	}
	recipient, err := e.repos.Accounts.GetForUpdate(ctx, tx, to)
	if err != nil {
		return err
	}
	return e.repos.Accounts.UpdateBalanceAndNonce(ctx, tx, to, recipient.Balance+amount, recipient.Nonce)
}

func (e *Executor) buildTransactionRow(txID uuid.UUID, req TransferRequest) *database.Transaction {
	var nonce *int64
	if req.From != nil {
		n := req.Nonce
		nonce = &n
	}
	return &database.Transaction{
		TxID:      txID,
		From:      req.From,
		To:        req.To,
		Amount:    req.Amount,
		Fee:       req.Fee,
		Nonce:     nonce,
		Signature: req.Signature,
		Status:    database.TransactionStatusExecuted,
	}
}
