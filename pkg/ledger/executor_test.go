// Copyright 2025 Certen Protocol
//
// Integration tests for Executor. Requires a live Postgres reachable via
// LEDGER_TEST_DB_URL; skipped otherwise.

package ledger

import (
	"context"
	"crypto/ed25519"
	"os"
	"sync"
	"testing"

	"github.com/certen/ledger-rollup/pkg/apperr"
	"github.com/certen/ledger-rollup/pkg/config"
	"github.com/certen/ledger-rollup/pkg/database"
	"github.com/certen/ledger-rollup/pkg/eventbus"
	"github.com/certen/ledger-rollup/pkg/signing"
	"github.com/certen/ledger-rollup/pkg/validator"
)

func newTestExecutor(t *testing.T) (*Executor, *database.Repositories) {
	t.Helper()

	url := os.Getenv("LEDGER_TEST_DB_URL")
	if url == "" {
		t.Skip("LEDGER_TEST_DB_URL not configured, skipping database-backed test")
	}

	cfg := &config.Config{DatabaseURL: url, DatabaseMaxConns: 10, DatabaseMinConns: 1}
	client, err := database.NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.MigrateUp(context.Background()); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	repos := database.NewRepositories(client)
	bus := eventbus.New(16)
	limits := validator.Limits{MaxFee: 1_000_000, MaxBatchSize: 100}

	return New(client, repos, bus, limits, nil), repos
}

func fundAccount(t *testing.T, executor *Executor, issuerPriv ed25519.PrivateKey, issuerPub ed25519.PublicKey, to [32]byte, amount int64) {
	t.Helper()
	executor.issuerPubKey = issuerPub
	sig := ed25519.Sign(issuerPriv, signing.HashMintMessage(to, amount))
	_, err := executor.ExecuteTransfer(context.Background(), TransferRequest{
		To:        to,
		Amount:    amount,
		Signature: sig,
	})
	if err != nil {
		t.Fatalf("fund account via mint: %v", err)
	}
}

// TestExecuteTransfer_SingleTransferDebitsAndCredits covers scenario S1.
func TestExecuteTransfer_SingleTransferDebitsAndCredits(t *testing.T) {
	executor, repos := newTestExecutor(t)
	ctx := context.Background()

	issuerPub, issuerPriv, _ := signing.GenerateKeypair()
	senderPub, senderPriv, _ := signing.GenerateKeypair()

	var sender, recipient [32]byte
	copy(sender[:], senderPub)
	recipient[0] = 0xAA

	fundAccount(t, executor, issuerPriv, issuerPub, sender, 1000)

	msg := signing.TransferMessage{From: sender, To: recipient, Amount: 100, Fee: 1, Nonce: 1, PublicKey: sender}
	digest := signing.HashTransferMessage(msg)
	sig := ed25519.Sign(senderPriv, digest[:])

	result, err := executor.ExecuteTransfer(ctx, TransferRequest{
		From: &sender, To: recipient, Amount: 100, Fee: 1, Nonce: 1, Signature: sig,
	})
	if err != nil {
		t.Fatalf("execute transfer: %v", err)
	}
	if result.Status != database.TransactionStatusExecuted {
		t.Fatalf("expected executed status, got %s", result.Status)
	}

	senderAcc, err := repos.Accounts.Get(ctx, sender)
	if err != nil {
		t.Fatalf("get sender: %v", err)
	}
	if senderAcc.Balance != 899 {
		t.Fatalf("expected sender balance 899, got %d", senderAcc.Balance)
	}
	if senderAcc.Nonce != 1 {
		t.Fatalf("expected sender nonce 1, got %d", senderAcc.Nonce)
	}

	recipientAcc, err := repos.Accounts.Get(ctx, recipient)
	if err != nil {
		t.Fatalf("get recipient: %v", err)
	}
	if recipientAcc.Balance != 100 {
		t.Fatalf("expected recipient balance 100, got %d", recipientAcc.Balance)
	}

	feeAcc, err := repos.Accounts.Get(ctx, FeeCollectorAddress)
	if err != nil {
		t.Fatalf("get fee collector: %v", err)
	}
	if feeAcc.Balance != 1 {
		t.Fatalf("expected fee collector balance 1, got %d", feeAcc.Balance)
	}
}

// TestExecuteTransfer_ConservesTotalSupply covers invariant 1: a transfer's
// fee is routed to the fee-collector account rather than destroyed, so the
// sum of all three balances (sender, recipient, fee collector) before and
// after the transfer is unchanged.
func TestExecuteTransfer_ConservesTotalSupply(t *testing.T) {
	executor, repos := newTestExecutor(t)
	ctx := context.Background()

	issuerPub, issuerPriv, _ := signing.GenerateKeypair()
	senderPub, senderPriv, _ := signing.GenerateKeypair()

	var sender, recipient [32]byte
	copy(sender[:], senderPub)
	recipient[4] = 0xEE

	fundAccount(t, executor, issuerPriv, issuerPub, sender, 1000)

	feeBefore, err := repos.Accounts.Get(ctx, FeeCollectorAddress)
	if err != nil {
		t.Fatalf("get fee collector before: %v", err)
	}

	msg := signing.TransferMessage{From: sender, To: recipient, Amount: 300, Fee: 7, Nonce: 1, PublicKey: sender}
	digest := signing.HashTransferMessage(msg)
	sig := ed25519.Sign(senderPriv, digest[:])

	if _, err := executor.ExecuteTransfer(ctx, TransferRequest{
		From: &sender, To: recipient, Amount: 300, Fee: 7, Nonce: 1, Signature: sig,
	}); err != nil {
		t.Fatalf("execute transfer: %v", err)
	}

	senderAcc, err := repos.Accounts.Get(ctx, sender)
	if err != nil {
		t.Fatalf("get sender: %v", err)
	}
	recipientAcc, err := repos.Accounts.Get(ctx, recipient)
	if err != nil {
		t.Fatalf("get recipient: %v", err)
	}
	feeAfter, err := repos.Accounts.Get(ctx, FeeCollectorAddress)
	if err != nil {
		t.Fatalf("get fee collector after: %v", err)
	}

	wantTotal := int64(1000) // everything minted to sender, nothing else in play
	gotTotal := senderAcc.Balance + recipientAcc.Balance + (feeAfter.Balance - feeBefore.Balance)
	if gotTotal != wantTotal {
		t.Fatalf("expected conserved total %d, got %d (sender=%d recipient=%d fee_delta=%d)",
			wantTotal, gotTotal, senderAcc.Balance, recipientAcc.Balance, feeAfter.Balance-feeBefore.Balance)
	}
}

// TestExecuteTransfer_InsufficientBalance covers scenario S2.
func TestExecuteTransfer_InsufficientBalance(t *testing.T) {
	executor, _ := newTestExecutor(t)
	ctx := context.Background()

	issuerPub, issuerPriv, _ := signing.GenerateKeypair()
	senderPub, senderPriv, _ := signing.GenerateKeypair()

	var sender, recipient [32]byte
	copy(sender[:], senderPub)
	recipient[1] = 0xBB

	fundAccount(t, executor, issuerPriv, issuerPub, sender, 10)

	msg := signing.TransferMessage{From: sender, To: recipient, Amount: 1000, Fee: 0, Nonce: 1, PublicKey: sender}
	digest := signing.HashTransferMessage(msg)
	sig := ed25519.Sign(senderPriv, digest[:])

	_, err := executor.ExecuteTransfer(ctx, TransferRequest{
		From: &sender, To: recipient, Amount: 1000, Fee: 0, Nonce: 1, Signature: sig,
	})
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindInsufficientBalance {
		t.Fatalf("expected InsufficientBalance, got %v", err)
	}
}

// TestExecuteTransfer_ConcurrentSameNonceExactlyOneWins covers scenario S3
// and the non-negative-balance / single-winner invariants: two transfers
// from the same sender racing on the same nonce must result in exactly one
// success.
func TestExecuteTransfer_ConcurrentSameNonceExactlyOneWins(t *testing.T) {
	executor, _ := newTestExecutor(t)
	ctx := context.Background()

	issuerPub, issuerPriv, _ := signing.GenerateKeypair()
	senderPub, senderPriv, _ := signing.GenerateKeypair()

	var sender, recipientA, recipientB [32]byte
	copy(sender[:], senderPub)
	recipientA[2] = 0xCC
	recipientB[3] = 0xDD

	fundAccount(t, executor, issuerPriv, issuerPub, sender, 1000)

	sign := func(to [32]byte, amount, nonce int64) []byte {
		msg := signing.TransferMessage{From: sender, To: to, Amount: amount, Fee: 0, Nonce: nonce, PublicKey: sender}
		digest := signing.HashTransferMessage(msg)
		return ed25519.Sign(senderPriv, digest[:])
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	attempt := func(to [32]byte, amount int64) {
		defer wg.Done()
		_, err := executor.ExecuteTransfer(ctx, TransferRequest{
			From: &sender, To: to, Amount: amount, Fee: 0, Nonce: 1, Signature: sign(to, amount, 1),
		})
		if err == nil {
			mu.Lock()
			successes++
			mu.Unlock()
		}
	}

	wg.Add(2)
	go attempt(recipientA, 100)
	go attempt(recipientB, 200)
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one success for racing same-nonce transfers, got %d", successes)
	}
}
