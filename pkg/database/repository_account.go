// Copyright 2025 Certen Protocol

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AccountRepository provides access to the accounts table.
type AccountRepository struct {
	client *Client
}

// NewAccountRepository constructs an AccountRepository.
func NewAccountRepository(client *Client) *AccountRepository {
	return &AccountRepository{client: client}
}

// Get fetches an account by address. Returns ErrAccountNotFound if absent.
func (r *AccountRepository) Get(ctx context.Context, address [32]byte) (*Account, error) {
	return r.getTx(ctx, r.client.DB(), address)
}

// GetForUpdate fetches an account within tx, locking the row with
// SELECT ... FOR UPDATE so concurrent transfers from the same sender
// serialize on the row lock (invariant: no negative balances, scenario S3).
func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, address [32]byte) (*Account, error) {
	const query = `
		SELECT address, balance, pending_balance, nonce, created_at, updated_at
		FROM accounts
		WHERE address = $1
		FOR UPDATE`
	return r.scanRow(tx.QueryRowContext(ctx, query, address[:]))
}

func (r *AccountRepository) getTx(ctx context.Context, q queryer, address [32]byte) (*Account, error) {
	const query = `
		SELECT address, balance, pending_balance, nonce, created_at, updated_at
		FROM accounts
		WHERE address = $1`
	return r.scanRow(q.QueryRowContext(ctx, query, address[:]))
}

func (r *AccountRepository) scanRow(row *sql.Row) (*Account, error) {
	var acc Account
	var addr []byte
	if err := row.Scan(&addr, &acc.Balance, &acc.PendingBalance, &acc.Nonce, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	copy(acc.Address[:], addr)
	return &acc, nil
}

// CreateIfMissing inserts a zero-balance account row if one doesn't already
// exist, within tx. It is a no-op (not an error) if the account exists.
func (r *AccountRepository) CreateIfMissing(ctx context.Context, tx *sql.Tx, address [32]byte) error {
	const query = `
		INSERT INTO accounts (address, balance, pending_balance, nonce)
		VALUES ($1, 0, 0, 0)
		ON CONFLICT (address) DO NOTHING`
	_, err := tx.ExecContext(ctx, query, address[:])
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// Create inserts a zero-balance account row for address, outside of any
// caller-managed transaction, and returns the resulting row. It is a
// no-op (not an error) if the account already exists, matching
// CreateIfMissing's idempotency.
func (r *AccountRepository) Create(ctx context.Context, address [32]byte) (*Account, error) {
	const query = `
		INSERT INTO accounts (address, balance, pending_balance, nonce)
		VALUES ($1, 0, 0, 0)
		ON CONFLICT (address) DO NOTHING`
	if _, err := r.client.DB().ExecContext(ctx, query, address[:]); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return r.getTx(ctx, r.client.DB(), address)
}

// UpdateBalanceAndNonce writes a new (balance, nonce) pair for address
// within tx, keeping pending_balance equal to the settled balance since
// transfers never leave a row in a reserved-but-uncommitted state. Caller
// must already hold the row lock via GetForUpdate.
func (r *AccountRepository) UpdateBalanceAndNonce(ctx context.Context, tx *sql.Tx, address [32]byte, balance, nonce int64) error {
	const query = `
		UPDATE accounts
		SET balance = $2, pending_balance = $2, nonce = $3, updated_at = now()
		WHERE address = $1`
	_, err := tx.ExecContext(ctx, query, address[:], balance, nonce)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

// queryer abstracts over *sql.DB and *sql.Tx for read paths that may run
// inside or outside a transaction.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
