// Copyright 2025 Certen Protocol

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// TransactionRepository provides access to the transactions table.
type TransactionRepository struct {
	client *Client
}

// NewTransactionRepository constructs a TransactionRepository.
func NewTransactionRepository(client *Client) *TransactionRepository {
	return &TransactionRepository{client: client}
}

// Insert records a newly executed transfer or mint within tx.
func (r *TransactionRepository) Insert(ctx context.Context, tx *sql.Tx, t *Transaction) error {
	const query = `
		INSERT INTO transactions (tx_id, from_address, to_address, amount, fee, nonce, signature, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var from interface{}
	if t.From != nil {
		from = t.From[:]
	}
	var nonce interface{}
	if t.Nonce != nil {
		nonce = *t.Nonce
	}

	_, err := tx.ExecContext(ctx, query, t.TxID, from, t.To[:], t.Amount, t.Fee, nonce, t.Signature, string(t.Status))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Get fetches a transaction by ID.
func (r *TransactionRepository) Get(ctx context.Context, txID uuid.UUID) (*Transaction, error) {
	const query = `
		SELECT tx_id, from_address, to_address, amount, fee, nonce, signature, status, batch_id, created_at, updated_at
		FROM transactions
		WHERE tx_id = $1`
	return r.scanRow(r.client.DB().QueryRowContext(ctx, query, txID))
}

// ListByAddress returns transactions involving address (as sender or
// recipient), most recent first, bounded by limit.
func (r *TransactionRepository) ListByAddress(ctx context.Context, address [32]byte, limit int) ([]*Transaction, error) {
	const query = `
		SELECT tx_id, from_address, to_address, amount, fee, nonce, signature, status, batch_id, created_at, updated_at
		FROM transactions
		WHERE from_address = $1 OR to_address = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.client.DB().QueryContext(ctx, query, address[:], limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListByBatchID returns every transaction bound to batchID, oldest first
// (the same order the assembler claimed them in).
func (r *TransactionRepository) ListByBatchID(ctx context.Context, batchID uuid.UUID) ([]*Transaction, error) {
	const query = `
		SELECT tx_id, from_address, to_address, amount, fee, nonce, signature, status, batch_id, created_at, updated_at
		FROM transactions
		WHERE batch_id = $1
		ORDER BY created_at ASC, tx_id ASC`

	rows, err := r.client.DB().QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("list transactions by batch: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AssignToBatch binds a set of executed transactions to batchID. Status
// stays "executed" — batch progress is tracked on the Batch row, not by
// inventing further Transaction states.
func (r *TransactionRepository) AssignToBatch(ctx context.Context, tx *sql.Tx, batchID uuid.UUID, txIDs []uuid.UUID) error {
	const query = `
		UPDATE transactions
		SET batch_id = $2, updated_at = now()
		WHERE tx_id = $1`
	for _, id := range txIDs {
		if _, err := tx.ExecContext(ctx, query, id, batchID); err != nil {
			return fmt.Errorf("assign transaction to batch: %w", err)
		}
	}
	return nil
}

// UpdateStatusForBatch transitions every transaction in batchID to status.
func (r *TransactionRepository) UpdateStatusForBatch(ctx context.Context, tx *sql.Tx, batchID uuid.UUID, status TransactionStatus) error {
	const query = `
		UPDATE transactions
		SET status = $2, updated_at = now()
		WHERE batch_id = $1`
	_, err := tx.ExecContext(ctx, query, batchID, string(status))
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *TransactionRepository) scanRow(row *sql.Row) (*Transaction, error) {
	t, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	return t, err
}

func (r *TransactionRepository) scan(row rowScanner) (*Transaction, error) {
	var t Transaction
	var from, to []byte
	var nonce sql.NullInt64
	var status string
	var batchID uuid.NullUUID

	if err := row.Scan(&t.TxID, &from, &to, &t.Amount, &t.Fee, &nonce, &t.Signature, &status, &batchID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	if from != nil {
		var f [32]byte
		copy(f[:], from)
		t.From = &f
	}
	copy(t.To[:], to)
	if nonce.Valid {
		n := nonce.Int64
		t.Nonce = &n
	}
	t.Status = TransactionStatus(status)
	if batchID.Valid {
		t.BatchID = &batchID.UUID
	}
	return &t, nil
}
