// Copyright 2025 Certen Protocol

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// BatchRepository provides access to the batches table.
type BatchRepository struct {
	client *Client
}

// NewBatchRepository constructs a BatchRepository.
func NewBatchRepository(client *Client) *BatchRepository {
	return &BatchRepository{client: client}
}

// Create inserts a new batch row in the assembling state, within tx.
func (r *BatchRepository) Create(ctx context.Context, tx *sql.Tx, batchID uuid.UUID) error {
	const query = `
		INSERT INTO batches (batch_id, status)
		VALUES ($1, $2)`
	_, err := tx.ExecContext(ctx, query, batchID, string(BatchStatusAssembling))
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// Get fetches a batch by ID.
func (r *BatchRepository) Get(ctx context.Context, batchID uuid.UUID) (*Batch, error) {
	const query = `
		SELECT batch_id, status, state_root, proof, da_block_number, da_block_hash, finalized_at, error_message, created_at, updated_at
		FROM batches
		WHERE batch_id = $1`
	return r.scanRow(r.client.DB().QueryRowContext(ctx, query, batchID))
}

// List returns the most recently created batches, bounded by limit.
func (r *BatchRepository) List(ctx context.Context, limit int) ([]*Batch, error) {
	const query = `
		SELECT batch_id, status, state_root, proof, da_block_number, da_block_hash, finalized_at, error_message, created_at, updated_at
		FROM batches
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := r.client.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []*Batch
	for rows.Next() {
		b, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Previous returns the most recently created batch strictly before
// batchID, or nil if batchID is the first batch. Used to chain each
// batch's old_state_root to its predecessor's new_state_root.
func (r *BatchRepository) Previous(ctx context.Context, batchID uuid.UUID) (*Batch, error) {
	const query = `
		SELECT batch_id, status, state_root, proof, da_block_number, da_block_hash, finalized_at, error_message, created_at, updated_at
		FROM batches
		WHERE created_at < (SELECT created_at FROM batches WHERE batch_id = $1)
		ORDER BY created_at DESC
		LIMIT 1`
	b, err := r.scan(r.client.DB().QueryRowContext(ctx, query, batchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// SetStateRoot records the batch's computed state root and moves it to
// the proving status, within tx.
func (r *BatchRepository) SetStateRoot(ctx context.Context, tx *sql.Tx, batchID uuid.UUID, stateRoot []byte) error {
	const query = `
		UPDATE batches
		SET state_root = $2, status = $3, updated_at = now()
		WHERE batch_id = $1`
	_, err := tx.ExecContext(ctx, query, batchID, stateRoot, string(BatchStatusProving))
	if err != nil {
		return fmt.Errorf("set batch state root: %w", err)
	}
	return nil
}

// SetProof records a completed proof and moves the batch to proved.
func (r *BatchRepository) SetProof(ctx context.Context, batchID uuid.UUID, proof []byte) error {
	const query = `
		UPDATE batches
		SET proof = $2, status = $3, updated_at = now()
		WHERE batch_id = $1`
	_, err := r.client.DB().ExecContext(ctx, query, batchID, proof, string(BatchStatusProved))
	if err != nil {
		return fmt.Errorf("set batch proof: %w", err)
	}
	return nil
}

// SetSubmitted records the DA block the batch was submitted in.
func (r *BatchRepository) SetSubmitted(ctx context.Context, batchID uuid.UUID, blockNumber int64, blockHash []byte) error {
	const query = `
		UPDATE batches
		SET da_block_number = $2, da_block_hash = $3, status = $4, updated_at = now()
		WHERE batch_id = $1`
	_, err := r.client.DB().ExecContext(ctx, query, batchID, blockNumber, blockHash, string(BatchStatusSubmitted))
	if err != nil {
		return fmt.Errorf("set batch submitted: %w", err)
	}
	return nil
}

// SetFinalized marks the batch as finalized.
func (r *BatchRepository) SetFinalized(ctx context.Context, batchID uuid.UUID) error {
	const query = `
		UPDATE batches
		SET status = $2, finalized_at = now(), updated_at = now()
		WHERE batch_id = $1`
	_, err := r.client.DB().ExecContext(ctx, query, batchID, string(BatchStatusFinalized))
	if err != nil {
		return fmt.Errorf("set batch finalized: %w", err)
	}
	return nil
}

// SetFailed marks the batch as failed with an error message. Failed is an
// absorbing state: a failed batch is never reopened for reassembly.
func (r *BatchRepository) SetFailed(ctx context.Context, batchID uuid.UUID, errMsg string) error {
	const query = `
		UPDATE batches
		SET status = $2, error_message = $3, updated_at = now()
		WHERE batch_id = $1`
	_, err := r.client.DB().ExecContext(ctx, query, batchID, string(BatchStatusFailed), errMsg)
	if err != nil {
		return fmt.Errorf("set batch failed: %w", err)
	}
	return nil
}

func (r *BatchRepository) scanRow(row *sql.Row) (*Batch, error) {
	b, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	return b, err
}

func (r *BatchRepository) scan(row rowScanner) (*Batch, error) {
	var b Batch
	var status string
	var daBlockNumber sql.NullInt64
	var finalizedAt sql.NullTime
	var errMsg sql.NullString

	if err := row.Scan(&b.BatchID, &status, &b.StateRoot, &b.Proof, &daBlockNumber, &b.DABlockHash, &finalizedAt, &errMsg, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}

	b.Status = BatchStatus(status)
	if daBlockNumber.Valid {
		n := daBlockNumber.Int64
		b.DABlockNumber = &n
	}
	if finalizedAt.Valid {
		t := finalizedAt.Time
		b.FinalizedAt = &t
	}
	b.ErrorMessage = errMsg.String
	return &b, nil
}
