// Copyright 2025 Certen Protocol

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// DASVerificationRepository provides access to the das_verifications table.
type DASVerificationRepository struct {
	client *Client
}

// NewDASVerificationRepository constructs a DASVerificationRepository.
func NewDASVerificationRepository(client *Client) *DASVerificationRepository {
	return &DASVerificationRepository{client: client}
}

// Create inserts a new Pending DAS verification record for blockHash.
func (r *DASVerificationRepository) Create(ctx context.Context, id uuid.UUID, blockHash string, blockNumber int64) error {
	const query = `
		INSERT INTO das_verifications (id, block_hash, block_number, status, progress)
		VALUES ($1, $2, $3, 'pending', 0)`
	_, err := r.client.DB().ExecContext(ctx, query, id, blockHash, blockNumber)
	if err != nil {
		return fmt.Errorf("create das verification: %w", err)
	}
	return nil
}

// Get fetches a DAS verification record by ID.
func (r *DASVerificationRepository) Get(ctx context.Context, id uuid.UUID) (*DASVerification, error) {
	const query = `
		SELECT id, block_hash, block_number, status, progress, cells_verified, cells_total, confidence_pct, failure_reason, created_at, updated_at
		FROM das_verifications
		WHERE id = $1`
	return r.scanRow(r.client.DB().QueryRowContext(ctx, query, id))
}

// GetByBlockHash fetches the most recent DAS verification record for
// blockHash, matching how the verifier's event reader updates records.
func (r *DASVerificationRepository) GetByBlockHash(ctx context.Context, blockHash string) (*DASVerification, error) {
	const query = `
		SELECT id, block_hash, block_number, status, progress, cells_verified, cells_total, confidence_pct, failure_reason, created_at, updated_at
		FROM das_verifications
		WHERE block_hash = $1
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanRow(r.client.DB().QueryRowContext(ctx, query, blockHash))
}

// UpdateProgress transitions a record to in_progress with the given
// fractional progress and sample count observed so far.
func (r *DASVerificationRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress float64, cellsVerified int) error {
	const query = `
		UPDATE das_verifications
		SET status = 'in_progress', progress = $2, cells_verified = $3, updated_at = now()
		WHERE id = $1`
	_, err := r.client.DB().ExecContext(ctx, query, id, progress, cellsVerified)
	if err != nil {
		return fmt.Errorf("update das verification progress: %w", err)
	}
	return nil
}

// MarkVerified transitions a record to its terminal Verified state.
func (r *DASVerificationRepository) MarkVerified(ctx context.Context, id uuid.UUID, confidence float64, cellsTotal int) error {
	const query = `
		UPDATE das_verifications
		SET status = 'verified', progress = 1, confidence_pct = $2, cells_total = $3, updated_at = now()
		WHERE id = $1`
	_, err := r.client.DB().ExecContext(ctx, query, id, confidence, cellsTotal)
	if err != nil {
		return fmt.Errorf("mark das verification verified: %w", err)
	}
	return nil
}

// MarkFailed transitions a record to its terminal Failed state.
func (r *DASVerificationRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	const query = `
		UPDATE das_verifications
		SET status = 'failed', progress = 1, failure_reason = $2, updated_at = now()
		WHERE id = $1`
	_, err := r.client.DB().ExecContext(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("mark das verification failed: %w", err)
	}
	return nil
}

func (r *DASVerificationRepository) scanRow(row *sql.Row) (*DASVerification, error) {
	var v DASVerification
	var failureReason sql.NullString
	err := row.Scan(&v.ID, &v.BlockHash, &v.BlockNumber, &v.Status, &v.Progress, &v.CellsVerified, &v.CellsTotal, &v.Confidence, &failureReason, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDASVerificationNotFound
		}
		return nil, fmt.Errorf("scan das verification: %w", err)
	}
	if failureReason.Valid {
		v.FailureReason = failureReason.String
	}
	return &v, nil
}
