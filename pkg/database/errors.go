// Copyright 2025 Certen Protocol

package database

import "errors"

var (
	// ErrAccountNotFound is returned when an address has no account row.
	ErrAccountNotFound = errors.New("database: account not found")

	// ErrTransactionNotFound is returned when a tx_id has no matching row.
	ErrTransactionNotFound = errors.New("database: transaction not found")

	// ErrBatchNotFound is returned when a batch_id has no matching row.
	ErrBatchNotFound = errors.New("database: batch not found")

	// ErrDASVerificationNotFound is returned when no DAS verification
	// record matches the requested id or block hash.
	ErrDASVerificationNotFound = errors.New("database: DAS verification not found")

	// ErrOptimisticLockFailed is returned when an UPDATE ... WHERE nonce = $n
	// style guard matches zero rows, signalling a concurrent writer won.
	ErrOptimisticLockFailed = errors.New("database: optimistic lock failed")
)
