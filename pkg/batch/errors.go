// Copyright 2025 Certen Protocol
//
// Batch package errors

package batch

import "errors"

// Common errors for the batch package
var (
	ErrNilExecutor   = errors.New("executor cannot be nil")
	ErrBatchEmpty    = errors.New("batch has no transactions to assemble")
	ErrNotAssembling = errors.New("assembler is already running")
)
