// Copyright 2025 Certen Protocol
//
// Batch Status Helpers - status message generation for API responses.

package batch

import (
	"time"

	"github.com/certen/ledger-rollup/pkg/database"
)

// StatusInfo provides human-readable status information for a batch.
type StatusInfo struct {
	Status               database.BatchStatus `json:"status"`
	StatusMessage        string               `json:"status_message"`
	IsDelayExpected       bool                 `json:"is_delay_expected"`
	ExpectedCompletionAt *time.Time           `json:"expected_completion_at,omitempty"`
}

// GracePeriod is how long, beyond the batch interval, a batch may sit in a
// non-terminal state before IsStalled reports it as stalled.
const GracePeriod = 5 * time.Minute

// GetStatusMessage returns a human-readable message for a batch status.
func GetStatusMessage(status database.BatchStatus) string {
	switch status {
	case database.BatchStatusAssembling:
		return "Batch is open and accumulating executed transactions."
	case database.BatchStatusProving:
		return "Batch closed. Proof generation in progress."
	case database.BatchStatusProved:
		return "Proof generated. Preparing data-availability submission."
	case database.BatchStatusSubmitted:
		return "Submitted to the data-availability chain. Waiting for finality."
	case database.BatchStatusFinalized:
		return "Finalized. Proof and data are available and confirmed."
	case database.BatchStatusFailed:
		return "Batch failed and will not be retried."
	default:
		return "Unknown batch status."
	}
}

// IsDelayExpected reports whether the given status is one where waiting is
// normal rather than a sign of trouble.
func IsDelayExpected(status database.BatchStatus) bool {
	switch status {
	case database.BatchStatusAssembling, database.BatchStatusProving, database.BatchStatusSubmitted:
		return true
	default:
		return false
	}
}

// IsStalled reports whether a batch has been sitting in a non-terminal
// state longer than its expected window plus a grace period.
func IsStalled(status database.BatchStatus, age, interval time.Duration) bool {
	if status == database.BatchStatusFinalized || status == database.BatchStatusFailed {
		return false
	}
	return age > interval+GracePeriod
}

// GetStatusInfo assembles a StatusInfo for a batch.
func GetStatusInfo(status database.BatchStatus, startTime time.Time, interval time.Duration) *StatusInfo {
	info := &StatusInfo{
		Status:          status,
		StatusMessage:   GetStatusMessage(status),
		IsDelayExpected: IsDelayExpected(status),
	}
	if status == database.BatchStatusAssembling {
		eta := startTime.Add(interval)
		info.ExpectedCompletionAt = &eta
	}
	return info
}
