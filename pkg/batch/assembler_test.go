// Copyright 2025 Certen Protocol

package batch

import (
	"testing"
	"time"

	"github.com/certen/ledger-rollup/pkg/database"
)

func TestGetStatusMessage_KnownStatuses(t *testing.T) {
	cases := []database.BatchStatus{
		database.BatchStatusAssembling,
		database.BatchStatusProving,
		database.BatchStatusProved,
		database.BatchStatusSubmitted,
		database.BatchStatusFinalized,
		database.BatchStatusFailed,
	}
	for _, status := range cases {
		if msg := GetStatusMessage(status); msg == "" || msg == "Unknown batch status." {
			t.Fatalf("expected a known message for %s, got %q", status, msg)
		}
	}
}

func TestIsStalled_FinalizedNeverStalled(t *testing.T) {
	if IsStalled(database.BatchStatusFinalized, 365*24*time.Hour, time.Minute) {
		t.Fatal("finalized batch should never be reported stalled")
	}
}

func TestIsStalled_AssemblingPastGracePeriod(t *testing.T) {
	if !IsStalled(database.BatchStatusAssembling, 20*time.Minute, time.Minute) {
		t.Fatal("expected assembling batch past interval+grace to be stalled")
	}
	if IsStalled(database.BatchStatusAssembling, 30*time.Second, time.Minute) {
		t.Fatal("expected fresh assembling batch to not be stalled")
	}
}
