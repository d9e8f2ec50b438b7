// Copyright 2025 Certen Protocol

package finality

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestTrackBlock_ThenFinalizeBlock_TransitionsStatus(t *testing.T) {
	tr := New(10)
	tr.TrackBlock(1, "hash-a")

	info, ok := tr.GetStatus("hash-a")
	if !ok || info.Status != StatusPending {
		t.Fatalf("expected pending block, got %+v (ok=%v)", info, ok)
	}

	if !tr.FinalizeBlock(1, "hash-a") {
		t.Fatal("expected FinalizeBlock to report the block was tracked")
	}

	info, ok = tr.GetStatus("hash-a")
	if !ok || info.Status != StatusFinal {
		t.Fatalf("expected final block, got %+v (ok=%v)", info, ok)
	}
}

func TestTrackBlock_EvictsSmallestBlockNumberOverCap(t *testing.T) {
	tr := New(3)
	tr.TrackBlock(10, "b10")
	tr.TrackBlock(5, "b5")
	tr.TrackBlock(20, "b20")
	tr.TrackBlock(15, "b15") // should evict b5, the smallest

	if tr.Len() != 3 {
		t.Fatalf("expected 3 tracked blocks, got %d", tr.Len())
	}
	if _, ok := tr.GetStatus("b5"); ok {
		t.Fatal("expected smallest-numbered block to be evicted")
	}
	if _, ok := tr.GetStatus("b10"); !ok {
		t.Fatal("expected b10 to remain tracked")
	}
}

func TestWaitForFinality_ReturnsImmediatelyIfAlreadyFinal(t *testing.T) {
	tr := New(10)
	tr.TrackBlock(1, "hash-a")
	tr.FinalizeBlock(1, "hash-a")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	info, err := tr.WaitForFinality(ctx, "hash-a", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Status != StatusFinal {
		t.Fatalf("expected final status, got %s", info.Status)
	}
}

func TestWaitForFinality_UnblocksOnLaterFinalization(t *testing.T) {
	tr := New(10)
	tr.TrackBlock(1, "hash-a")

	resultCh := make(chan BlockInfo, 1)
	errCh := make(chan error, 1)
	go func() {
		info, err := tr.WaitForFinality(context.Background(), "hash-a", 2*time.Second)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- info
	}()

	time.Sleep(50 * time.Millisecond)
	tr.FinalizeBlock(1, "hash-a")

	select {
	case info := <-resultCh:
		if info.Status != StatusFinal {
			t.Fatalf("expected final status, got %s", info.Status)
		}
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for WaitForFinality to unblock")
	}
}

func TestWaitForFinality_TimesOutWhenNeverFinalized(t *testing.T) {
	tr := New(10)
	tr.TrackBlock(1, "hash-a")

	_, err := tr.WaitForFinality(context.Background(), "hash-a", 50*time.Millisecond)
	if err != ErrFinalityTimeout {
		t.Fatalf("expected ErrFinalityTimeout, got %v", err)
	}
}

// TestFinalityTimeline_Monotonic exercises invariant 6: once a block is
// marked final it never reverts to pending, across repeated status reads.
func TestFinalityTimeline_Monotonic(t *testing.T) {
	tr := New(10)
	hash := "hash-monotonic"
	tr.TrackBlock(1, hash)
	tr.FinalizeBlock(1, hash)

	for i := 0; i < 5; i++ {
		info, ok := tr.GetStatus(hash)
		if !ok {
			t.Fatalf("iteration %d: expected block to remain tracked", i)
		}
		if info.Status != StatusFinal {
			t.Fatalf("iteration %d: expected status to remain final, got %s", i, info.Status)
		}
	}
}

func TestTrackBlock_DuplicateHashIsNoOp(t *testing.T) {
	tr := New(10)
	tr.TrackBlock(1, "hash-a")
	tr.TrackBlock(999, "hash-a") // should not overwrite the original entry

	info, _ := tr.GetStatus("hash-a")
	if info.Number != 1 {
		t.Fatalf("expected original block number 1 preserved, got %d", info.Number)
	}
}

func TestTrackBlock_ManyBlocksRespectsCapacity(t *testing.T) {
	tr := New(50)
	for i := 0; i < 200; i++ {
		tr.TrackBlock(int64(i), fmt.Sprintf("hash-%d", i))
	}
	if tr.Len() != 50 {
		t.Fatalf("expected tracker bounded at 50 entries, got %d", tr.Len())
	}
}
