// Copyright 2025 Certen Protocol

package firestoresync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/certen/ledger-rollup/pkg/database"
	"github.com/certen/ledger-rollup/pkg/eventbus"
	"github.com/certen/ledger-rollup/pkg/firestore"
)

func disabledClient(t *testing.T) *firestore.Client {
	t.Helper()
	client, err := firestore.NewClient(context.Background(), &firestore.ClientConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestMirror_Run_ConsumesTransactionEventsWithoutError(t *testing.T) {
	bus := eventbus.New(4)
	m := New(disabledClient(t), bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	txID := uuid.New()
	var to [32]byte
	to[0] = 0xAB
	bus.Publish(eventbus.Event{
		Type: eventbus.EventTransactionExecuted,
		TxID: &txID,
		Transaction: &database.Transaction{
			TxID:      txID,
			To:        to,
			Amount:    10,
			Status:    database.TransactionStatusExecuted,
			UpdatedAt: time.Now(),
		},
	})

	batchID := uuid.New()
	bus.Publish(eventbus.Event{
		Type:        eventbus.EventBatchStatusChanged,
		BatchID:     &batchID,
		BatchStatus: database.BatchStatusFinalized,
	})

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mirror did not stop after context cancellation")
	}
}

func TestMirror_Handle_IgnoresUnknownEventTypes(t *testing.T) {
	m := &Mirror{client: disabledClient(t)}
	if err := m.handle(context.Background(), eventbus.Event{Type: "unknown"}); err != nil {
		t.Fatalf("expected no error for unknown event type, got %v", err)
	}
}
