// Copyright 2025 Certen Protocol
//
// Package firestoresync mirrors terminal ledger events to Firestore for
// consumers that want a push-friendly document view (mobile/web clients
// already wired for Firestore listeners) instead of the WebSocket feed.
// It is a thin subscriber on top of the event bus; the source of truth
// remains Postgres, and a disabled or unreachable Firestore client never
// affects ledger execution.
package firestoresync

import (
	"context"
	"fmt"
	"log"

	gcpfirestore "cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/certen/ledger-rollup/pkg/database"
	"github.com/certen/ledger-rollup/pkg/eventbus"
	"github.com/certen/ledger-rollup/pkg/firestore"
)

// Mirror subscribes to the event bus and writes one document per
// transaction and per batch, keyed by their own IDs rather than nested
// under a user path — the ledger has no notion of a Firestore "owning
// user" for an address.
type Mirror struct {
	client *firestore.Client
	sub    *eventbus.Subscription
	logger *log.Logger
}

// New constructs a Mirror. client may be a disabled (no-op) client, in
// which case Run still consumes events but every write is a no-op.
func New(client *firestore.Client, bus *eventbus.Bus, logger *log.Logger) *Mirror {
	if logger == nil {
		logger = log.New(log.Writer(), "[FirestoreMirror] ", log.LstdFlags)
	}
	return &Mirror{
		client: client,
		sub:    bus.Subscribe(),
		logger: logger,
	}
}

// Run consumes events until ctx is canceled. Call it from its own
// goroutine; it closes its subscription on return.
func (m *Mirror) Run(ctx context.Context) {
	defer m.sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.sub.Lagged:
			m.logger.Printf("mirror lagged, some events were dropped")
		case event, ok := <-m.sub.Events:
			if !ok {
				return
			}
			if err := m.handle(ctx, event); err != nil {
				m.logger.Printf("mirror write failed for %s: %v", event.Type, err)
			}
		}
	}
}

func (m *Mirror) handle(ctx context.Context, event eventbus.Event) error {
	switch event.Type {
	case eventbus.EventTransactionExecuted:
		return m.writeTransaction(ctx, event.Transaction)
	case eventbus.EventBatchStatusChanged:
		if event.BatchID == nil {
			return nil
		}
		return m.writeBatchStatus(ctx, *event.BatchID, event.BatchStatus)
	default:
		return nil
	}
}

func (m *Mirror) writeTransaction(ctx context.Context, t *database.Transaction) error {
	if t == nil {
		return nil
	}
	doc := map[string]interface{}{
		"txId":      t.TxID.String(),
		"to":        fmt.Sprintf("%x", t.To),
		"amount":    t.Amount,
		"fee":       t.Fee,
		"status":    string(t.Status),
		"updatedAt": t.UpdatedAt,
	}
	if t.From != nil {
		doc["from"] = fmt.Sprintf("%x", *t.From)
	}
	if t.BatchID != nil {
		doc["batchId"] = t.BatchID.String()
	}

	ref := m.client.Doc(fmt.Sprintf("transactions/%s", t.TxID))
	if ref == nil {
		return nil
	}
	_, err := ref.Set(ctx, doc)
	return err
}

func (m *Mirror) writeBatchStatus(ctx context.Context, batchID uuid.UUID, status database.BatchStatus) error {
	ref := m.client.Doc(fmt.Sprintf("batches/%s", batchID))
	if ref == nil {
		return nil
	}
	_, err := ref.Set(ctx, map[string]interface{}{
		"batchId": batchID.String(),
		"status":  string(status),
	}, gcpfirestore.MergeAll)
	return err
}
