// Copyright 2025 Certen Protocol

package server

import (
	"testing"

	"github.com/google/uuid"

	"github.com/certen/ledger-rollup/pkg/database"
	"github.com/certen/ledger-rollup/pkg/eventbus"
)

func TestWSClient_MatchesEverythingWithNoFilter(t *testing.T) {
	c := &wsClient{}
	txID := uuid.New()
	if !c.matches(eventbus.Event{Type: eventbus.EventTransactionExecuted, TxID: &txID}) {
		t.Fatal("expected an unfiltered client to match every event")
	}
}

func TestWSClient_TxFilterExcludesOtherTransactions(t *testing.T) {
	filter := uuid.New()
	c := &wsClient{txFilter: &filter}

	other := uuid.New()
	if c.matches(eventbus.Event{Type: eventbus.EventTransactionExecuted, TxID: &other}) {
		t.Fatal("expected non-matching tx_id to be filtered out")
	}
	if !c.matches(eventbus.Event{Type: eventbus.EventTransactionExecuted, TxID: &filter}) {
		t.Fatal("expected matching tx_id to pass the filter")
	}
}

func TestWSClient_BatchFilterExcludesOtherBatches(t *testing.T) {
	filter := uuid.New()
	c := &wsClient{batchFilter: &filter}

	other := uuid.New()
	if c.matches(eventbus.Event{Type: eventbus.EventBatchStatusChanged, BatchID: &other}) {
		t.Fatal("expected non-matching batch_id to be filtered out")
	}
	if !c.matches(eventbus.Event{Type: eventbus.EventBatchStatusChanged, BatchID: &filter}) {
		t.Fatal("expected matching batch_id to pass the filter")
	}
}

func TestToUpdate_MapsTransactionExecuted(t *testing.T) {
	txn := &database.Transaction{Status: database.TransactionStatusExecuted}
	update := toUpdate(eventbus.Event{Type: eventbus.EventTransactionExecuted, Transaction: txn})

	if update.Type != "transaction" || update.Transaction != txn {
		t.Fatalf("unexpected update: %+v", update)
	}
}

func TestToUpdate_MapsBatchStatusChanged(t *testing.T) {
	batchID := uuid.New()
	update := toUpdate(eventbus.Event{Type: eventbus.EventBatchStatusChanged, BatchID: &batchID, BatchStatus: database.BatchStatusProved})

	if update.Type != "proof" {
		t.Fatalf("expected type proof, got %s", update.Type)
	}
	if update.Batch == nil || update.Batch.BatchID != batchID || update.Batch.Status != database.BatchStatusProved {
		t.Fatalf("unexpected batch payload: %+v", update.Batch)
	}
}
