// Copyright 2025 Certen Protocol
//
// Package eventbus fans transaction and batch lifecycle events out to
// subscribers (the WebSocket push channel, the optional Firestore mirror).
// Unlike a quorum broadcaster that must block until enough peers respond,
// a subscriber here must never be able to stall the publisher: each
// subscriber gets a bounded channel, and a slow subscriber has its oldest
// buffered event dropped in favor of the new one rather than blocking the
// publish call.
package eventbus

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/certen/ledger-rollup/pkg/database"
)

// EventType names the kind of lifecycle event being published.
type EventType string

const (
	EventTransactionExecuted EventType = "transaction.executed"
	EventBatchStatusChanged  EventType = "batch.status_changed"
)

// Event is the envelope delivered to every subscriber.
type Event struct {
	Type        EventType                  `json:"type"`
	TxID        *uuid.UUID                 `json:"tx_id,omitempty"`
	BatchID     *uuid.UUID                 `json:"batch_id,omitempty"`
	Transaction *database.Transaction      `json:"transaction,omitempty"`
	BatchStatus database.BatchStatus       `json:"batch_status,omitempty"`
}

// Subscription is a single subscriber's bounded inbox. A subscriber
// receiving a non-nil value on Lagged knows it missed at least one event
// because the channel was full.
type Subscription struct {
	ID      uuid.UUID
	Events  <-chan Event
	Lagged  <-chan struct{}
	bus     *Bus
	events  chan Event
	lagged  chan struct{}
}

// Close unregisters the subscription from its bus.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.ID)
}

// Bus is a fan-out publisher with bounded, drop-oldest subscriber queues.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscription
	bufferSize  int
	logger      *log.Logger
}

// New constructs a Bus whose subscriber channels each hold bufferSize
// buffered events before the oldest is dropped.
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Bus{
		subscribers: make(map[uuid.UUID]*Subscription),
		bufferSize:  bufferSize,
		logger:      log.New(log.Writer(), "[EventBus] ", log.LstdFlags),
	}
}

// Subscribe registers a new subscriber and returns its inbox.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New()
	events := make(chan Event, b.bufferSize)
	lagged := make(chan struct{}, 1)

	sub := &Subscription{
		ID:     id,
		Events: events,
		Lagged: lagged,
		bus:    b,
		events: events,
		lagged: lagged,
	}
	b.subscribers[id] = sub
	return sub
}

func (b *Bus) unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		close(sub.events)
		delete(b.subscribers, id)
	}
}

// Publish fans event out to every current subscriber. It never blocks: a
// subscriber whose inbox is full has its oldest buffered event dropped to
// make room, and is notified via Lagged.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		b.deliver(sub, event)
	}
}

func (b *Bus) deliver(sub *Subscription, event Event) {
	select {
	case sub.events <- event:
		return
	default:
	}

	// Inbox full: drop the oldest buffered event, signal lagged, then
	// retry the send. Another publisher goroutine could race us on the
	// same channel, so we tolerate a failed drain (channel already empty)
	// and fall through to a best-effort non-blocking send.
	select {
	case <-sub.events:
	default:
	}

	select {
	case sub.lagged <- struct{}{}:
	default:
	}

	select {
	case sub.events <- event:
	default:
		b.logger.Printf("dropping event for subscriber %s: inbox still full after eviction", sub.ID)
	}
}
