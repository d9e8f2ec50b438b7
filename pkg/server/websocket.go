// Copyright 2025 Certen Protocol
//
// WebSocket push channel: every connected client receives every lifecycle
// event by default, optionally narrowed to a single tx_id/batch_id via a
// subscribe command. gorilla/websocket is present in the teacher's own
// go.mod as an indirect dependency of its geth/cometbft stack; this is
// its first direct, exercised use in this codebase.
package server

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/certen/ledger-rollup/pkg/database"
	"github.com/certen/ledger-rollup/pkg/eventbus"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The rollup exposes a public read/subscribe channel, not a
	// same-origin browser session; any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Update is the envelope pushed to every WebSocket subscriber.
type Update struct {
	Type        string                `json:"type"`
	Transaction *database.Transaction `json:"transaction,omitempty"`
	Batch       *database.Batch       `json:"batch,omitempty"`
}

// subscribeCommand is a client-sent message narrowing a connection's
// feed to one transaction or batch.
type subscribeCommand struct {
	Command string     `json:"command"`
	TxID    *uuid.UUID `json:"tx_id,omitempty"`
	BatchID *uuid.UUID `json:"batch_id,omitempty"`
}

// Hub upgrades incoming /ws requests and relays eventbus events to every
// connected client, honoring each client's optional subscribe filter.
type Hub struct {
	bus    *eventbus.Bus
	logger *log.Logger
}

func newHub(bus *eventbus.Bus, logger *log.Logger) *Hub {
	return &Hub{bus: bus, logger: logger}
}

// ServeHTTP upgrades the request and serves one client for the lifetime
// of the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	c := &wsClient{conn: conn, hub: h, sub: h.bus.Subscribe()}
	go c.readLoop()
	c.writeLoop()
}

// wsClient owns one upgraded connection's read and write goroutines.
type wsClient struct {
	conn *websocket.Conn
	hub  *Hub
	sub  *eventbus.Subscription

	txFilter    *uuid.UUID
	batchFilter *uuid.UUID
}

// readLoop drains incoming subscribe commands until the connection
// closes. Its only side effect is narrowing the write loop's filter;
// it never itself writes to the connection (gorilla/websocket requires
// a single writer per connection).
func (c *wsClient) readLoop() {
	defer c.sub.Close()
	defer c.conn.Close()

	for {
		var cmd subscribeCommand
		if err := c.conn.ReadJSON(&cmd); err != nil {
			return
		}
		switch cmd.Command {
		case "subscribe_transaction":
			c.txFilter = cmd.TxID
		case "subscribe_proof":
			c.batchFilter = cmd.BatchID
		default:
			c.hub.logger.Printf("ignoring unknown websocket command %q", cmd.Command)
		}
	}
}

// writeLoop relays subscribed events and periodic pings until the
// subscription or connection closes.
func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case event, ok := <-c.sub.Events:
			if !ok {
				return
			}
			if !c.matches(event) {
				continue
			}
			if err := c.send(toUpdate(event)); err != nil {
				return
			}
		case <-c.sub.Lagged:
			c.hub.logger.Printf("websocket client missed events: inbox overflow")
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) matches(event eventbus.Event) bool {
	if c.txFilter != nil {
		return event.TxID != nil && *event.TxID == *c.txFilter
	}
	if c.batchFilter != nil {
		return event.BatchID != nil && *event.BatchID == *c.batchFilter
	}
	return true
}

func (c *wsClient) send(update Update) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(update)
}

func toUpdate(event eventbus.Event) Update {
	switch event.Type {
	case eventbus.EventTransactionExecuted:
		return Update{Type: "transaction", Transaction: event.Transaction}
	case eventbus.EventBatchStatusChanged:
		return Update{Type: "proof", Batch: batchFromEvent(event)}
	default:
		return Update{Type: string(event.Type)}
	}
}

// batchFromEvent builds the minimal Batch shape the event carries;
// subscribers wanting the full row re-fetch it via GET /proofs/{id}.
func batchFromEvent(event eventbus.Event) *database.Batch {
	if event.BatchID == nil {
		return nil
	}
	return &database.Batch{BatchID: *event.BatchID, Status: event.BatchStatus}
}
