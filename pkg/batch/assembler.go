// Copyright 2025 Certen Protocol
//
// Batch Assembler - Groups executed transactions into batches on a timer
// or size cap, whichever comes first, and computes each batch's state
// root over the transactions it binds.

package batch

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/certen/ledger-rollup/pkg/database"
	"github.com/certen/ledger-rollup/pkg/merkle"
)

// State represents the assembler's run state.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// ReadyCallback is invoked after a batch has been closed and its state
// root recorded, handing the batch off to the prover driver.
type ReadyCallback func(ctx context.Context, batchID uuid.UUID) error

// Assembler periodically drains pending executed transactions into
// bounded batches.
type Assembler struct {
	mu sync.RWMutex

	client *database.Client
	repos  *database.Repositories

	maxBatchSize  int
	interval      time.Duration
	checkInterval time.Duration
	callback      ReadyCallback

	state  State
	stopCh chan struct{}
	doneCh chan struct{}

	logger *log.Logger
}

// Config holds assembler configuration.
type Config struct {
	MaxBatchSize  int
	Interval      time.Duration
	CheckInterval time.Duration
	Callback      ReadyCallback
}

// New constructs an Assembler.
func New(client *database.Client, repos *database.Repositories, cfg Config) *Assembler {
	checkInterval := cfg.CheckInterval
	if checkInterval <= 0 {
		checkInterval = 5 * time.Second
	}
	return &Assembler{
		client:        client,
		repos:         repos,
		maxBatchSize:  cfg.MaxBatchSize,
		interval:      cfg.Interval,
		checkInterval: checkInterval,
		callback:      cfg.Callback,
		state:         StateStopped,
		logger:        log.New(log.Writer(), "[Assembler] ", log.LstdFlags),
	}
}

// Start begins the background assembly loop.
func (a *Assembler) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateRunning {
		return
	}
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.state = StateRunning
	go a.run(ctx)
	a.logger.Printf("assembler started (interval=%s, max_batch_size=%d)", a.interval, a.maxBatchSize)
}

// Stop halts the background assembly loop and waits for it to exit.
func (a *Assembler) Stop() {
	a.mu.Lock()
	if a.state != StateRunning {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	a.state = StateStopped
	done := a.doneCh
	a.mu.Unlock()

	<-done
	a.logger.Println("assembler stopped")
}

func (a *Assembler) run(ctx context.Context) {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()

	var windowStart time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case <-ticker.C:
			if windowStart.IsZero() {
				windowStart = time.Now()
			}

			count, err := a.pendingCount(ctx)
			if err != nil {
				a.logger.Printf("count pending transactions: %v", err)
				continue
			}
			if count == 0 {
				windowStart = time.Time{}
				continue
			}

			shouldClose := count >= a.maxBatchSize || time.Since(windowStart) >= a.interval
			if !shouldClose {
				continue
			}

			batchID, err := a.AssembleNext(ctx)
			if err != nil {
				if err != ErrBatchEmpty {
					a.logger.Printf("assemble batch: %v", err)
				}
				continue
			}
			windowStart = time.Time{}

			if a.callback != nil {
				if err := a.callback(ctx, batchID); err != nil {
					a.logger.Printf("batch ready callback failed for %s: %v", batchID, err)
				}
			}
		}
	}
}

func (a *Assembler) pendingCount(ctx context.Context) (int, error) {
	const query = `SELECT count(*) FROM transactions WHERE status = 'executed' AND batch_id IS NULL`
	var count int
	if err := a.client.DB().QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("pending count: %w", err)
	}
	return count, nil
}

// AssembleNext claims up to maxBatchSize unbatched executed transactions,
// creates a new batch row, binds the transactions to it, computes the
// batch's state root as the Merkle root over their canonical hashes. The
// transactions keep their executed status; only their batch_id is set.
// Returns ErrBatchEmpty if there is nothing pending.
func (a *Assembler) AssembleNext(ctx context.Context) (uuid.UUID, error) {
	tx, err := a.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids, leaves, err := a.claimPending(ctx, tx, a.maxBatchSize)
	if err != nil {
		return uuid.UUID{}, err
	}
	if len(ids) == 0 {
		return uuid.UUID{}, ErrBatchEmpty
	}

	batchID := uuid.New()
	if err := a.repos.Batches.Create(ctx, tx, batchID); err != nil {
		return uuid.UUID{}, err
	}
	if err := a.repos.Transactions.AssignToBatch(ctx, tx, batchID, ids); err != nil {
		return uuid.UUID{}, err
	}

	root, err := merkle.BuildTree(leaves)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("build state root: %w", err)
	}
	if err := a.repos.Batches.SetStateRoot(ctx, tx, batchID, root.Root()); err != nil {
		return uuid.UUID{}, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.UUID{}, fmt.Errorf("commit batch assembly: %w", err)
	}

	a.logger.Printf("assembled batch %s with %d transactions", batchID, len(ids))
	return batchID, nil
}

func (a *Assembler) claimPending(ctx context.Context, tx *sql.Tx, limit int) ([]uuid.UUID, [][]byte, error) {
	const query = `
		SELECT tx_id, from_address, to_address, amount, fee, nonce
		FROM transactions
		WHERE status = 'executed' AND batch_id IS NULL
		ORDER BY created_at ASC, tx_id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	rows, err := tx.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("claim pending transactions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	var leaves [][]byte
	for rows.Next() {
		var id uuid.UUID
		var from, to []byte
		var amount, fee int64
		var nonce sql.NullInt64
		if err := rows.Scan(&id, &from, &to, &amount, &fee, &nonce); err != nil {
			return nil, nil, fmt.Errorf("scan claimed transaction: %w", err)
		}
		ids = append(ids, id)
		leaves = append(leaves, leafHash(id, from, to, amount, fee, nonce))
	}
	return ids, leaves, rows.Err()
}

func leafHash(id uuid.UUID, from, to []byte, amount, fee int64, nonce sql.NullInt64) []byte {
	buf := make([]byte, 0, 16+len(from)+len(to)+24)
	buf = append(buf, id[:]...)
	buf = append(buf, from...)
	buf = append(buf, to...)
	buf = appendInt64(buf, amount)
	buf = appendInt64(buf, fee)
	if nonce.Valid {
		buf = appendInt64(buf, nonce.Int64)
	}
	return merkle.HashData(buf)
}

func appendInt64(buf []byte, v int64) []byte {
	var tmp [8]byte
	for i := 0; i < 8; i++ {
		tmp[i] = byte(v >> (8 * i))
	}
	return append(buf, tmp[:]...)
}
