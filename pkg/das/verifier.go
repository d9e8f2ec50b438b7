// Copyright 2025 Certen Protocol
//
// Verifier owns a single long-lived light-client subprocess and streams
// its line-delimited JSON events into das_verifications rows, grounded on
// the CLI-subprocess idiom of the governance proof adapter
// (exec.CommandContext, *exec.ExitError handling), generalized from a
// one-shot call to a restart-on-EOF streaming reader.

package das

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/certen/ledger-rollup/pkg/database"
)

// Event is one tagged line emitted by the light-client subprocess.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData carries the union of fields across the three event shapes the
// light client emits; unused fields are simply left zero.
type EventData struct {
	BlockHash     string  `json:"block_hash"`
	BlockNumber   int64   `json:"block_number"`
	Confidence    float64 `json:"confidence"`
	CellsTotal    int     `json:"cells_total"`
	CellsVerified int     `json:"cells_verified"`
	Progress      float64 `json:"progress"`
	Message       string  `json:"message"`
}

const (
	eventBlockVerified        = "block_verified"
	eventVerificationProgress = "verification_progress"
	eventError                = "error"
)

// Config configures the light-client subprocess and restart policy.
type Config struct {
	BinaryPath    string
	Network       string
	RestartWindow time.Duration // window within which repeated restarts trip degraded mode
	MaxRestarts   int           // restarts allowed within RestartWindow before degraded
}

// Verifier manages the light-client subprocess lifecycle and updates
// das_verifications rows as its events arrive.
type Verifier struct {
	mu sync.Mutex

	cfg  Config
	repo *database.DASVerificationRepository

	cmd    *exec.Cmd
	cancel context.CancelFunc
	alive  bool
	done   chan struct{}

	restarts   []time.Time
	degraded   bool

	logger *log.Logger
}

// New constructs a Verifier. The subprocess is not started until the
// first StartVerification call.
func New(cfg Config, repo *database.DASVerificationRepository) *Verifier {
	if cfg.RestartWindow <= 0 {
		cfg.RestartWindow = 5 * time.Minute
	}
	if cfg.MaxRestarts <= 0 {
		cfg.MaxRestarts = 3
	}
	return &Verifier{
		cfg:    cfg,
		repo:   repo,
		logger: log.New(log.Writer(), "[DASVerifier] ", log.LstdFlags),
	}
}

// ErrDegraded is returned once the subprocess has restarted too many times
// within the configured window; the verifier refuses new work until an
// operator intervenes.
var ErrDegraded = errors.New("das verifier: light client degraded, too many restarts")

// StartVerification records a new Pending DAS record for blockHash and
// ensures the subprocess is running to observe it.
func (v *Verifier) StartVerification(ctx context.Context, blockHash string, blockNumber int64) (uuid.UUID, error) {
	v.mu.Lock()
	degraded := v.degraded
	alive := v.alive
	v.mu.Unlock()

	if degraded {
		return uuid.UUID{}, ErrDegraded
	}
	if !alive {
		if err := v.start(ctx); err != nil {
			return uuid.UUID{}, err
		}
	}

	id := uuid.New()
	if err := v.repo.Create(ctx, id, blockHash, blockNumber); err != nil {
		return uuid.UUID{}, err
	}
	return id, nil
}

// GetVerificationStatus returns the current record for id.
func (v *Verifier) GetVerificationStatus(ctx context.Context, id uuid.UUID) (*database.DASVerification, error) {
	return v.repo.Get(ctx, id)
}

// GetVerificationProgress returns (status, progress) for id: 0 for
// Pending, the reported value for InProgress, 1 for any terminal status.
func (v *Verifier) GetVerificationProgress(ctx context.Context, id uuid.UUID) (database.DASStatus, float64, error) {
	rec, err := v.repo.Get(ctx, id)
	if err != nil {
		return "", 0, err
	}
	return rec.Status, rec.Progress, nil
}

func (v *Verifier) start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.alive {
		return nil
	}

	cmdCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(cmdCtx, v.cfg.BinaryPath, "--network", v.cfg.Network, "--log-format", "json-lines")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("attach light client stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("attach light client stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start light client: %w", err)
	}

	v.cmd = cmd
	v.cancel = cancel
	v.alive = true
	v.done = make(chan struct{})

	go v.readLines(stdout)
	go v.readLines(stderr)
	go v.awaitExit(ctx)

	v.logger.Printf("light client subprocess started (pid=%d)", cmd.Process.Pid)
	return nil
}

func (v *Verifier) readLines(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var evt Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			v.logger.Printf("malformed light client event: %v", err)
			continue
		}
		v.handleEvent(evt)
	}
}

func (v *Verifier) handleEvent(evt Event) {
	ctx := context.Background()

	switch evt.Type {
	case eventVerificationProgress:
		rec, err := v.repo.GetByBlockHash(ctx, evt.Data.BlockHash)
		if err != nil {
			return
		}
		if err := v.repo.UpdateProgress(ctx, rec.ID, evt.Data.Progress, evt.Data.CellsVerified); err != nil {
			v.logger.Printf("update progress for %s: %v", evt.Data.BlockHash, err)
		}
	case eventBlockVerified:
		rec, err := v.repo.GetByBlockHash(ctx, evt.Data.BlockHash)
		if err != nil {
			return
		}
		if err := v.repo.MarkVerified(ctx, rec.ID, evt.Data.Confidence, evt.Data.CellsTotal); err != nil {
			v.logger.Printf("mark verified for %s: %v", evt.Data.BlockHash, err)
		}
	case eventError:
		if evt.Data.BlockHash == "" {
			v.logger.Printf("light client error: %s", evt.Data.Message)
			return
		}
		rec, err := v.repo.GetByBlockHash(ctx, evt.Data.BlockHash)
		if err != nil {
			return
		}
		if err := v.repo.MarkFailed(ctx, rec.ID, evt.Data.Message); err != nil {
			v.logger.Printf("mark failed for %s: %v", evt.Data.BlockHash, err)
		}
	default:
		v.logger.Printf("unknown light client event type %q", evt.Type)
	}
}

// awaitExit waits for the subprocess to exit (EOF on its pipes), marks it
// dead, and restarts it, tripping degraded mode if restarts are too
// frequent. An exit caused by Close is not restarted.
func (v *Verifier) awaitExit(ctx context.Context) {
	v.mu.Lock()
	cmd := v.cmd
	done := v.done
	v.mu.Unlock()

	_ = cmd.Wait()
	close(done)

	v.mu.Lock()
	if !v.alive {
		// Close already marked the subprocess dead; do not restart it.
		v.mu.Unlock()
		return
	}
	v.alive = false
	now := time.Now()
	v.restarts = append(v.restarts, now)
	v.pruneOldRestartsLocked(now)
	tooMany := len(v.restarts) > v.cfg.MaxRestarts
	if tooMany {
		v.degraded = true
	}
	v.mu.Unlock()

	v.logger.Printf("light client subprocess exited")

	if tooMany {
		v.logger.Printf("light client restarted too many times within %s, entering degraded mode", v.cfg.RestartWindow)
		return
	}

	if err := v.start(ctx); err != nil {
		v.logger.Printf("restart light client: %v", err)
	}
}

func (v *Verifier) pruneOldRestartsLocked(now time.Time) {
	cutoff := now.Add(-v.cfg.RestartWindow)
	kept := v.restarts[:0]
	for _, t := range v.restarts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	v.restarts = kept
}

// Close kills the subprocess if running. The DAS Verifier exclusively owns
// the light-client subprocess handle, so drop semantics must kill it.
func (v *Verifier) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.alive || v.cancel == nil {
		return nil
	}
	v.cancel()
	v.alive = false
	return nil
}
