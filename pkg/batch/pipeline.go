// Copyright 2025 Certen Protocol
//
// Coordinator wires a closed batch through proving and DA submission,
// the concrete ReadyCallback the Assembler hands batches off to. It is
// the glue between pkg/batch, pkg/prover, and pkg/dachain that the
// component design describes as three separate pieces but never names
// as a fourth package of its own.
package batch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/certen/ledger-rollup/pkg/commitment"
	"github.com/certen/ledger-rollup/pkg/database"
	"github.com/certen/ledger-rollup/pkg/eventbus"
	"github.com/certen/ledger-rollup/pkg/prover"
)

// Prover is the subset of *prover.Driver the coordinator depends on.
type Prover interface {
	GenerateProof(ctx context.Context, witness *prover.BatchWitness) (*prover.Proof, error)
	VerifyLocally(proof *prover.Proof) (bool, error)
}

// DAChainClient is the subset of *dachain.Client the coordinator depends
// on, kept as an interface so tests can substitute a fake submitter.
type DAChainClient interface {
	SubmitBatchAndVerify(ctx context.Context, payload []byte) (*DASubmissionResult, error)
}

// DASubmissionResult mirrors dachain.Result's fields the coordinator
// needs, decoupling this package from dachain's concrete type.
type DASubmissionResult struct {
	BlockHash   string
	BlockNumber int64
	Verified    bool
	Reason      string
}

// Coordinator advances a single batch from proving through
// submission/finality, publishing a batch.status_changed event at every
// transition so WebSocket subscribers and the optional Firestore mirror
// see the same state the database does.
type Coordinator struct {
	repos  *database.Repositories
	prover Prover
	da     DAChainClient
	bus    *eventbus.Bus
	logger *log.Logger
}

// NewCoordinator constructs a Coordinator. da may be nil, in which case
// Handle proves the batch and stops there, leaving it in proved — useful
// for deployments with no DA chain yet configured.
func NewCoordinator(repos *database.Repositories, p Prover, da DAChainClient, bus *eventbus.Bus) *Coordinator {
	return &Coordinator{
		repos:  repos,
		prover: p,
		da:     da,
		bus:    bus,
		logger: log.New(log.Writer(), "[BatchPipeline] ", log.LstdFlags),
	}
}

// Handle implements ReadyCallback: prove batchID, submit it to the DA
// chain if one is configured, and record the outcome at every step. A
// failure at either stage marks the batch failed and returns nil — a
// single bad batch must not stop the assembler, per the error-handling
// design's absorbing-failed-state policy.
func (c *Coordinator) Handle(ctx context.Context, batchID uuid.UUID) error {
	batch, err := c.repos.Batches.Get(ctx, batchID)
	if err != nil {
		return fmt.Errorf("fetch batch %s: %w", batchID, err)
	}

	witness, err := c.buildWitness(ctx, batch)
	if err != nil {
		c.fail(ctx, batchID, fmt.Sprintf("build witness: %v", err))
		return nil
	}

	proof, err := c.prover.GenerateProof(ctx, witness)
	if err != nil {
		c.fail(ctx, batchID, fmt.Sprintf("generate proof: %v", err))
		return nil
	}
	if ok, err := c.prover.VerifyLocally(proof); err != nil || !ok {
		c.fail(ctx, batchID, fmt.Sprintf("local proof verification failed: %v", err))
		return nil
	}

	if err := c.repos.Batches.SetProof(ctx, batchID, proof.Bytes); err != nil {
		return fmt.Errorf("record proof for batch %s: %w", batchID, err)
	}
	c.publish(batchID, database.BatchStatusProved)

	if c.da == nil {
		return nil
	}

	payload, err := commitment.MarshalCanonical(submissionPayload{
		BatchID:   batchID,
		StateRoot: batch.StateRoot,
		Proof:     proof.Bytes,
	})
	if err != nil {
		c.fail(ctx, batchID, fmt.Sprintf("marshal DA payload: %v", err))
		return nil
	}

	result, err := c.da.SubmitBatchAndVerify(ctx, payload)
	if err != nil {
		c.fail(ctx, batchID, fmt.Sprintf("submit to DA chain: %v", err))
		return nil
	}

	if err := c.repos.Batches.SetSubmitted(ctx, batchID, result.BlockNumber, []byte(result.BlockHash)); err != nil {
		return fmt.Errorf("record DA submission for batch %s: %w", batchID, err)
	}
	c.publish(batchID, database.BatchStatusSubmitted)

	if !result.Verified {
		c.fail(ctx, batchID, fmt.Sprintf("DA verification failed: %s", result.Reason))
		return nil
	}

	if err := c.repos.Batches.SetFinalized(ctx, batchID); err != nil {
		return fmt.Errorf("record finality for batch %s: %w", batchID, err)
	}
	c.publish(batchID, database.BatchStatusFinalized)
	return nil
}

type submissionPayload struct {
	BatchID   uuid.UUID `json:"batch_id"`
	StateRoot []byte    `json:"state_root"`
	Proof     []byte    `json:"proof"`
}

// buildWitness assembles the circuit witness for batch: the chain's old
// state root is its predecessor's new state root (the zero digest for
// the first batch), the new state root is the assembler's own Merkle
// commitment over the bound transfers, and each transfer's sender
// balance is sampled from the account's current balance — the ledger
// keeps no historical balance ledger, so this is the most recent
// balance known for that address at proving time.
func (c *Coordinator) buildWitness(ctx context.Context, batch *database.Batch) (*prover.BatchWitness, error) {
	prev, err := c.repos.Batches.Previous(ctx, batch.BatchID)
	if err != nil {
		return nil, fmt.Errorf("fetch previous batch: %w", err)
	}

	var oldRoot [32]byte
	if prev != nil {
		copy(oldRoot[:], prev.StateRoot)
	}
	var newRoot [32]byte
	copy(newRoot[:], batch.StateRoot)

	txns, err := c.repos.Transactions.ListByBatchID(ctx, batch.BatchID)
	if err != nil {
		return nil, fmt.Errorf("list batch transactions: %w", err)
	}
	if len(txns) > prover.MaxTransfersPerCircuit {
		return nil, fmt.Errorf("batch has %d transfers, exceeds circuit max %d", len(txns), prover.MaxTransfersPerCircuit)
	}

	transfers := make([]prover.TransferLeaf, 0, len(txns))
	for _, t := range txns {
		balance, err := c.senderBalance(ctx, t)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, prover.TransferLeaf{
			Amount:        t.Amount,
			Fee:           t.Fee,
			SenderBalance: balance,
		})
	}

	return &prover.BatchWitness{
		OldStateRoot:    oldRoot,
		NewStateRoot:    newRoot,
		BatchCommitment: batchCommitment(newRoot, batch.BatchID),
		Transfers:       transfers,
	}, nil
}

// senderBalance reports the balance of t's sender, or 0 for a mint (no
// sender row to debit).
func (c *Coordinator) senderBalance(ctx context.Context, t *database.Transaction) (int64, error) {
	if t.From == nil {
		return 0, nil
	}
	acc, err := c.repos.Accounts.Get(ctx, *t.From)
	if err != nil {
		return 0, fmt.Errorf("fetch sender account for tx %s: %w", t.TxID, err)
	}
	return acc.Balance, nil
}

// batchCommitment binds the batch's new state root to its own ID so two
// batches that happened to compute the same transfer-set Merkle root
// (e.g. both empty) still commit to distinct values.
func batchCommitment(newRoot [32]byte, batchID uuid.UUID) [32]byte {
	h := sha256.New()
	h.Write(newRoot[:])
	h.Write(batchID[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (c *Coordinator) fail(ctx context.Context, batchID uuid.UUID, reason string) {
	if err := c.repos.Batches.SetFailed(ctx, batchID, reason); err != nil {
		c.logger.Printf("failed to record batch %s as failed: %v", batchID, err)
		return
	}
	c.logger.Printf("batch %s failed: %s", batchID, reason)
	c.publish(batchID, database.BatchStatusFailed)
}

func (c *Coordinator) publish(batchID uuid.UUID, status database.BatchStatus) {
	if c.bus == nil {
		return
	}
	id := batchID
	c.bus.Publish(eventbus.Event{
		Type:        eventbus.EventBatchStatusChanged,
		BatchID:     &id,
		BatchStatus: status,
	})
}
