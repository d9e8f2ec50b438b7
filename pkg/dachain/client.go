// Copyright 2025 Certen Protocol
//
// Client composes the Finality Tracker and DAS Verifier into a
// single submit-then-confirm operation against an external DA chain,
// grounded on the submit-then-poll shape of the teacher's anchor adapter
// (submit, then poll confirmation state until terminal).

package dachain

import (
	"context"
	"fmt"
	"time"

	"github.com/ChainSafe/go-schnorrkel"
	"github.com/google/uuid"

	"github.com/certen/ledger-rollup/pkg/database"
	"github.com/certen/ledger-rollup/pkg/das"
	"github.com/certen/ledger-rollup/pkg/finality"
)

// RPC is the pluggable interface to the DA chain's submission endpoint.
// The wire format of the RPC call itself is out of scope; callers supply
// a concrete implementation (e.g. JSON-RPC over HTTP, a gRPC client).
type RPC interface {
	// SubmitSignedPayload submits a signed payload and blocks until the
	// chain reports in-block inclusion, returning the including block's
	// hash and number.
	SubmitSignedPayload(ctx context.Context, payload, signature, publicKey []byte) (blockHash string, blockNumber int64, err error)
}

// SigningContext is the domain-separation label used for every batch
// payload this service signs, so signatures from this system are never
// valid in another sr25519 signing context.
var SigningContext = []byte("certen-ledger-rollup-da-submission")

// Result is the terminal outcome of SubmitBatchAndVerify.
type Result struct {
	BlockHash  string
	BlockNumber int64
	Verified   bool
	Reason     string // populated when Verified is false
}

// Config configures the DA client facade.
type Config struct {
	FinalityTimeout time.Duration
	PollInterval    time.Duration
}

// Client signs and submits batch payloads to a DA chain, then waits for
// finality and DAS verification before declaring the submission final.
type Client struct {
	rpc       RPC
	tracker   *finality.Tracker
	verifier  *das.Verifier
	secretKey *schnorrkel.SecretKey
	publicKey *schnorrkel.PublicKey
	cfg       Config
}

// New constructs a Client signing with the sr25519 keypair derived from
// seed.
func New(rpc RPC, tracker *finality.Tracker, verifier *das.Verifier, seed [32]byte, cfg Config) (*Client, error) {
	if cfg.FinalityTimeout <= 0 {
		cfg.FinalityTimeout = 60 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	miniKey, err := schnorrkel.NewMiniSecretKeyFromRaw(seed)
	if err != nil {
		return nil, fmt.Errorf("derive sr25519 key: %w", err)
	}
	secretKey, publicKey := miniKey.ExpandEd25519()

	return &Client{
		rpc:       rpc,
		tracker:   tracker,
		verifier:  verifier,
		secretKey: secretKey,
		publicKey: publicKey,
		cfg:       cfg,
	}, nil
}

// ProgressSink receives (status, progress) updates from
// SubmitBatchAndVerifyWithProgress.
type ProgressSink func(status string, progress float64)

// SubmitBatchAndVerify signs and submits payload, then blocks until the
// resulting DA block has both finalized and passed DAS verification.
func (c *Client) SubmitBatchAndVerify(ctx context.Context, payload []byte) (*Result, error) {
	return c.SubmitBatchAndVerifyWithProgress(ctx, payload, nil)
}

// SubmitBatchAndVerifyWithProgress is the progress-callback variant: sink
// is invoked with progress 0.0 at entry ("submitting") and once more when
// the finality wait begins ("awaiting_finality"). It is not invoked while
// WaitForFinality blocks. After finality it is invoked once per
// PollInterval (one second by default) with the DAS record's status and
// progress, until that record is terminal.
func (c *Client) SubmitBatchAndVerifyWithProgress(ctx context.Context, payload []byte, sink ProgressSink) (*Result, error) {
	if sink != nil {
		sink("submitting", 0.0)
	}

	signature, err := c.sign(payload)
	if err != nil {
		return nil, fmt.Errorf("sign batch payload: %w", err)
	}

	blockHash, blockNumber, err := c.rpc.SubmitSignedPayload(ctx, payload, signature, c.publicKeyBytes())
	if err != nil {
		return nil, fmt.Errorf("submit to DA chain: %w", err)
	}

	c.tracker.TrackBlock(blockNumber, blockHash)

	verificationID, err := c.verifier.StartVerification(ctx, blockHash, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("start DAS verification: %w", err)
	}

	if sink != nil {
		sink("awaiting_finality", 0.0)
	}
	if _, err := c.tracker.WaitForFinality(ctx, blockHash, c.cfg.FinalityTimeout); err != nil {
		return nil, fmt.Errorf("wait for finality: %w", err)
	}

	return c.pollUntilTerminal(ctx, blockHash, blockNumber, verificationID, sink)
}

func (c *Client) pollUntilTerminal(ctx context.Context, blockHash string, blockNumber int64, verificationID uuid.UUID, sink ProgressSink) (*Result, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			rec, err := c.verifier.GetVerificationStatus(ctx, verificationID)
			if err != nil {
				return nil, fmt.Errorf("poll DAS verification status: %w", err)
			}

			if sink != nil {
				sink(string(rec.Status), rec.Progress)
			}

			switch rec.Status {
			case database.DASStatusVerified:
				return &Result{BlockHash: blockHash, BlockNumber: blockNumber, Verified: true}, nil
			case database.DASStatusFailed:
				return &Result{BlockHash: blockHash, BlockNumber: blockNumber, Verified: false, Reason: rec.FailureReason}, nil
			}
		}
	}
}

func (c *Client) sign(payload []byte) ([]byte, error) {
	signingCtx := schnorrkel.NewSigningContext(SigningContext, payload)
	sig, err := c.secretKey.Sign(signingCtx)
	if err != nil {
		return nil, err
	}
	encoded := sig.Encode()
	return encoded[:], nil
}

func (c *Client) publicKeyBytes() []byte {
	encoded := c.publicKey.Encode()
	return encoded[:]
}
