// Copyright 2025 Certen Protocol
//
// Entry point for the ledger rollup service: wires the executor, batch
// assembler, prover/DA pipeline, and HTTP surface together and runs them
// until an interrupt or termination signal arrives.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/certen/ledger-rollup/pkg/batch"
	"github.com/certen/ledger-rollup/pkg/config"
	"github.com/certen/ledger-rollup/pkg/dachain"
	"github.com/certen/ledger-rollup/pkg/das"
	"github.com/certen/ledger-rollup/pkg/database"
	"github.com/certen/ledger-rollup/pkg/eventbus"
	"github.com/certen/ledger-rollup/pkg/finality"
	"github.com/certen/ledger-rollup/pkg/firestore"
	"github.com/certen/ledger-rollup/pkg/firestoresync"
	"github.com/certen/ledger-rollup/pkg/ledger"
	"github.com/certen/ledger-rollup/pkg/prover"
	"github.com/certen/ledger-rollup/pkg/server"
	"github.com/certen/ledger-rollup/pkg/signing"
	"github.com/certen/ledger-rollup/pkg/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := log.New(log.Writer(), "[ledger-rollup] ", log.LstdFlags)

	issuerPub, err := loadIssuerKey(cfg.IssuerPublicKeyHex)
	if err != nil {
		log.Fatalf("load issuer key: %v", err)
	}

	dbClient, err := database.NewClient(cfg)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer dbClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dbClient.MigrateUp(ctx); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	repos := database.NewRepositories(dbClient)
	bus := eventbus.New(cfg.SubscriberBufferSize)

	executor := ledger.New(dbClient, repos, bus, validator.Limits{
		MaxFee:       cfg.MaxFee,
		MaxBatchSize: cfg.MaxBatchSize,
	}, issuerPub)

	proverDriver := prover.New(cfg.ProverBinaryPath, cfg.ProverMaxRetries, cfg.DataDir)
	if err := proverDriver.Setup(); err != nil {
		log.Fatalf("set up prover keys: %v", err)
	}

	daClient, daCloser := buildDAChainClient(ctx, cfg, logger)
	if daCloser != nil {
		defer daCloser()
	}

	coordinator := batch.NewCoordinator(repos, proverDriver, daClient, bus)
	assembler := batch.New(dbClient, repos, batch.Config{
		MaxBatchSize: cfg.MaxBatchSize,
		Interval:     cfg.BatchInterval,
		Callback:     coordinator.Handle,
	})
	go assembler.Start(ctx)
	defer assembler.Stop()

	firestoreClient, err := firestore.NewClient(ctx, &firestore.ClientConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsFile: cfg.FirebaseCredentialsFile,
		Enabled:         cfg.FirestoreEnabled,
		Logger:          log.New(log.Writer(), "[Firestore] ", log.LstdFlags),
	})
	if err != nil {
		log.Fatalf("initialize firestore client: %v", err)
	}
	defer firestoreClient.Close()

	mirror := firestoresync.New(firestoreClient, bus, log.New(log.Writer(), "[FirestoreMirror] ", log.LstdFlags))
	go mirror.Run(ctx)

	httpServer := server.New(executor, repos, bus, logger)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: httpServer.Routes()}
	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("http server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Printf("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http server shutdown error: %v", err)
	}

	logger.Printf("stopped")
}

func loadIssuerKey(hexKey string) (ed25519.PublicKey, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("ISSUER_PUBLIC_KEY is required")
	}
	addr, err := signing.DecodeAddress(hexKey)
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(addr[:]), nil
}

// buildDAChainClient wires the submission RPC, finality tracker, and DAS
// verifier into a dachain.Client. It returns a nil client (not an error)
// when no DA endpoint is configured, leaving the batch pipeline to stop
// at "proved" — useful for development and for the test S1-style flows
// that never need DA submission.
func buildDAChainClient(ctx context.Context, cfg *config.Config, logger *log.Logger) (batch.DAChainClient, func()) {
	if cfg.DAEndpoint == "" {
		logger.Printf("DA_ENDPOINT not configured, batches will stop at proved")
		return nil, nil
	}

	rpcClient, err := dachain.DialJSONRPC(ctx, cfg.DAEndpoint)
	if err != nil {
		logger.Printf("dial DA chain endpoint: %v, batches will stop at proved", err)
		return nil, nil
	}

	tracker := finality.New(cfg.MaxTrackedBlocks)

	dbClient, err := database.NewClient(cfg)
	if err != nil {
		logger.Printf("connect to database for DAS verifier: %v, batches will stop at proved", err)
		return nil, nil
	}
	repos := database.NewRepositories(dbClient)

	verifier := das.New(das.Config{
		BinaryPath:    cfg.LightClientPath,
		Network:       cfg.DAEndpoint,
		RestartWindow: cfg.LightClientRestartWindow,
		MaxRestarts:   cfg.LightClientMaxRestarts,
	}, repos.DASVerifications)

	seed, err := daSeedFromKeyURI(cfg.DASr25519KeyURI)
	if err != nil {
		logger.Printf("derive DA signing seed: %v, batches will stop at proved", err)
		return nil, nil
	}

	client, err := dachain.New(rpcClient, tracker, verifier, seed, dachain.Config{
		FinalityTimeout: cfg.FinalityTimeout,
	})
	if err != nil {
		logger.Printf("construct DA chain client: %v, batches will stop at proved", err)
		return nil, nil
	}

	closer := func() {
		rpcClient.Close()
		verifier.Close()
		dbClient.Close()
	}
	return &batchDAChainAdapter{client: client}, closer
}

// batchDAChainAdapter satisfies batch.DAChainClient by translating
// dachain.Client's concrete *dachain.Result into batch.DASubmissionResult
// — pkg/batch deliberately has no import dependency on pkg/dachain, so
// this conversion lives here at the wiring layer instead.
type batchDAChainAdapter struct {
	client *dachain.Client
}

func (a *batchDAChainAdapter) SubmitBatchAndVerify(ctx context.Context, payload []byte) (*batch.DASubmissionResult, error) {
	result, err := a.client.SubmitBatchAndVerify(ctx, payload)
	if err != nil {
		return nil, err
	}
	return &batch.DASubmissionResult{
		BlockHash:   result.BlockHash,
		BlockNumber: result.BlockNumber,
		Verified:    result.Verified,
		Reason:      result.Reason,
	}, nil
}

// daSeedFromKeyURI derives a deterministic sr25519 seed from a key URI
// string (e.g. "//Alice"). It does not implement the full substrate
// junction/derivation-path algebra — only a stable, deterministic mapping
// from a configured URI to a 32-byte seed, sufficient for a single fixed
// signing identity per deployment.
func daSeedFromKeyURI(uri string) ([32]byte, error) {
	if uri == "" {
		return [32]byte{}, fmt.Errorf("DA_SR25519_KEY_URI must not be empty")
	}
	return sha256.Sum256([]byte(uri)), nil
}
