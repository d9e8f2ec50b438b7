// Copyright 2025 Certen Protocol
//
// Package server exposes the ledger rollup's HTTP and WebSocket surface:
// transfer submission, account/transaction/proof queries, and a push
// channel for lifecycle updates. Grounded on the teacher's
// pkg/server/proof_handlers.go (writeJSON/writeError, strings.TrimPrefix
// path parsing, no router dependency) generalized from proof-artifact
// lookups to the ledger/batch/DAS domain.
package server

import (
	"log"
	"net/http"

	"github.com/certen/ledger-rollup/pkg/database"
	"github.com/certen/ledger-rollup/pkg/eventbus"
	"github.com/certen/ledger-rollup/pkg/ledger"
)

// Server holds every dependency the HTTP surface needs to serve requests.
type Server struct {
	executor *ledger.Executor
	repos    *database.Repositories
	bus      *eventbus.Bus
	logger   *log.Logger
	hub      *Hub
}

// New constructs a Server. Call Routes to obtain the handler to pass to
// an http.Server.
func New(executor *ledger.Executor, repos *database.Repositories, bus *eventbus.Bus, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[Server] ", log.LstdFlags)
	}
	s := &Server{
		executor: executor,
		repos:    repos,
		bus:      bus,
		logger:   logger,
	}
	s.hub = newHub(bus, logger)
	return s
}

// Routes builds the HTTP handler wiring every endpoint from the external
// interface. No router dependency is adopted, matching the teacher's own
// pkg/server handlers (each endpoint is one mux.HandleFunc entry with
// method checking and path parsing done inside the handler).
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/transaction/transfer", s.handleTransfer)
	mux.HandleFunc("/account/create", s.handleAccountCreate)
	mux.HandleFunc("/account/", s.handleAccountSubresource)
	mux.HandleFunc("/transactions/", s.handleTransactionByID)
	mux.HandleFunc("/proofs", s.handleListProofs)
	mux.HandleFunc("/proofs/", s.handleGetProof)
	mux.HandleFunc("/ws", s.hub.ServeHTTP)

	return mux
}

