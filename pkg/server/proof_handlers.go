// Copyright 2025 Certen Protocol
//
// Proof/batch status endpoints, generalized from the teacher's
// pkg/server/proof_handlers.go GET-by-ID / list patterns.
package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/certen/ledger-rollup/pkg/apperr"
	"github.com/certen/ledger-rollup/pkg/database"
)

const defaultProofListLimit = 50

// handleGetProof implements GET /proofs/{batch_id}.
func (s *Server) handleGetProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/proofs/"), "/")
	if idStr == "" {
		writeAppError(w, apperr.New(apperr.KindInvalidInput, "batch id is required"))
		return
	}

	batchID, err := uuid.Parse(idStr)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.KindInvalidInput, "invalid batch id", err))
		return
	}

	batch, err := s.repos.Batches.Get(r.Context(), batchID)
	if err != nil {
		if err == database.ErrBatchNotFound {
			writeAppError(w, apperr.Wrap(apperr.KindNotFound, "batch not found", err))
			return
		}
		writeAppError(w, apperr.Wrap(apperr.KindDatabase, "failed to fetch batch", err))
		return
	}

	writeJSON(w, http.StatusOK, batch)
}

// handleListProofs implements GET /proofs.
func (s *Server) handleListProofs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := defaultProofListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	batches, err := s.repos.Batches.List(r.Context(), limit)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.KindDatabase, "failed to list batches", err))
		return
	}

	writeJSON(w, http.StatusOK, batches)
}
