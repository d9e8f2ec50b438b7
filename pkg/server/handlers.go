// Copyright 2025 Certen Protocol

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/certen/ledger-rollup/pkg/apperr"
	"github.com/certen/ledger-rollup/pkg/database"
	"github.com/certen/ledger-rollup/pkg/ledger"
)

const defaultTransactionListLimit = 100

// transferRequest is the wire shape of POST /transaction/transfer.
type transferRequest struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	Amount    int64  `json:"amount"`
	Fee       int64  `json:"fee"`
	Nonce     int64  `json:"nonce"`
	Signature string `json:"signature"`
}

type transferResponse struct {
	TxID   uuid.UUID                  `json:"tx_id"`
	Status database.TransactionStatus `json:"status"`
}

// handleTransfer implements POST /transaction/transfer.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppError(w, apperr.Wrap(apperr.KindInvalidInput, "malformed request body", err))
		return
	}

	to, err := decodeHex32(req.To)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.KindInvalidInput, "invalid to address", err))
		return
	}
	signature, err := decodeHex64(req.Signature)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.KindInvalidInput, "invalid signature", err))
		return
	}

	var from *[32]byte
	if req.From != "" {
		addr, err := decodeHex32(req.From)
		if err != nil {
			writeAppError(w, apperr.Wrap(apperr.KindInvalidInput, "invalid from address", err))
			return
		}
		from = &addr
	}

	result, err := s.executor.ExecuteTransfer(r.Context(), ledger.TransferRequest{
		From:      from,
		To:        to,
		Amount:    req.Amount,
		Fee:       req.Fee,
		Nonce:     req.Nonce,
		Signature: signature,
	})
	if err != nil {
		writeAppError(w, s.mapAccountNotFound(err))
		return
	}

	writeJSON(w, http.StatusOK, transferResponse{TxID: result.TxID, Status: result.Status})
}

// mapAccountNotFound promotes a sender-account lookup miss to NotFound,
// since ledger.Executor surfaces it as the database package's own
// sentinel rather than an apperr.Error.
func (s *Server) mapAccountNotFound(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	if err == database.ErrAccountNotFound {
		return apperr.Wrap(apperr.KindNotFound, "sender account not found", err)
	}
	return apperr.Wrap(apperr.KindDatabase, "failed to execute transfer", err)
}

// accountCreateRequest is the wire shape of POST /account/create.
type accountCreateRequest struct {
	PublicKey string `json:"public_key"`
}

type accountResponse struct {
	Address        string `json:"address"`
	Balance        int64  `json:"balance"`
	PendingBalance int64  `json:"pending_balance"`
	Nonce          int64  `json:"nonce"`
}

// handleAccountCreate implements POST /account/create. The account's
// address is its public key: there is no separate address-derivation
// step in this system.
func (s *Server) handleAccountCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req accountCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppError(w, apperr.Wrap(apperr.KindInvalidInput, "malformed request body", err))
		return
	}

	address, err := decodeHex32(req.PublicKey)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.KindInvalidInput, "invalid public key", err))
		return
	}

	acc, err := s.repos.Accounts.Create(r.Context(), address)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.KindDatabase, "failed to create account", err))
		return
	}

	writeJSON(w, http.StatusOK, accountToResponse(acc))
}

func accountToResponse(acc *database.Account) accountResponse {
	return accountResponse{
		Address:        encodeHex(acc.Address[:]),
		Balance:        acc.Balance,
		PendingBalance: acc.PendingBalance,
		Nonce:          acc.Nonce,
	}
}

// handleAccountSubresource dispatches GET /account/{address}/balance and
// GET /account/{address}/transactions, the two account-scoped read
// endpoints sharing the /account/ path prefix.
func (s *Server) handleAccountSubresource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/account/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		writeAppError(w, apperr.New(apperr.KindInvalidInput, "expected /account/{address}/balance or /transactions"))
		return
	}

	address, err := decodeHex32(parts[0])
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.KindInvalidInput, "invalid address", err))
		return
	}

	switch parts[1] {
	case "balance":
		s.handleAccountBalance(w, r, address)
	case "transactions":
		s.handleAccountTransactions(w, r, address)
	default:
		writeAppError(w, apperr.New(apperr.KindNotFound, "unknown account subresource"))
	}
}

type balanceResponse struct {
	Balance        int64 `json:"balance"`
	PendingBalance int64 `json:"pending_balance"`
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request, address [32]byte) {
	acc, err := s.repos.Accounts.Get(r.Context(), address)
	if err != nil {
		writeAppError(w, s.mapAccountNotFound(err))
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: acc.Balance, PendingBalance: acc.PendingBalance})
}

func (s *Server) handleAccountTransactions(w http.ResponseWriter, r *http.Request, address [32]byte) {
	limit := defaultTransactionListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	txs, err := s.repos.Transactions.ListByAddress(r.Context(), address, limit)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.KindDatabase, "failed to list transactions", err))
		return
	}

	writeJSON(w, http.StatusOK, txs)
}

// handleTransactionByID implements GET /transactions/{tx_id}.
func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/transactions/")
	txID, err := uuid.Parse(idStr)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.KindInvalidInput, "invalid transaction id", err))
		return
	}

	txn, err := s.repos.Transactions.Get(r.Context(), txID)
	if err != nil {
		if err == database.ErrTransactionNotFound {
			writeAppError(w, apperr.Wrap(apperr.KindNotFound, "transaction not found", err))
			return
		}
		writeAppError(w, apperr.Wrap(apperr.KindDatabase, "failed to fetch transaction", err))
		return
	}

	writeJSON(w, http.StatusOK, txn)
}
