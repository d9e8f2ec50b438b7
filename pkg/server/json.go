// Copyright 2025 Certen Protocol

package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/certen/ledger-rollup/pkg/apperr"
)

var jsonLogger = log.New(log.Writer(), "[Server] ", log.LstdFlags)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		jsonLogger.Printf("error encoding response: %v", err)
	}
}

// writeAppError maps err to its apperr.Kind's HTTP status, defaulting to
// 500 for errors without a Kind, and writes the {error: "<message>"}
// shape the external interface specifies.
func writeAppError(w http.ResponseWriter, err error) {
	status := apperr.StatusCode(err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

// decodeHex32 parses a 0x-prefixed 32-byte hex string into an address.
func decodeHex32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hexutil.Decode(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, errWrongLength(32, len(b))
	}
	copy(out[:], b)
	return out, nil
}

// decodeHex64 parses a 0x-prefixed 64-byte hex string (a signature).
func decodeHex64(s string) ([]byte, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) != 64 {
		return nil, errWrongLength(64, len(b))
	}
	return b, nil
}

func encodeHex(b []byte) string {
	return hexutil.Encode(b)
}

func errWrongLength(want, got int) error {
	return apperr.New(apperr.KindInvalidInput, fmt.Sprintf("expected %d bytes, got %d", want, got))
}
