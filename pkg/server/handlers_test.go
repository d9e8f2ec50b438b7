// Copyright 2025 Certen Protocol

package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestServer builds a Server whose repos/executor/bus fields are left
// nil. Every test below only reaches input-validation paths that return
// before touching those fields.
func newTestServer() *Server {
	return New(nil, nil, nil, nil)
}

func TestHandleTransfer_RejectsWrongMethod(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/transaction/transfer", nil)
	rec := httptest.NewRecorder()

	s.handleTransfer(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleTransfer_RejectsMalformedBody(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/transaction/transfer", strings.NewReader("not json"))
	rec := httptest.NewRecorder()

	s.handleTransfer(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleTransfer_RejectsInvalidToAddress(t *testing.T) {
	s := newTestServer()
	body := `{"to":"not-hex","amount":10,"fee":0,"nonce":1,"signature":"0x00"}`
	req := httptest.NewRequest(http.MethodPost, "/transaction/transfer", strings.NewReader(body))
	rec := httptest.NewRecorder()

	s.handleTransfer(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleAccountCreate_RejectsMalformedBody(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/account/create", strings.NewReader("{"))
	rec := httptest.NewRecorder()

	s.handleAccountCreate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleAccountSubresource_RejectsMissingSubpath(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/account/0xdead", nil)
	rec := httptest.NewRecorder()

	s.handleAccountSubresource(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing subresource, got %d", rec.Code)
	}
}

func TestHandleAccountSubresource_RejectsUnknownSubresource(t *testing.T) {
	s := newTestServer()
	var addr [32]byte
	req := httptest.NewRequest(http.MethodGet, "/account/"+encodeHex(addr[:])+"/frobnicate", nil)
	rec := httptest.NewRecorder()

	s.handleAccountSubresource(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown subresource, got %d", rec.Code)
	}
}

func TestHandleTransactionByID_RejectsInvalidUUID(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/transactions/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	s.handleTransactionByID(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleGetProof_RejectsInvalidUUID(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/proofs/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	s.handleGetProof(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRoutes_RegistersEveryEndpoint(t *testing.T) {
	s := newTestServer()
	mux := s.Routes()
	if mux == nil {
		t.Fatal("expected a non-nil handler")
	}
}
