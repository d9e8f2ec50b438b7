// Copyright 2025 Certen Protocol

package server

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/certen/ledger-rollup/pkg/apperr"
)

func TestDecodeHex32_RoundTrips(t *testing.T) {
	var want [32]byte
	for i := range want {
		want[i] = byte(i)
	}
	got, err := decodeHex32(encodeHex(want[:]))
	if err != nil {
		t.Fatalf("decodeHex32: %v", err)
	}
	if got != want {
		t.Fatalf("roundtrip mismatch: got %x want %x", got, want)
	}
}

func TestDecodeHex32_RejectsWrongLength(t *testing.T) {
	if _, err := decodeHex32("0x0102"); err == nil {
		t.Fatal("expected error for short hex32 input")
	}
}

func TestDecodeHex64_RejectsWrongLength(t *testing.T) {
	if _, err := decodeHex64("0xdeadbeef"); err == nil {
		t.Fatal("expected error for short hex64 input")
	}
}

func TestDecodeHex32_RejectsMalformedHex(t *testing.T) {
	if _, err := decodeHex32("not-hex"); err == nil {
		t.Fatal("expected error for malformed hex input")
	}
}

func TestWriteAppError_UsesKindStatusCode(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAppError(rec, apperr.New(apperr.KindInsufficientBalance, "balance too low"))

	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "balance too low") {
		t.Fatalf("expected error message in body, got %s", rec.Body.String())
	}
}

func TestWriteAppError_DefaultsToInternalServerErrorForPlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAppError(rec, errPlain("boom"))

	if rec.Code != 500 {
		t.Fatalf("expected 500 for an error with no Kind, got %d", rec.Code)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
