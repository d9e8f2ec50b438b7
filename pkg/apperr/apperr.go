// Copyright 2025 Certen Protocol
//
// Package apperr enumerates the error kinds surfaced by the ledger rollup
// and maps them to HTTP status codes, mirroring how the database package
// uses sentinel errors and how the server package maps them to responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the error kinds enumerated in the error handling design.
type Kind string

const (
	KindInvalidInput         Kind = "InvalidInput"
	KindNotFound             Kind = "NotFound"
	KindInvalidNonce         Kind = "InvalidNonce"
	KindInvalidSignature     Kind = "InvalidSignature"
	KindInsufficientBalance  Kind = "InsufficientBalance"
	KindDatabase             Kind = "Database"
	KindWebSocket            Kind = "WebSocket"
	KindSubmission           Kind = "Submission"
	KindBlockMissing         Kind = "BlockMissing"
	KindFinalityTimeout      Kind = "Finality.Timeout"
	KindDASVerification      Kind = "DAS.Verification"
	KindDASLightClient       Kind = "DAS.LightClient"
)

var statusByKind = map[Kind]int{
	KindInvalidInput:        http.StatusBadRequest,
	KindNotFound:            http.StatusNotFound,
	KindInvalidNonce:        http.StatusBadRequest,
	KindInvalidSignature:    http.StatusUnauthorized,
	KindInsufficientBalance: http.StatusBadRequest,
	KindDatabase:            http.StatusInternalServerError,
	KindWebSocket:           http.StatusInternalServerError,
	KindSubmission:          http.StatusBadGateway,
	KindBlockMissing:        http.StatusNotFound,
	KindFinalityTimeout:     http.StatusGatewayTimeout,
	KindDASVerification:     http.StatusBadGateway,
	KindDASLightClient:      http.StatusInternalServerError,
}

// Error is a typed application error carrying an error Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code for this error's kind.
func (e *Error) StatusCode() int {
	if code, ok := statusByKind[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// New creates a new Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new Error of the given kind wrapping an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// As extracts an *Error from err, if present.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status code for err, defaulting to 500 if err
// is not an *Error.
func StatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode()
	}
	return http.StatusInternalServerError
}
