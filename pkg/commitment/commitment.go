// Copyright 2025 Certen Protocol
//
// Package commitment provides RFC 8785-style canonical JSON encoding and
// SHA-256 hashing, shared by anything that needs a byte representation of
// a value stable across encoder runs — signing a payload, for instance,
// must hash the same bytes it later re-derives from the same data.

package commitment

import (
	"encoding/json"
	"encoding/hex"
	"crypto/sha256"
	"sort"
)

// CanonicalizeJSON takes arbitrary JSON bytes and returns a canonical
// encoding (deterministic key order, stable formatting). This is a
// simplified RFC 8785-like approach.
func CanonicalizeJSON(raw []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	canonical := canonicalizeValue(v)
	return json.Marshal(canonical)
}

// canonicalizeValue recursively sorts map keys; arrays retain order.
func canonicalizeValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(map[string]interface{}, len(vv))
		for _, k := range keys {
			ordered[k] = canonicalizeValue(vv[k])
		}
		return ordered
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, e := range vv {
			out[i] = canonicalizeValue(e)
		}
		return out
	default:
		return vv
	}
}

// HashConcat returns SHA-256 of concatenated byte slices.
func HashConcat(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// HashBytes returns hex-encoded SHA-256 of data with a 0x prefix.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalCanonical JSON-encodes v and canonicalizes the result.
func MarshalCanonical(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return CanonicalizeJSON(raw)
}

// HashCanonical canonically encodes v and returns its SHA-256 hex hash.
func HashCanonical(v interface{}) (string, error) {
	canon, err := MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return HashBytes(canon), nil
}
