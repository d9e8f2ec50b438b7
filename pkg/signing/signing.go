// Copyright 2025 Certen Protocol
//
// Package signing computes the canonical transfer/mint signing message and
// verifies Ed25519 signatures over it.
package signing

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// AddressSize is the width of an address (an Ed25519 public key).
const AddressSize = ed25519.PublicKeySize // 32

// SignatureSize is the width of an Ed25519 signature.
const SignatureSize = ed25519.SignatureSize // 64

// TransferMessage holds the fields that make up a transfer's canonical
// signing message.
type TransferMessage struct {
	From      [AddressSize]byte
	To        [AddressSize]byte
	Amount    int64
	Fee       int64
	Nonce     int64
	PublicKey [AddressSize]byte
}

// HashTransferMessage computes SHA-256(from || to || amount_le64 || fee_le64
// || nonce_le64 || public_key), the canonical signing message for a
// transfer.
func HashTransferMessage(msg TransferMessage) [32]byte {
	buf := make([]byte, 0, AddressSize*3+8*3)
	buf = append(buf, msg.From[:]...)
	buf = append(buf, msg.To[:]...)
	buf = appendInt64LE(buf, msg.Amount)
	buf = appendInt64LE(buf, msg.Fee)
	buf = appendInt64LE(buf, msg.Nonce)
	buf = append(buf, msg.PublicKey[:]...)
	return sha256.Sum256(buf)
}

// VerifyTransferSignature verifies an Ed25519 signature over the canonical
// transfer message, using the sender's address as the verifying key.
func VerifyTransferSignature(msg TransferMessage, signature []byte) bool {
	if len(signature) != SignatureSize {
		return false
	}
	digest := HashTransferMessage(msg)
	return ed25519.Verify(ed25519.PublicKey(msg.From[:]), digest[:], signature)
}

// HashMintMessage computes the canonical mint signing message:
// to_addr_hex || amount_decimal, UTF-8 bytes.
func HashMintMessage(to [AddressSize]byte, amount int64) []byte {
	msg := hex.EncodeToString(to[:]) + fmt.Sprintf("%d", amount)
	return []byte(msg)
}

// VerifyMintSignature verifies an Ed25519 signature over the canonical mint
// message against the configured issuer public key.
func VerifyMintSignature(to [AddressSize]byte, amount int64, signature []byte, issuerPubKey ed25519.PublicKey) bool {
	if len(signature) != SignatureSize || len(issuerPubKey) != AddressSize {
		return false
	}
	msg := HashMintMessage(to, amount)
	return ed25519.Verify(issuerPubKey, msg, signature)
}

// GenerateKeypair generates a fresh Ed25519 keypair, useful for tests and
// tooling.
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(nil)
}

func appendInt64LE(buf []byte, v int64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[:]...)
}

// DecodeAddress decodes a hex-encoded 32-byte address.
func DecodeAddress(s string) ([AddressSize]byte, error) {
	var out [AddressSize]byte
	raw, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return out, fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != AddressSize {
		return out, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// DecodeSignature decodes a hex-encoded 64-byte signature.
func DecodeSignature(s string) ([]byte, error) {
	raw, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	if len(raw) != SignatureSize {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(raw))
	}
	return raw, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
