package signing

import (
	"crypto/ed25519"
	"testing"
)

func TestVerifyTransferSignature_RoundTrip(t *testing.T) {
	pub, priv, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	var from, to [AddressSize]byte
	copy(from[:], pub)
	to[0] = 0xAB

	msg := TransferMessage{
		From:      from,
		To:        to,
		Amount:    100,
		Fee:       1,
		Nonce:     0,
		PublicKey: from,
	}

	digest := HashTransferMessage(msg)
	sig := ed25519.Sign(priv, digest[:])

	if !VerifyTransferSignature(msg, sig) {
		t.Fatal("expected valid signature to verify")
	}
}

// TestVerifyTransferSignature_TamperedAmount covers scenario S8: mutating
// amount after signing must invalidate the signature.
func TestVerifyTransferSignature_TamperedAmount(t *testing.T) {
	pub, priv, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	var from, to [AddressSize]byte
	copy(from[:], pub)
	to[0] = 0xAB

	msg := TransferMessage{
		From:      from,
		To:        to,
		Amount:    100,
		Fee:       1,
		Nonce:     0,
		PublicKey: from,
	}

	digest := HashTransferMessage(msg)
	sig := ed25519.Sign(priv, digest[:])

	msg.Amount = 999
	if VerifyTransferSignature(msg, sig) {
		t.Fatal("expected tampered message to fail verification")
	}
}

func TestHashTransferMessage_BitFlipBreaksVerification(t *testing.T) {
	pub, priv, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	var from, to [AddressSize]byte
	copy(from[:], pub)

	msg := TransferMessage{From: from, To: to, Amount: 1, Fee: 0, Nonce: 0, PublicKey: from}
	digest := HashTransferMessage(msg)
	sig := ed25519.Sign(priv, digest[:])

	flipped := digest
	flipped[0] ^= 0x01
	if ed25519.Verify(ed25519.PublicKey(from[:]), flipped[:], sig) {
		t.Fatal("expected flipped digest to fail verification")
	}
}

func TestVerifyMintSignature(t *testing.T) {
	issuerPub, issuerPriv, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	var to [AddressSize]byte
	to[5] = 0x42

	msg := HashMintMessage(to, 500)
	sig := ed25519.Sign(issuerPriv, msg)

	if !VerifyMintSignature(to, 500, sig, issuerPub) {
		t.Fatal("expected mint signature to verify")
	}
	if VerifyMintSignature(to, 501, sig, issuerPub) {
		t.Fatal("expected mismatched amount to fail verification")
	}
}

func TestDecodeAddress(t *testing.T) {
	_, err := DecodeAddress("0x" + "00")
	if err == nil {
		t.Fatal("expected error for short address")
	}
}
