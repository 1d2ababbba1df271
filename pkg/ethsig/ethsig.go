// Package ethsig verifies Ethereum personal_sign signatures: recover the
// signing address from a message and a 65-byte [R || S || V] signature.
package ethsig

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

const (
	messagePrefix  = "\x19Ethereum Signed Message:\n"
	signatureSize  = 65
	addressHexSize = 40
)

var (
	ErrSignature = errors.New("ethsig: malformed signature")
	ErrRecover   = errors.New("ethsig: public key recovery failed")
	ErrAddress   = errors.New("ethsig: malformed address")
)

func keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// HashMessage returns the personal_sign digest of message.
func HashMessage(message string) []byte {
	return keccak256(
		[]byte(messagePrefix+strconv.Itoa(len(message))),
		[]byte(message),
	)
}

// NormalizeAddress lowercases a 0x-prefixed 20-byte hex address.
func NormalizeAddress(address string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(address))
	if !strings.HasPrefix(a, "0x") || len(a) != 2+addressHexSize {
		return "", fmt.Errorf("%w: %q", ErrAddress, address)
	}
	if _, err := hex.DecodeString(a[2:]); err != nil {
		return "", fmt.Errorf("%w: %q", ErrAddress, address)
	}
	return a, nil
}

// AddressOf derives the lowercase address of a public key.
func AddressOf(pub *secp256k1.PublicKey) string {
	raw := pub.SerializeUncompressed()
	return "0x" + hex.EncodeToString(keccak256(raw[1:])[12:])
}

// Recover returns the lowercase address that produced signature over
// message. V may be 0/1 or 27/28.
func Recover(message, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "0x"))
	if err != nil || len(sig) != signatureSize {
		return "", ErrSignature
	}

	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", fmt.Errorf("%w: recovery id %d", ErrSignature, sig[64])
	}

	// secp256k1 compact form is [27+v || R || S] for uncompressed keys.
	compact := make([]byte, signatureSize)
	compact[0] = 27 + v
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, HashMessage(message))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecover, err)
	}
	return AddressOf(pub), nil
}

// Verify reports whether signature over message was produced by address.
// Malformed input is a failed verification, never an error.
func Verify(message, signature, address string) bool {
	want, err := NormalizeAddress(address)
	if err != nil {
		return false
	}
	got, err := Recover(message, signature)
	if err != nil {
		return false
	}
	return got == want
}

// Sign produces a 0x-prefixed personal_sign signature with V in {27, 28}.
func Sign(key *secp256k1.PrivateKey, message string) string {
	compact := ecdsa.SignCompact(key, HashMessage(message), false)

	sig := make([]byte, signatureSize)
	copy(sig, compact[1:])
	sig[64] = compact[0]
	return "0x" + hex.EncodeToString(sig)
}

// ParsePrivateKey reads a hex encoded 32-byte secp256k1 private key.
func ParsePrivateKey(s string) (*secp256k1.PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil || len(b) != secp256k1.PrivKeyBytesLen {
		return nil, errors.New("ethsig: private key must be 32 hex-encoded bytes")
	}
	return secp256k1.PrivKeyFromBytes(b), nil
}
