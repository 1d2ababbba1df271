package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// TokenSize256 is 256 bits of token entropy.
const TokenSize256 = 32

// NonceSpace bounds GenerateNonce to [0, NonceSpace).
const NonceSpace = 1_000_000_000

// GenerateToken returns size random bytes, base64url encoded without padding.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateNonce returns a one-time nonce in [0, NonceSpace) that differs from prev.
func GenerateNonce(prev int64) (int64, error) {
	limit := big.NewInt(NonceSpace)
	for {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return 0, fmt.Errorf("cryptox: generate nonce: %w", err)
		}
		if v := n.Int64(); v != prev {
			return v, nil
		}
	}
}
