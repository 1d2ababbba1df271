package ethsig

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
)

// Well known Hardhat account #0.
const (
	hardhatKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	hardhatAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestAddressOf_KnownKey(t *testing.T) {
	t.Parallel()

	key, err := ParsePrivateKey(hardhatKey)
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(hardhatAddress), AddressOf(key.PubKey()))
}

func TestSignRecover(t *testing.T) {
	t.Parallel()

	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	addr := AddressOf(key.PubKey())
	msg := "I am signing my one-time nonce: 12345"

	sig := Sign(key, msg)
	require.Len(t, sig, 2+130)

	got, err := Recover(msg, sig)
	require.NoError(t, err)
	require.Equal(t, addr, got)

	require.True(t, Verify(msg, sig, strings.ToUpper(addr[:2])+strings.ToUpper(addr[2:])))
	require.False(t, Verify("I am signing my one-time nonce: 54321", sig, addr))
}

func TestRecover_ZeroOneRecoveryID(t *testing.T) {
	t.Parallel()

	key, err := ParsePrivateKey(hardhatKey)
	require.NoError(t, err)
	msg := "hello"

	sig, err := hex.DecodeString(Sign(key, msg)[2:])
	require.NoError(t, err)
	sig[64] -= 27

	got, err := Recover(msg, hex.EncodeToString(sig))
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(hardhatAddress), got)
}

func TestVerify_MalformedNeverPanics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sig  string
		addr string
	}{
		{"empty signature", "", hardhatAddress},
		{"not hex", "0xzz", hardhatAddress},
		{"short", "0x" + strings.Repeat("ab", 10), hardhatAddress},
		{"bad recovery id", "0x" + strings.Repeat("11", 64) + "05", hardhatAddress},
		{"zero signature", "0x" + strings.Repeat("00", 65), hardhatAddress},
		{"bad address", "0x" + strings.Repeat("11", 65), "0x1234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.False(t, Verify("message", tt.sig, tt.addr))
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	a, err := NormalizeAddress(" " + hardhatAddress + " ")
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(hardhatAddress), a)

	for _, bad := range []string{"", "f39Fd6e51aad88F6F4ce6aB8827279cffFb92266", "0x123", "0x" + strings.Repeat("g", 40)} {
		_, err := NormalizeAddress(bad)
		require.ErrorIs(t, err, ErrAddress, bad)
	}
}
