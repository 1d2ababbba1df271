package cryptox

import (
	"encoding/hex"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateRandomKey(t *testing.T) {
	t.Parallel()

	a, err := GenerateRandomKey()
	require.NoError(t, err)
	b, err := GenerateRandomKey()
	require.NoError(t, err)

	require.Len(t, a, RandomKeySize*2)
	require.NotEqual(t, a, b)
	_, err = hex.DecodeString(a)
	require.NoError(t, err)
}

func TestEncryptDecrypt(t *testing.T) {
	t.Parallel()

	secret, err := GenerateRandomKey()
	require.NoError(t, err)

	for _, alg := range []Algorithm{AES256CBC, AES192CBC, AES128CBC, AES256GCM} {
		t.Run(string(alg), func(t *testing.T) {
			t.Parallel()

			payload, err := Encrypt("client-secret-value", secret, WithAlgorithm(alg))
			require.NoError(t, err)

			iv, ct, ok := strings.Cut(payload, ":")
			require.True(t, ok)
			_, err = hex.DecodeString(iv)
			require.NoError(t, err)
			_, err = hex.DecodeString(ct)
			require.NoError(t, err)

			plain, err := Decrypt(payload, secret, WithAlgorithm(alg))
			require.NoError(t, err)
			require.Equal(t, "client-secret-value", plain)
		})
	}
}

func TestEncrypt_DefaultIsCBCWithSixteenByteIV(t *testing.T) {
	t.Parallel()

	payload, err := Encrypt("x", "0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	iv, ct, _ := strings.Cut(payload, ":")
	require.Len(t, iv, 32)
	require.Len(t, ct, 32, "one padded block")
}

func TestEncrypt_RandomIV(t *testing.T) {
	t.Parallel()

	a, err := Encrypt("same", "secret")
	require.NoError(t, err)
	b, err := Encrypt("same", "secret")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestEncrypt_MissingInput(t *testing.T) {
	t.Parallel()

	_, err := Encrypt("", "secret")
	require.ErrorIs(t, err, ErrMissingInput)
	_, err = Encrypt("value", "")
	require.ErrorIs(t, err, ErrMissingInput)
	_, err = Decrypt("", "secret")
	require.ErrorIs(t, err, ErrMissingInput)
}

func TestDecrypt_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{"no separator", "abcdef"},
		{"bad iv hex", "zz:00112233445566778899aabbccddeeff"},
		{"bad ciphertext hex", "00112233445566778899aabbccddeeff:zz"},
		{"short iv", "0011:00112233445566778899aabbccddeeff"},
		{"partial block", "00112233445566778899aabbccddeeff:0011"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decrypt(tt.payload, "secret")
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecrypt_WrongSecret(t *testing.T) {
	t.Parallel()

	payload, err := Encrypt("value", "right", WithAlgorithm(AES256GCM))
	require.NoError(t, err)

	_, err = Decrypt(payload, "wrong", WithAlgorithm(AES256GCM))
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestDecrypt_SaltMustMatch(t *testing.T) {
	t.Parallel()

	payload, err := Encrypt("value", "secret", WithSalt([]byte("pepper")), WithAlgorithm(AES256GCM))
	require.NoError(t, err)

	_, err = Decrypt(payload, "secret", WithAlgorithm(AES256GCM))
	require.Error(t, err)

	plain, err := Decrypt(payload, "secret", WithSalt([]byte("pepper")), WithAlgorithm(AES256GCM))
	require.NoError(t, err)
	require.Equal(t, "value", plain)
}

func TestParseAlgorithm(t *testing.T) {
	t.Parallel()

	a, err := ParseAlgorithm("")
	require.NoError(t, err)
	require.Equal(t, DefaultAlgorithm, a)

	a, err = ParseAlgorithm(" AES-256-GCM ")
	require.NoError(t, err)
	require.Equal(t, AES256GCM, a)

	_, err = ParseAlgorithm("des")
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestHashValidate(t *testing.T) {
	t.Parallel()

	h, err := Hash("hunter2")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(h, "$argon2id$v=19$"))

	require.True(t, Validate("hunter2", h))
	require.False(t, Validate("hunter3", h))
	require.False(t, Validate("hunter2", "not-a-hash"))

	h2, err := Hash("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, h, h2, "salts differ")

	_, err = Hash("")
	require.ErrorIs(t, err, ErrMissingInput)
}

func TestValidate_RejectsOutOfRangeParameters(t *testing.T) {
	t.Parallel()

	h, err := Hash("hunter2")
	require.NoError(t, err)
	parts := strings.Split(h, "$")
	salt, sum := parts[4], parts[5]

	cases := []struct {
		name   string
		params string
		digest string
	}{
		{"zero iterations", "m=1024,t=0,p=1", sum},
		{"zero parallelism", "m=1024,t=1,p=0", sum},
		{"memory below lanes", "m=4,t=1,p=1", sum},
		{"huge memory", "m=4294967295,t=1,p=1", sum},
		{"too many iterations", "m=1024,t=4294967295,p=1", sum},
		{"short digest", "m=1024,t=1,p=1", "AAAA"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := "$argon2id$v=19$" + tc.params + "$" + salt + "$" + tc.digest
			require.NotPanics(t, func() {
				require.False(t, Validate("hunter2", encoded))
			})
			_, err := compareHash("hunter2", encoded)
			require.ErrorIs(t, err, ErrHashFormat)
		})
	}
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43)
	require.NotContains(t, tok, "=")

	_, err = GenerateToken(0)
	require.Error(t, err)
}

func TestGenerateNonce(t *testing.T) {
	t.Parallel()

	prev := int64(-1)
	for range 50 {
		n, err := GenerateNonce(prev)
		require.NoError(t, err)
		require.NotEqual(t, prev, n)
		require.GreaterOrEqual(t, n, int64(0))
		require.Less(t, n, int64(NonceSpace))
		prev = n
	}
}

func TestLoadMasterSecret(t *testing.T) {
	t.Parallel()

	t.Run("value", func(t *testing.T) {
		s, eph, err := LoadMasterSecret(MasterSource{Value: " abc "})
		require.NoError(t, err)
		require.False(t, eph)
		require.Equal(t, "abc", s)
	})

	t.Run("file wins", func(t *testing.T) {
		path := t.TempDir() + "/master"
		require.NoError(t, writeFile(path, "from-file\n"))
		s, _, err := LoadMasterSecret(MasterSource{File: path, Value: "ignored"})
		require.NoError(t, err)
		require.Equal(t, "from-file", s)
	})

	t.Run("missing fails closed", func(t *testing.T) {
		_, _, err := LoadMasterSecret(MasterSource{})
		require.ErrorIs(t, err, ErrNoMasterSecret)
	})

	t.Run("missing file fails without generate", func(t *testing.T) {
		_, _, err := LoadMasterSecret(MasterSource{File: t.TempDir() + "/absent"})
		require.Error(t, err)
	})

	t.Run("generate once", func(t *testing.T) {
		path := t.TempDir() + "/keys/master"
		first, generated, err := LoadMasterSecret(MasterSource{File: path, Generate: true})
		require.NoError(t, err)
		require.True(t, generated)
		require.Len(t, first, RandomKeySize*2)

		second, generated, err := LoadMasterSecret(MasterSource{File: path, Generate: true})
		require.NoError(t, err)
		require.False(t, generated)
		require.Equal(t, first, second)
	})
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
