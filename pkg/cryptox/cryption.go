package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// RandomKeySize is the number of random bytes behind GenerateRandomKey and
// every CBC initialisation vector.
const RandomKeySize = 16

// scrypt cost parameters (N=2^14, r=8, p=1).
const (
	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

// Algorithm names a symmetric cipher for Encrypt/Decrypt.
type Algorithm string

const (
	AES128CBC Algorithm = "aes-128-cbc"
	AES192CBC Algorithm = "aes-192-cbc"
	AES256CBC Algorithm = "aes-256-cbc"
	AES256GCM Algorithm = "aes-256-gcm"

	// DefaultAlgorithm keeps payloads compatible with existing iv:ciphertext records.
	DefaultAlgorithm = AES256CBC
)

var (
	ErrMissingInput     = errors.New("cryptox: plaintext and secret are required")
	ErrMalformed        = errors.New("cryptox: malformed payload")
	ErrDecrypt          = errors.New("cryptox: decryption failed")
	ErrUnknownAlgorithm = errors.New("cryptox: unknown algorithm")
)

// ParseAlgorithm maps a configured cipher name onto an Algorithm. An empty
// name selects DefaultAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case "":
		return DefaultAlgorithm, nil
	case AES128CBC, AES192CBC, AES256CBC, AES256GCM:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

func (a Algorithm) keyLen() (int, error) {
	switch a {
	case AES128CBC:
		return 16, nil
	case AES192CBC:
		return 24, nil
	case AES256CBC, AES256GCM:
		return 32, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

type options struct {
	salt      []byte
	algorithm Algorithm
}

// Option tunes a single Encrypt or Decrypt call.
type Option func(*options)

// WithSalt overrides the KDF salt. Without it the secret itself is the salt.
func WithSalt(salt []byte) Option {
	return func(o *options) { o.salt = salt }
}

// WithAlgorithm selects the cipher. Empty keeps DefaultAlgorithm.
func WithAlgorithm(a Algorithm) Option {
	return func(o *options) {
		if a != "" {
			o.algorithm = a
		}
	}
}

func resolve(secret string, opts []Option) options {
	o := options{algorithm: DefaultAlgorithm}
	for _, opt := range opts {
		opt(&o)
	}
	if o.salt == nil {
		o.salt = defaultSalt(secret)
	}
	return o
}

// defaultSalt hex-decodes secrets that are hex (every generated key is), and
// falls back to the raw bytes otherwise.
func defaultSalt(secret string) []byte {
	if b, err := hex.DecodeString(secret); err == nil && len(b) > 0 {
		return b
	}
	return []byte(secret)
}

// GenerateRandomKey returns RandomKeySize bytes from crypto/rand, hex encoded.
func GenerateRandomKey() (string, error) {
	buf := make([]byte, RandomKeySize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate random key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func deriveKey(secret string, salt []byte, a Algorithm) ([]byte, error) {
	n, err := a.keyLen()
	if err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(secret), salt, scryptN, scryptR, scryptP, n)
	if err != nil {
		return nil, fmt.Errorf("cryptox: derive key: %w", err)
	}
	return key, nil
}

// Encrypt derives a key from secret and salt with scrypt, encrypts plaintext
// under a fresh random IV and returns "hex(iv):hex(ciphertext)".
func Encrypt(plaintext, secret string, opts ...Option) (string, error) {
	if plaintext == "" || secret == "" {
		return "", ErrMissingInput
	}
	o := resolve(secret, opts)

	key, err := deriveKey(secret, o.salt, o.algorithm)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cryptox: create cipher: %w", err)
	}

	var iv, sealed []byte
	if o.algorithm == AES256GCM {
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return "", fmt.Errorf("cryptox: create GCM: %w", err)
		}
		iv = make([]byte, gcm.NonceSize())
		if _, err := rand.Read(iv); err != nil {
			return "", fmt.Errorf("cryptox: generate nonce: %w", err)
		}
		sealed = gcm.Seal(nil, iv, []byte(plaintext), nil)
	} else {
		iv = make([]byte, aes.BlockSize)
		if _, err := rand.Read(iv); err != nil {
			return "", fmt.Errorf("cryptox: generate iv: %w", err)
		}
		padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
		sealed = make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(sealed, padded)
	}

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. A wrong secret surfaces as ErrDecrypt whenever the
// padding or authentication tag gives it away; it never returns partial output.
func Decrypt(payload, secret string, opts ...Option) (string, error) {
	if payload == "" || secret == "" {
		return "", ErrMissingInput
	}
	o := resolve(secret, opts)

	ivHex, ctHex, ok := strings.Cut(payload, ":")
	if !ok {
		return "", fmt.Errorf("%w: missing separator", ErrMalformed)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("%w: iv: %v", ErrMalformed, err)
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", ErrMalformed, err)
	}

	key, err := deriveKey(secret, o.salt, o.algorithm)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cryptox: create cipher: %w", err)
	}

	if o.algorithm == AES256GCM {
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return "", fmt.Errorf("cryptox: create GCM: %w", err)
		}
		if len(iv) != gcm.NonceSize() {
			return "", fmt.Errorf("%w: nonce length %d", ErrMalformed, len(iv))
		}
		plain, err := gcm.Open(nil, iv, ct, nil)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
		}
		return string(plain), nil
	}

	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: iv length %d", ErrMalformed, len(iv))
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d", ErrMalformed, len(ct))
	}
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrDecrypt)
		}
	}
	return b[:len(b)-n], nil
}
