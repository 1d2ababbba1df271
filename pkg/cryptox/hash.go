package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	hashLength  = 32
	saltLength  = 16
)

// Bounds on parameters read back from a stored hash.
const (
	maxMemory      = 256 * 1024 // KiB
	maxIterations  = 16
	maxParallelism = 16
	minHashLength  = 16
	maxHashLength  = 64
)

var ErrHashFormat = errors.New("cryptox: invalid hash format")

// Hash returns a PHC-format Argon2id hash of value with a random salt.
func Hash(value string) (string, error) {
	if value == "" {
		return "", ErrMissingInput
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	sum := argon2.IDKey([]byte(value), salt, iterations, memory, parallelism, hashLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Validate reports whether value matches a hash produced by Hash. Malformed
// hashes never match.
func Validate(value, encoded string) bool {
	ok, err := compareHash(value, encoded)
	return err == nil && ok
}

func compareHash(value, encoded string) (bool, error) {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", salt, hash]
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrHashFormat
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return false, fmt.Errorf("%w: wrong version", ErrHashFormat)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return false, fmt.Errorf("%w: %v", ErrHashFormat, err)
	}
	if iters < 1 || iters > maxIterations || par < 1 || par > maxParallelism ||
		mem < 8*uint32(par) || mem > maxMemory {
		return false, fmt.Errorf("%w: parameters out of range", ErrHashFormat)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrHashFormat, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) < minHashLength || len(want) > maxHashLength {
		return false, fmt.Errorf("%w: digest", ErrHashFormat)
	}

	got := argon2.IDKey([]byte(value), salt, iters, mem, par, uint32(len(want))) // #nosec G115
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
