package cryptox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoMasterSecret = errors.New("cryptox: no master secret configured")

// MasterSource lists where a master secret may come from, in priority order.
type MasterSource struct {
	File  string // read and trimmed when set
	Value string // literal secret, usually from config or environment
	// Generate writes a fresh secret to File when File does not exist yet.
	Generate bool
}

// LoadMasterSecret resolves the master secret from src. The second return
// value reports whether the secret was generated by this call.
func LoadMasterSecret(src MasterSource) (string, bool, error) {
	if src.File != "" {
		return loadOrGenerate(src.File, src.Generate)
	}
	if v := strings.TrimSpace(src.Value); v != "" {
		return v, false, nil
	}
	return "", false, ErrNoMasterSecret
}

func loadOrGenerate(path string, generate bool) (string, bool, error) {
	path = filepath.Clean(path)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", false, fmt.Errorf("%w: %s is empty", ErrNoMasterSecret, path)
		}
		return secret, false, nil
	case !errors.Is(err, os.ErrNotExist) || !generate:
		return "", false, fmt.Errorf("cryptox: read master secret file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", false, fmt.Errorf("cryptox: create master secret dir: %w", err)
	}
	secret, err := GenerateRandomKey()
	if err != nil {
		return "", false, err
	}
	// A concurrent first start loses the O_EXCL race and reads the winner's file.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			secret, _, err := loadOrGenerate(path, false)
			return secret, false, err
		}
		return "", false, fmt.Errorf("cryptox: write master secret file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(secret + "\n"); err != nil {
		return "", false, fmt.Errorf("cryptox: write master secret file: %w", err)
	}
	return secret, true, nil
}
