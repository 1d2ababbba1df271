package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/service"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

// DevMasterFile is the generated master secret used by dev setups.
const DevMasterFile = "master.key"

// InitMasterSecret resolves the process master secret. In dev, with nothing
// configured, a secret is generated once into master.key beside the database.
func InitMasterSecret(cfg *Config, logger *slog.Logger) (string, error) {
	src := cryptox.MasterSource{
		File:  cfg.Security.MasterSecretFile,
		Value: cfg.Security.MasterSecret,
	}
	if cfg.IsDev() && src.File == "" && src.Value == "" {
		src.File = filepath.Join(filepath.Dir(cfg.Database.File), DevMasterFile)
		src.Generate = true
	}

	secret, generated, err := cryptox.LoadMasterSecret(src)
	if err != nil {
		return "", fmt.Errorf("failed to load master secret: %w", err)
	}
	if len(secret) < jwtx.MinSecretLength {
		return "", fmt.Errorf("master secret must be at least %d characters", jwtx.MinSecretLength)
	}

	if generated {
		logger.Warn("generated a development master secret; do not use it outside dev", "path", src.File)
	} else if src.File != "" {
		logger.Debug("master secret loaded", "path", src.File)
	}
	return secret, nil
}

// InitTokenIssuer builds the HS256 issuer. Assertions are signed with the
// master secret.
func InitTokenIssuer(cfg *Config, master string) (*service.TokenIssuer, error) {
	signer, err := jwtx.NewSignerHS256([]byte(master))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signer: %w", err)
	}
	return &service.TokenIssuer{
		Signer:        signer,
		Verifier:      jwtx.NewVerifierHS256([]byte(master), jwtx.VerifyOptions{Issuer: cfg.Tokens.Issuer}),
		Issuer:        cfg.Tokens.Issuer,
		AccessTTL:     cfg.Tokens.AccessTTL,
		ValidationTTL: cfg.Tokens.ValidationTTL,
		APIServer:     cfg.Servers.API,
		AuthServer:    cfg.Servers.Auth,
	}, nil
}
