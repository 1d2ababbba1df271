package service

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/idx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

var accounts = credential[domain.Account, domain.AccountPermission]{
	collection: collection[domain.Account]{
		label:  "Account",
		of:     func(s store.Store) store.Collection[domain.Account] { return s.Accounts() },
		entity: func(a *domain.Account) *domain.Entity { return &a.Entity },
	},
	registry: domain.AccountPermissions,
	perm:     func(a *domain.Account) *domain.AccountPermission { return &a.Permission },
}

// AccountService is the credential root. Every Account holds a random root
// key encrypted under Master, and every descendant secret is encrypted under
// that root key.
type AccountService struct {
	Store  store.Store
	Master string
	Cipher cryptox.Algorithm
}

func (s *AccountService) opts() []cryptox.Option {
	return []cryptox.Option{cryptox.WithAlgorithm(s.Cipher)}
}

// Create stores a new Account with a freshly generated root key.
func (s *AccountService) Create(ctx context.Context, in domain.AccountAttrs, caller *domain.Caller) (*domain.Account, error) {
	return s.create(ctx, s.Store, in, caller)
}

func (s *AccountService) create(ctx context.Context, st store.Store, in domain.AccountAttrs, caller *domain.Caller) (*domain.Account, error) {
	l := slogx.FromContext(ctx)

	if in.Name == nil {
		return nil, domain.ValidationError("Invalid name")
	}
	a := &domain.Account{
		Entity:     domain.Entity{ID: idx.New().String(), Enabled: true},
		Permission: domain.AccountPermissions.Default(),
	}
	if err := s.ensureRootKey(a); err != nil {
		l.Error("failed to generate root key", slog.Any("error", err))
		return nil, err
	}
	if err := s.assign(a, in, caller); err != nil {
		return nil, err
	}
	if err := accounts.save(ctx, st, a); err != nil {
		l.Error("failed to create account", slog.Any("error", err))
		return nil, err
	}

	l.Info("account created",
		slog.String("account_id", a.ID),
		slog.String("account_permission", domain.AccountPermissions.Name(a.Permission)),
	)
	return a, nil
}

// ensureRootKey generates the root key once. An Account that already has
// one keeps it.
func (s *AccountService) ensureRootKey(a *domain.Account) error {
	if a.RootKey != "" {
		return nil
	}
	if s.Master == "" {
		return domain.CryptoError(cryptox.ErrNoMasterSecret, "Account root key unavailable")
	}
	key, err := cryptox.GenerateRandomKey()
	if err != nil {
		return domain.CryptoError(err, "generate root key")
	}
	enc, err := cryptox.Encrypt(key, s.Master, s.opts()...)
	if err != nil {
		return domain.CryptoError(err, "encrypt root key")
	}
	a.RootKey = enc
	return nil
}

func (s *AccountService) assign(a *domain.Account, in domain.AccountAttrs, caller *domain.Caller) error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if err := accounts.apply(a, in.CommonAttrs, caller, time.Now()); err != nil {
		return err
	}
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	return nil
}

// Update applies the whitelisted fields. The root key is never touched.
func (s *AccountService) Update(ctx context.Context, id string, in domain.AccountAttrs, caller *domain.Caller) (*domain.Account, error) {
	a, err := accounts.load(ctx, s.Store, id)
	if err != nil {
		return nil, err
	}
	if err := s.assign(a, in, caller); err != nil {
		return nil, err
	}
	if err := accounts.save(ctx, s.Store, a); err != nil {
		return nil, err
	}
	slogx.FromContext(ctx).Info("account updated", slog.String("account_id", a.ID))
	return a, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	return accounts.load(ctx, s.Store, id)
}

func (s *AccountService) Enable(ctx context.Context, id string, caller *domain.Caller) (*domain.Account, error) {
	return accounts.setEnabled(ctx, s.Store, id, true, caller)
}

func (s *AccountService) Disable(ctx context.Context, id string, caller *domain.Caller) (*domain.Account, error) {
	return accounts.setEnabled(ctx, s.Store, id, false, caller)
}

func (s *AccountService) List(ctx context.Context, p domain.ListParams) (*domain.Page[domain.AccountView], error) {
	page, err := accounts.list(ctx, s.Store, p)
	if err != nil {
		return nil, err
	}
	return mapPage(page, func(a *domain.Account) (domain.AccountView, error) { return a.View(), nil })
}

// DecryptedKey recovers the Account's root key. There is no fallback: a
// missing or undecryptable key is a CryptoError.
func (s *AccountService) DecryptedKey(a *domain.Account) (string, error) {
	if a == nil || a.RootKey == "" {
		return "", domain.CryptoError(nil, "Account root key unavailable")
	}
	key, err := cryptox.Decrypt(a.RootKey, s.Master, s.opts()...)
	if err != nil {
		return "", domain.CryptoError(err, "Account root key unavailable")
	}
	// A wrong master secret can still yield valid padding.
	if b, err := hex.DecodeString(key); err != nil || len(b) != cryptox.RandomKeySize {
		return "", domain.CryptoError(cryptox.ErrDecrypt, "Account root key unavailable")
	}
	return key, nil
}

// Encrypt protects plaintext under the Account's root key.
func (s *AccountService) Encrypt(a *domain.Account, plaintext string) (string, error) {
	key, err := s.DecryptedKey(a)
	if err != nil {
		return "", err
	}
	out, err := cryptox.Encrypt(plaintext, key, s.opts()...)
	if err != nil {
		return "", cryptoError(err, "encrypt under account key")
	}
	return out, nil
}

// Decrypt reverses Encrypt.
func (s *AccountService) Decrypt(a *domain.Account, payload string) (string, error) {
	key, err := s.DecryptedKey(a)
	if err != nil {
		return "", err
	}
	out, err := cryptox.Decrypt(payload, key, s.opts()...)
	if err != nil {
		return "", cryptoError(err, "decrypt under account key")
	}
	return out, nil
}

// cryptoError reports missing or malformed input as a ValidationError and
// every other cipher failure as a CryptoError.
func cryptoError(err error, what string) error {
	switch {
	case errors.Is(err, cryptox.ErrMissingInput):
		return domain.ValidationError("Missing data to %s", what)
	case errors.Is(err, cryptox.ErrMalformed):
		return domain.ValidationError("Malformed data to %s", what)
	default:
		return domain.CryptoError(err, "%s", what)
	}
}
