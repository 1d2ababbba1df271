package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

var (
	ErrBootstrapAlready      = domain.Conflict("System already bootstrapped")
	ErrBootstrapUnauthorized = domain.AuthorizationError("Unauthorized bootstrap attempt")
)

// BootstrapData names the first Account and Client.
type BootstrapData struct {
	AccountName string
	ClientName  string
}

// BootstrapResult is what the operator needs to start working: the root
// Account and a READWRITE Client with its plaintext secret.
type BootstrapResult struct {
	Account domain.AccountView `json:"account"`
	Client  domain.ClientView  `json:"client"`
}

type BootstrapService struct {
	Store    store.Store
	Accounts *AccountService
	Clients  *ClientService
	Token    string // pre-configured bootstrap token
	// TokenHash is an Argon2id digest of the token. It wins over Token so
	// the plaintext never has to sit in configuration.
	TokenHash string
}

func (s *BootstrapService) authorized(token string) bool {
	switch {
	case s.TokenHash != "":
		return cryptox.Validate(token, s.TokenHash)
	case s.Token != "":
		return subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) == 1
	default:
		return false
	}
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Accounts().IsEmpty(ctx)
	if err != nil {
		return false, domain.PersistenceError(err, "check accounts")
	}
	return !empty, nil
}

// Bootstrap creates a SUPERADMIN Account and a READWRITE Client under it.
// It only runs once, and only with the configured token.
func (s *BootstrapService) Bootstrap(ctx context.Context, token string, req BootstrapData) (*BootstrapResult, error) {
	l := slogx.FromContext(ctx)

	if !s.authorized(token) {
		l.Warn("unauthorized bootstrap attempt")
		return nil, ErrBootstrapUnauthorized
	}
	if req.AccountName == "" {
		req.AccountName = "root"
	}
	if req.ClientName == "" {
		req.ClientName = "root"
	}

	var (
		account *domain.Account
		client  *domain.Client
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		empty, err := tx.Accounts().IsEmpty(ctx)
		if err != nil {
			return domain.PersistenceError(err, "check accounts")
		}
		if !empty {
			return ErrBootstrapAlready
		}

		account, err = s.Accounts.create(ctx, tx, domain.AccountAttrs{
			Name:        &req.AccountName,
			CommonAttrs: domain.CommonAttrs{Permission: domain.Ptr("SUPERADMIN")},
		}, nil)
		if err != nil {
			return err
		}

		client, err = s.Clients.create(ctx, tx, account, domain.ClientAttrs{
			Name:        &req.ClientName,
			CommonAttrs: domain.CommonAttrs{Permission: domain.Ptr("READWRITE")},
		}, nil)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrBootstrapAlready) {
			l.Warn("attempted bootstrap on already-bootstrapped system")
		} else {
			l.Error("bootstrap failed", slog.Any("error", err))
		}
		return nil, err
	}

	view, err := s.Clients.View(client, account)
	if err != nil {
		return nil, err
	}
	l.Info("system bootstrapped",
		slog.String("account_id", account.ID),
		slog.String("client_id", client.ID),
	)
	return &BootstrapResult{Account: account.View(), Client: view}, nil
}
