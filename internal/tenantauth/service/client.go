package service

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/obs"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/idx"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/aussiebroadwan/tenantauth/pkg/limitx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

var clients = credential[domain.Client, domain.ClientPermission]{
	collection: collection[domain.Client]{
		label:  "Client",
		of:     func(s store.Store) store.Collection[domain.Client] { return s.Clients() },
		entity: func(c *domain.Client) *domain.Entity { return &c.Entity },
	},
	registry: domain.ClientPermissions,
	perm:     func(c *domain.Client) *domain.ClientPermission { return &c.Permission },
}

// ClientService manages machine credentials. A Client's secret and refresh
// key are only readable through its Account's root key.
type ClientService struct {
	Store    store.Store
	Accounts *AccountService
	Tokens   *TokenIssuer

	// Limiter throttles Login per client id. Nil disables throttling.
	Limiter *limitx.Limiter
}

// Create stores a new Client under accountID with a fresh secret.
func (s *ClientService) Create(ctx context.Context, accountID string, in domain.ClientAttrs, caller *domain.Caller) (*domain.Client, error) {
	account, err := accounts.load(ctx, s.Store, accountID)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, s.Store, account, in, caller)
}

func (s *ClientService) create(ctx context.Context, st store.Store, account *domain.Account, in domain.ClientAttrs, caller *domain.Caller) (*domain.Client, error) {
	l := slogx.FromContext(ctx)

	if account == nil {
		return nil, domain.ValidationError("Invalid account")
	}
	if in.Name == nil {
		return nil, domain.ValidationError("Invalid name")
	}

	secret, err := cryptox.GenerateRandomKey()
	if err != nil {
		return nil, domain.CryptoError(err, "generate client secret")
	}
	enc, err := s.Accounts.Encrypt(account, secret)
	if err != nil {
		l.Error("failed to encrypt client secret", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, err
	}

	c := &domain.Client{
		Entity:     domain.Entity{ID: idx.New().String(), Enabled: true},
		Account:    account.ID,
		Permission: domain.ClientPermissions.Default(),
		Secret:     enc,
	}
	if err := s.assign(c, in, caller); err != nil {
		return nil, err
	}
	if err := clients.save(ctx, st, c); err != nil {
		l.Error("failed to create client", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, err
	}

	l.Info("client created",
		slog.String("client_id", c.ID),
		slog.String("account_id", account.ID),
		slog.String("access_permission", domain.ClientPermissions.Name(c.Permission)),
	)
	return c, nil
}

func (s *ClientService) assign(c *domain.Client, in domain.ClientAttrs, caller *domain.Caller) error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if err := clients.apply(c, in.CommonAttrs, caller, time.Now()); err != nil {
		return err
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	return nil
}

func (s *ClientService) Update(ctx context.Context, id string, in domain.ClientAttrs, caller *domain.Caller) (*domain.Client, error) {
	c, err := clients.load(ctx, s.Store, id)
	if err != nil {
		return nil, err
	}
	if err := s.assign(c, in, caller); err != nil {
		return nil, err
	}
	if err := clients.save(ctx, s.Store, c); err != nil {
		return nil, err
	}
	slogx.FromContext(ctx).Info("client updated", slog.String("client_id", c.ID))
	return c, nil
}

func (s *ClientService) Get(ctx context.Context, id string) (*domain.Client, error) {
	return clients.load(ctx, s.Store, id)
}

// GetByName finds a Client by name within an Account. Both are required.
func (s *ClientService) GetByName(ctx context.Context, name, accountID string) (*domain.Client, error) {
	name, accountID = strings.TrimSpace(name), strings.TrimSpace(accountID)
	if name == "" || accountID == "" {
		return nil, domain.AuthorizationError("Client name and account are required")
	}
	found, err := s.Store.Clients().Find(ctx,
		store.Criteria{Fields: map[string]string{"name": name, "account": accountID}},
		store.Window{Limit: 1},
	)
	if err != nil {
		return nil, clients.listError(err)
	}
	if len(found) == 0 {
		return nil, domain.NotFoundError("Client not found")
	}
	return found[0], nil
}

func (s *ClientService) Enable(ctx context.Context, id string, caller *domain.Caller) (*domain.Client, error) {
	return clients.setEnabled(ctx, s.Store, id, true, caller)
}

func (s *ClientService) Disable(ctx context.Context, id string, caller *domain.Caller) (*domain.Client, error) {
	return clients.setEnabled(ctx, s.Store, id, false, caller)
}

// ListByAccount returns every Client of an Account, disabled ones included.
func (s *ClientService) ListByAccount(ctx context.Context, accountID string) ([]domain.ClientView, error) {
	page, err := s.List(ctx, domain.ListParams{
		All:          true,
		ShowDisabled: true,
		Filters:      map[string]string{"account": accountID},
	})
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// List applies the shared listing contract and exports each Client with its
// secret decrypted.
func (s *ClientService) List(ctx context.Context, p domain.ListParams) (*domain.Page[domain.ClientView], error) {
	page, err := clients.list(ctx, s.Store, p)
	if err != nil {
		return nil, err
	}

	owners := make(map[string]*domain.Account)
	return mapPage(page, func(c *domain.Client) (domain.ClientView, error) {
		account, ok := owners[c.Account]
		if !ok {
			if account, err = accounts.load(ctx, s.Store, c.Account); err != nil {
				return domain.ClientView{}, err
			}
			owners[c.Account] = account
		}
		return s.View(c, account)
	})
}

// View exports c with its plaintext secret.
func (s *ClientService) View(c *domain.Client, account *domain.Account) (domain.ClientView, error) {
	secret, err := s.DecryptSecret(c, account)
	if err != nil {
		return domain.ClientView{}, err
	}
	return c.View(secret), nil
}

func owns(account *domain.Account, accountID string) error {
	if account == nil {
		return domain.ValidationError("Invalid account")
	}
	if account.ID != accountID {
		return domain.Forbidden("Principal does not belong to account")
	}
	return nil
}

// DecryptSecret recovers the Client secret with its own Account's key.
func (s *ClientService) DecryptSecret(c *domain.Client, account *domain.Account) (string, error) {
	if err := owns(account, c.Account); err != nil {
		return "", err
	}
	return s.Accounts.Decrypt(account, c.Secret)
}

// ValidateSecret compares candidate with the stored secret in constant time.
func (s *ClientService) ValidateSecret(c *domain.Client, account *domain.Account, candidate string) bool {
	secret, err := s.DecryptSecret(c, account)
	if err != nil || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(candidate)) == 1
}

// ValidateRefreshKey compares candidate with the stored refresh key.
func (s *ClientService) ValidateRefreshKey(c *domain.Client, account *domain.Account, candidate string) bool {
	if c.RefreshKey == "" || candidate == "" || owns(account, c.Account) != nil {
		return false
	}
	key, err := s.Accounts.Decrypt(account, c.RefreshKey)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1
}

// rotate replaces the stored refresh key and returns the new plaintext. It
// runs on st so callers can hold it inside a transaction.
func (s *ClientService) rotate(ctx context.Context, st store.Store, c *domain.Client, account *domain.Account) (string, error) {
	if err := owns(account, c.Account); err != nil {
		return "", err
	}
	key, err := cryptox.GenerateRandomKey()
	if err != nil {
		return "", domain.CryptoError(err, "generate refresh key")
	}
	enc, err := s.Accounts.Encrypt(account, key)
	if err != nil {
		return "", err
	}
	c.RefreshKey = enc
	if err := clients.save(ctx, st, c); err != nil {
		return "", err
	}
	obs.RefreshRotations.WithLabelValues(obs.PrincipalClient).Inc()
	slogx.FromContext(ctx).Info("client refresh key rotated", slog.String("client_id", c.ID))
	return key, nil
}

// RefreshToken rotates the refresh key and signs a refresh assertion for it.
// Every earlier refresh assertion of the Client stops validating.
func (s *ClientService) RefreshToken(ctx context.Context, c *domain.Client, account *domain.Account) (string, error) {
	var key string
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		cur, err := clients.load(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		if key, err = s.rotate(ctx, tx, cur, account); err != nil {
			return err
		}
		c.RefreshKey = cur.RefreshKey
		return nil
	})
	if err != nil {
		return "", err
	}
	return s.signRefresh(c, key)
}

func (s *ClientService) signRefresh(c *domain.Client, key string) (string, error) {
	return s.Tokens.Refresh(jwtx.Claims{Account: c.Account, Client: c.ID}, key, obs.PrincipalClient)
}

// Token issues an access assertion and a freshly rotated refresh assertion.
func (s *ClientService) Token(ctx context.Context, c *domain.Client, account *domain.Account) (*domain.TokenPair, error) {
	if err := owns(account, c.Account); err != nil {
		return nil, err
	}
	access, err := s.Tokens.Access(jwtx.Claims{Account: account.ID, Client: c.ID}, obs.PrincipalClient)
	if err != nil {
		return nil, err
	}
	refresh, err := s.RefreshToken(ctx, c, account)
	if err != nil {
		return nil, err
	}
	return s.Tokens.Envelope(access, refresh), nil
}

// Login exchanges a client id and secret for a token envelope.
func (s *ClientService) Login(ctx context.Context, clientID, secret string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	if s.Limiter != nil {
		if ok, retry := s.Limiter.Allow("client:" + clientID); !ok {
			l.Warn("client login throttled", slog.String("client_id", clientID), slog.Duration("retry_after", retry))
			return nil, domain.TooManyAttempts("Too many attempts, retry in %s", retry.Round(time.Second))
		}
	}

	c, err := clients.load(ctx, s.Store, clientID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.AuthorizationError("Invalid client credentials")
		}
		return nil, err
	}
	account, err := accounts.load(ctx, s.Store, c.Account)
	if err != nil {
		return nil, err
	}
	if !c.Enabled || !account.Enabled {
		l.Warn("disabled client login refused", slog.String("client_id", c.ID))
		return nil, domain.Forbidden("Client is disabled")
	}
	if !s.ValidateSecret(c, account, secret) {
		l.Warn("client secret validation failed", slog.String("client_id", c.ID))
		return nil, domain.AuthorizationError("Invalid client credentials")
	}

	if s.Limiter != nil {
		s.Limiter.Reset("client:" + clientID)
	}
	return s.Token(ctx, c, account)
}
