package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/obs"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/ethsig"
	"github.com/aussiebroadwan/tenantauth/pkg/idx"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/aussiebroadwan/tenantauth/pkg/limitx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

var users = credential[domain.User, domain.UserPermission]{
	collection: collection[domain.User]{
		label:  "User",
		of:     func(s store.Store) store.Collection[domain.User] { return s.Users() },
		entity: func(u *domain.User) *domain.Entity { return &u.Entity },
	},
	registry: domain.UserPermissions,
	perm:     func(u *domain.User) *domain.UserPermission { return &u.Permission },
}

// UserService manages end users identified by a public address. Users log in
// by signing their current one-time nonce.
type UserService struct {
	Store    store.Store
	Accounts *AccountService
	Tokens   *TokenIssuer

	// Limiter throttles Authenticate per address. Nil disables throttling.
	Limiter *limitx.Limiter

	// EncryptRefreshKeys stores refresh keys under the Account key, the way
	// Client refresh keys are stored. Off keeps them in plaintext.
	EncryptRefreshKeys bool
}

// Create stores a new User under accountID. public_address is required and
// must not belong to any other User.
func (s *UserService) Create(ctx context.Context, accountID string, in domain.UserAttrs, caller *domain.Caller) (*domain.User, error) {
	account, err := accounts.load(ctx, s.Store, accountID)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, s.Store, account, in, caller)
}

func (s *UserService) create(ctx context.Context, st store.Store, account *domain.Account, in domain.UserAttrs, caller *domain.Caller) (*domain.User, error) {
	l := slogx.FromContext(ctx)

	if account == nil {
		return nil, domain.ValidationError("Invalid account")
	}
	if in.PublicAddress == nil || strings.TrimSpace(*in.PublicAddress) == "" {
		return nil, domain.ValidationError("Invalid public_address")
	}
	address, err := ethsig.NormalizeAddress(*in.PublicAddress)
	if err != nil {
		return nil, domain.ValidationError("Invalid public_address")
	}
	nonce, err := cryptox.GenerateNonce(-1)
	if err != nil {
		return nil, domain.CryptoError(err, "generate nonce")
	}

	u := &domain.User{
		Entity:        domain.Entity{ID: idx.New().String(), Enabled: true},
		Account:       account.ID,
		PublicAddress: address,
		Permission:    domain.UserPermissions.Default(),
		Nonce:         nonce,
	}
	if err := users.apply(u, in.CommonAttrs, caller, time.Now()); err != nil {
		return nil, err
	}
	if err := users.save(ctx, st, u); err != nil {
		l.Warn("failed to create user", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, err
	}

	l.Info("user created",
		slog.String("user_id", u.ID),
		slog.String("account_id", account.ID),
		slog.String("user_permission", domain.UserPermissions.Name(u.Permission)),
	)
	return u, nil
}

// Update applies the whitelisted fields. The public address is fixed at
// creation.
func (s *UserService) Update(ctx context.Context, id string, in domain.UserAttrs, caller *domain.Caller) (*domain.User, error) {
	u, err := users.load(ctx, s.Store, id)
	if err != nil {
		return nil, err
	}
	if err := users.apply(u, in.CommonAttrs, caller, time.Now()); err != nil {
		return nil, err
	}
	if err := users.save(ctx, s.Store, u); err != nil {
		return nil, err
	}
	slogx.FromContext(ctx).Info("user updated", slog.String("user_id", u.ID))
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return users.load(ctx, s.Store, id)
}

// GetByPublicAddress looks a User up by address, case-insensitively.
func (s *UserService) GetByPublicAddress(ctx context.Context, address string) (*domain.User, error) {
	return s.byAddress(ctx, s.Store, address)
}

func (s *UserService) byAddress(ctx context.Context, st store.Store, address string) (*domain.User, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return nil, domain.ValidationError("Invalid public_address")
	}
	u, err := st.Users().GetByPublicAddress(ctx, address)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFoundError("User not found")
		}
		return nil, domain.PersistenceError(err, "load user")
	}
	return u, nil
}

// GetByAccount returns every User of an Account, disabled ones included.
func (s *UserService) GetByAccount(ctx context.Context, accountID string) ([]domain.UserView, error) {
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

func (s *UserService) List(ctx context.Context, p domain.ListParams) (*domain.Page[domain.UserView], error) {
	page, err := users.list(ctx, s.Store, p)
	if err != nil {
		return nil, err
	}
	return mapPage(page, func(u *domain.User) (domain.UserView, error) { return u.View(), nil })
}

func (s *UserService) Enable(ctx context.Context, id string, caller *domain.Caller) (*domain.User, error) {
	return users.setEnabled(ctx, s.Store, id, true, caller)
}

func (s *UserService) Disable(ctx context.Context, id string, caller *domain.Caller) (*domain.User, error) {
	return users.setEnabled(ctx, s.Store, id, false, caller)
}

// Challenge returns the message the User behind address has to sign.
func (s *UserService) Challenge(ctx context.Context, address string) (string, error) {
	u, err := s.GetByPublicAddress(ctx, address)
	if err != nil {
		return "", err
	}
	return domain.NonceMessage(u.Nonce), nil
}

// ValidateSignature reports whether signature is the User's signature over
// its current nonce message. Malformed signatures are simply invalid.
func (s *UserService) ValidateSignature(u *domain.User, signature string) bool {
	ok := ethsig.Verify(domain.NonceMessage(u.Nonce), signature, u.PublicAddress)
	if ok {
		obs.SignatureChecks.WithLabelValues(obs.ResultValid).Inc()
	} else {
		obs.SignatureChecks.WithLabelValues(obs.ResultInvalid).Inc()
	}
	return ok
}

// GenerateNewNonce replaces the User's nonce. A signature over the old nonce
// stops validating.
func (s *UserService) GenerateNewNonce(ctx context.Context, u *domain.User) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		cur, err := users.load(ctx, tx, u.ID)
		if err != nil {
			return err
		}
		if err := s.rotateNonce(ctx, tx, cur); err != nil {
			return err
		}
		u.Nonce = cur.Nonce
		return nil
	})
}

func (s *UserService) rotateNonce(ctx context.Context, st store.Store, u *domain.User) error {
	nonce, err := cryptox.GenerateNonce(u.Nonce)
	if err != nil {
		return domain.CryptoError(err, "generate nonce")
	}
	u.Nonce = nonce
	return users.save(ctx, st, u)
}

// RefreshToken rotates the refresh key and signs a refresh assertion naming
// the User and, when given, the Client it was issued through. account is
// only consulted when refresh keys are encrypted.
func (s *UserService) RefreshToken(ctx context.Context, u *domain.User, account *domain.Account, client string) (string, error) {
	return s.refresh(ctx, u, account, jwtx.Claims{Account: u.Account, User: u.ID, Client: client})
}

func (s *UserService) refresh(ctx context.Context, u *domain.User, account *domain.Account, subject jwtx.Claims) (string, error) {
	var key string
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		cur, err := users.load(ctx, tx, u.ID)
		if err != nil {
			return err
		}
		if key, err = s.rotate(ctx, tx, cur, account); err != nil {
			return err
		}
		u.RefreshKey = cur.RefreshKey
		return nil
	})
	if err != nil {
		return "", err
	}
	return s.signRefresh(subject, key)
}

func (s *UserService) signRefresh(subject jwtx.Claims, key string) (string, error) {
	return s.Tokens.Refresh(subject, key, obs.PrincipalUser)
}

func (s *UserService) rotate(ctx context.Context, st store.Store, u *domain.User, account *domain.Account) (string, error) {
	key, err := cryptox.GenerateRandomKey()
	if err != nil {
		return "", domain.CryptoError(err, "generate refresh key")
	}
	stored := key
	if s.EncryptRefreshKeys {
		if err := owns(account, u.Account); err != nil {
			return "", err
		}
		if stored, err = s.Accounts.Encrypt(account, key); err != nil {
			return "", err
		}
	}
	u.RefreshKey = stored
	if err := users.save(ctx, st, u); err != nil {
		return "", err
	}
	obs.RefreshRotations.WithLabelValues(obs.PrincipalUser).Inc()
	slogx.FromContext(ctx).Info("user refresh key rotated", slog.String("user_id", u.ID))
	return key, nil
}

// ValidateRefreshKey compares candidate with the stored refresh key.
func (s *UserService) ValidateRefreshKey(u *domain.User, account *domain.Account, candidate string) bool {
	if u.RefreshKey == "" || candidate == "" {
		return false
	}
	key := u.RefreshKey
	if s.EncryptRefreshKeys {
		if owns(account, u.Account) != nil {
			return false
		}
		var err error
		if key, err = s.Accounts.Decrypt(account, u.RefreshKey); err != nil {
			return false
		}
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1
}

// Token issues an access assertion carrying extra claims plus a freshly
// rotated refresh assertion. An "origin" entry in extra pins the access
// assertion to that origin.
func (s *UserService) Token(ctx context.Context, u *domain.User, account *domain.Account, client string, extra map[string]any) (*domain.TokenPair, error) {
	if err := owns(account, u.Account); err != nil {
		return nil, err
	}

	subject := jwtx.Claims{Account: account.ID, User: u.ID, Client: client}
	if len(extra) > 0 {
		subject.Extra = maps.Clone(extra)
		if origin, ok := subject.Extra["origin"].(string); ok {
			subject.Origin = origin
			delete(subject.Extra, "origin")
		}
	}

	access, err := s.Tokens.Access(subject, obs.PrincipalUser)
	if err != nil {
		return nil, err
	}
	refresh, err := s.refresh(ctx, u, account, subject)
	if err != nil {
		return nil, err
	}
	return s.Tokens.Envelope(access, refresh), nil
}

// ValidationToken issues the long-lived verification assertion and parks
// the User as disabled until an update enables it again.
func (s *UserService) ValidationToken(ctx context.Context, u *domain.User, caller *domain.Caller) (string, error) {
	token, err := s.Tokens.Validation(u.ID)
	if err != nil {
		return "", err
	}
	disabled := false
	if err := users.apply(u, domain.CommonAttrs{Enabled: &disabled}, caller, time.Now()); err != nil {
		return "", err
	}
	if err := users.save(ctx, s.Store, u); err != nil {
		return "", err
	}
	slogx.FromContext(ctx).Info("user pending verification", slog.String("user_id", u.ID))
	return token, nil
}

// Encrypt protects data under the User's Account key.
func (s *UserService) Encrypt(ctx context.Context, u *domain.User, data string) (string, error) {
	account, err := accounts.load(ctx, s.Store, u.Account)
	if err != nil {
		return "", err
	}
	return s.Accounts.Encrypt(account, data)
}

func (s *UserService) Decrypt(ctx context.Context, u *domain.User, data string) (string, error) {
	account, err := accounts.load(ctx, s.Store, u.Account)
	if err != nil {
		return "", err
	}
	return s.Accounts.Decrypt(account, data)
}

// Authenticate runs the signature login: the signature must cover the
// User's current nonce, and the nonce rotates in the same transaction so the
// signature cannot be replayed.
func (s *UserService) Authenticate(ctx context.Context, address, signature string, extra map[string]any) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	address = strings.ToLower(strings.TrimSpace(address))

	if s.Limiter != nil {
		if ok, retry := s.Limiter.Allow("user:" + address); !ok {
			l.Warn("user login throttled", slog.String("public_address", address), slog.Duration("retry_after", retry))
			return nil, domain.TooManyAttempts("Too many attempts, retry in %s", retry.Round(time.Second))
		}
	}

	u, err := s.byAddress(ctx, s.Store, address)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.AuthorizationError("Invalid signature")
		}
		return nil, err
	}
	account, err := accounts.load(ctx, s.Store, u.Account)
	if err != nil {
		return nil, err
	}
	if !u.Enabled || !account.Enabled {
		l.Warn("disabled user login refused", slog.String("user_id", u.ID))
		return nil, domain.Forbidden("User is disabled")
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		cur, err := users.load(ctx, tx, u.ID)
		if err != nil {
			return err
		}
		if !s.ValidateSignature(cur, signature) {
			return domain.AuthorizationError("Invalid signature")
		}
		if err := s.rotateNonce(ctx, tx, cur); err != nil {
			return err
		}
		u = cur
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAuthorization) {
			l.Warn("signature validation failed", slog.String("user_id", u.ID))
		}
		return nil, err
	}

	if s.Limiter != nil {
		s.Limiter.Reset("user:" + address)
	}
	l.Info("user authenticated", slog.String("user_id", u.ID), slog.String("account_id", account.ID))
	return s.Token(ctx, u, account, "", extra)
}
