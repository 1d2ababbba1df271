package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/obs"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// SessionService turns signed assertions back into principals.
type SessionService struct {
	Store   store.Store
	Clients *ClientService
	Users   *UserService
	Tokens  *TokenIssuer
}

// principal loads a record named by a verified assertion. A record that has
// gone away is an authorization failure, not a lookup failure.
func principal[T any](ctx context.Context, st store.Store, c collection[T], id string) (*T, error) {
	e, err := c.load(ctx, st, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
			return nil, domain.AuthorizationError("Invalid token")
		}
		return nil, err
	}
	return e, nil
}

// Refresh exchanges a refresh assertion for a new envelope. The stored
// refresh key is checked and rotated in one transaction, so a refresh
// assertion can be spent once.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Tokens.Verify(refreshToken, jwtx.UseRefresh)
	if err != nil {
		return nil, err
	}
	account, err := principal(ctx, s.Store, accounts.collection, claims.Account)
	if err != nil {
		return nil, err
	}
	if !account.Enabled {
		return nil, domain.Forbidden("Account is disabled")
	}

	switch {
	case claims.User != "":
		var (
			u   *domain.User
			key string
		)
		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			if u, err = principal(ctx, tx, users.collection, claims.User); err != nil {
				return err
			}
			if u.Account != account.ID {
				return domain.AuthorizationError("Invalid token")
			}
			if !u.Enabled {
				return domain.Forbidden("User is disabled")
			}
			if !s.Users.ValidateRefreshKey(u, account, claims.RefreshKey) {
				return domain.AuthorizationError("Invalid refresh token")
			}
			key, err = s.Users.rotate(ctx, tx, u, account)
			return err
		})
		if err != nil {
			l.Warn("user refresh refused", slog.String("user_id", claims.User), slog.Any("error", err))
			return nil, err
		}
		subject := jwtx.Claims{
			Account: account.ID,
			User:    u.ID,
			Client:  claims.Client,
			Origin:  claims.Origin,
			Extra:   claims.Extra,
		}
		access, err := s.Tokens.Access(subject, obs.PrincipalUser)
		if err != nil {
			return nil, err
		}
		refresh, err := s.Users.signRefresh(subject, key)
		if err != nil {
			return nil, err
		}
		return s.Tokens.Envelope(access, refresh), nil

	case claims.Client != "":
		var (
			c   *domain.Client
			key string
		)
		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			if c, err = principal(ctx, tx, clients.collection, claims.Client); err != nil {
				return err
			}
			if c.Account != account.ID {
				return domain.AuthorizationError("Invalid token")
			}
			if !c.Enabled {
				return domain.Forbidden("Client is disabled")
			}
			if !s.Clients.ValidateRefreshKey(c, account, claims.RefreshKey) {
				return domain.AuthorizationError("Invalid refresh token")
			}
			key, err = s.Clients.rotate(ctx, tx, c, account)
			return err
		})
		if err != nil {
			l.Warn("client refresh refused", slog.String("client_id", claims.Client), slog.Any("error", err))
			return nil, err
		}
		access, err := s.Tokens.Access(jwtx.Claims{Account: account.ID, Client: c.ID}, obs.PrincipalClient)
		if err != nil {
			return nil, err
		}
		refresh, err := s.Clients.signRefresh(c, key)
		if err != nil {
			return nil, err
		}
		return s.Tokens.Envelope(access, refresh), nil

	default:
		return nil, domain.AuthorizationError("Invalid token")
	}
}

// Authorize resolves the principals named by an access assertion. origin is
// the origin the request came from; an assertion pinned to another origin is
// refused.
func (s *SessionService) Authorize(ctx context.Context, accessToken, origin string) (*domain.Caller, error) {
	claims, err := s.Tokens.Verify(accessToken, jwtx.UseAccess)
	if err != nil {
		return nil, err
	}
	if claims.Origin != "" && claims.Origin != origin {
		slogx.FromContext(ctx).Warn("origin mismatch",
			slog.String("expected", claims.Origin),
			slog.String("origin", origin),
		)
		return nil, domain.Forbidden("Origin not allowed")
	}

	caller := &domain.Caller{}
	if caller.Account, err = principal(ctx, s.Store, accounts.collection, claims.Account); err != nil {
		return nil, err
	}
	if !caller.Account.Enabled {
		return nil, domain.Forbidden("Account is disabled")
	}

	if claims.Client != "" {
		if caller.Client, err = principal(ctx, s.Store, clients.collection, claims.Client); err != nil {
			return nil, err
		}
		if caller.Client.Account != caller.Account.ID {
			return nil, domain.AuthorizationError("Invalid token")
		}
		if !caller.Client.Enabled {
			return nil, domain.Forbidden("Client is disabled")
		}
	}

	if claims.User != "" {
		if caller.User, err = principal(ctx, s.Store, users.collection, claims.User); err != nil {
			return nil, err
		}
		if caller.User.Account != caller.Account.ID {
			return nil, domain.AuthorizationError("Invalid token")
		}
		if !caller.User.Enabled {
			return nil, domain.Forbidden("User is disabled")
		}
	}

	if caller.Client == nil && caller.User == nil {
		return nil, domain.AuthorizationError("Invalid token")
	}
	return caller, nil
}
