package service

import (
	"errors"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/obs"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

// TokenIssuer mints and checks the signed assertions handed to Clients and
// Users. Access and validation assertions expire, refresh assertions do not.
type TokenIssuer struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Issuer   string

	AccessTTL     time.Duration
	ValidationTTL time.Duration

	// Echoed in every envelope so callers know where to go next.
	APIServer  string
	AuthServer string
}

func (t *TokenIssuer) accessTTL() time.Duration {
	if t.AccessTTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return t.AccessTTL
}

func (t *TokenIssuer) validationTTL() time.Duration {
	if t.ValidationTTL <= 0 {
		return jwtx.DefaultValidationTokenTTL
	}
	return t.ValidationTTL
}

func (t *TokenIssuer) sign(c jwtx.Claims, principal, kind string) (string, error) {
	s, err := t.Signer.Sign(c)
	if err != nil {
		return "", domain.CryptoError(err, "sign %s token", kind)
	}
	obs.TokensIssued.WithLabelValues(principal, kind).Inc()
	return s, nil
}

// Access signs a short-lived assertion naming the principal.
func (t *TokenIssuer) Access(subject jwtx.Claims, principal string) (string, error) {
	c := jwtx.NewClaims(jwtx.UseAccess, t.Issuer, t.accessTTL(), time.Now())
	c.Account, c.Client, c.User = subject.Account, subject.Client, subject.User
	c.Origin, c.Extra = subject.Origin, subject.Extra
	return t.sign(c, principal, obs.KindAccess)
}

// Refresh signs an assertion carrying the plaintext refresh key. It has no
// expiry and dies when the stored key rotates. Origin and extra claims ride
// along so the access assertion minted from it keeps them.
func (t *TokenIssuer) Refresh(subject jwtx.Claims, refreshKey, principal string) (string, error) {
	c := jwtx.NewClaims(jwtx.UseRefresh, t.Issuer, 0, time.Now())
	c.Account, c.Client, c.User = subject.Account, subject.Client, subject.User
	c.Origin, c.Extra = subject.Origin, subject.Extra
	c.RefreshKey = refreshKey
	return t.sign(c, principal, obs.KindRefresh)
}

// Validation signs the long-lived out-of-band verification assertion.
func (t *TokenIssuer) Validation(user string) (string, error) {
	c := jwtx.NewClaims(jwtx.UseValidation, t.Issuer, t.validationTTL(), time.Now())
	c.User = user
	return t.sign(c, obs.PrincipalUser, obs.KindValidation)
}

// Envelope wraps an access/refresh pair for the caller.
func (t *TokenIssuer) Envelope(access, refresh string) *domain.TokenPair {
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(t.accessTTL() / time.Second),
		TokenType:    domain.TokenTypeBearer,
		APIServer:    t.APIServer,
		AuthServer:   t.AuthServer,
	}
}

// Verify checks signature, expiry and purpose of token. Every failure is an
// AuthorizationError.
func (t *TokenIssuer) Verify(token string, use jwtx.Use) (*jwtx.Claims, error) {
	c, err := t.Verifier.Verify(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return nil, domain.AuthorizationError("Token is expired.")
		}
		return nil, domain.AuthorizationError("Invalid token")
	}
	if err := c.ValidateUse(use); err != nil {
		return nil, domain.AuthorizationError("Invalid token")
	}
	return c, nil
}
