package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes used when the caller does not configure its own.
const (
	DefaultAccessTokenTTL     = 24 * time.Hour
	DefaultValidationTokenTTL = 7 * 24 * time.Hour
)

// Use tells the three kinds of assertion apart so one cannot stand in for another.
type Use string

const (
	UseAccess     Use = "access"
	UseRefresh    Use = "refresh"
	UseValidation Use = "validation"
)

// Claims are the signed assertions handed to Clients and Users. Refresh
// assertions carry no exp; they die when the stored refresh key rotates.
type Claims struct {
	jwt.RegisteredClaims

	Use Use `json:"use,omitempty"`

	// Principal references
	Account string `json:"account,omitempty"`
	Client  string `json:"client,omitempty"`
	User    string `json:"user,omitempty"`

	// Plaintext refresh key, only on refresh assertions.
	RefreshKey string `json:"refresh_key,omitempty"`

	// Origin pins an access token to the origin it was issued for.
	Origin string `json:"origin,omitempty"`

	// Extra holds caller supplied claims. They are flattened into the
	// payload and can never shadow a registered or principal claim.
	Extra map[string]any `json:"-"`
}

var reserved = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {}, "jti": {},
	"use": {}, "account": {}, "client": {}, "user": {}, "refresh_key": {}, "origin": {},
}

// plain drops the custom (un)marshalers.
type plain Claims

func (c Claims) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(plain(c))
	if err != nil || len(c.Extra) == 0 {
		return b, err
	}

	m := make(map[string]any, len(c.Extra)+8)
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		if _, ok := reserved[k]; ok {
			continue
		}
		m[k] = v
	}
	return json.Marshal(m)
}

func (c *Claims) UnmarshalJSON(data []byte) error {
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range reserved {
		delete(raw, k)
	}
	if len(raw) > 0 {
		p.Extra = raw
	}

	*c = Claims(p)
	return nil
}

// NewClaims stamps the registered claims. A zero ttl leaves exp unset.
func NewClaims(use Use, issuer string, ttl time.Duration, now time.Time) Claims {
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       NewJTI(),
		},
		Use: use,
	}
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return c
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateUse rejects an assertion minted for a different purpose.
func (c *Claims) ValidateUse(expected Use) error {
	if c.Use != expected {
		return ErrWrongUse
	}
	return nil
}
