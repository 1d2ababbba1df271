package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/obs"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateEncryptsSecretUnderAccountKey(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.account(t, "tenant")
	c := f.client(t, a, "svc")

	require.Equal(t, a.ID, c.Account)
	require.True(t, c.IsReadOnly())
	require.NotEmpty(t, c.Secret)

	secret, err := f.clients.DecryptSecret(c, a)
	require.NoError(t, err)
	require.Len(t, secret, 32)
	require.NotContains(t, c.Secret, secret)

	view, err := f.clients.View(c, a)
	require.NoError(t, err)
	require.Equal(t, secret, view.Secret)
	require.Equal(t, "READONLY", view.AccessPermission)

	require.True(t, f.clients.ValidateSecret(c, a, secret))
	require.False(t, f.clients.ValidateSecret(c, a, secret+"x"))
	require.False(t, f.clients.ValidateSecret(c, a, ""))
}

func TestClient_CreateRequiresAccountAndName(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	a := f.account(t, "tenant")

	_, err := f.clients.Create(ctx, "", domain.ClientAttrs{Name: domain.Ptr("svc")}, nil)
	requireStatus(t, err, http.StatusNotAcceptable)

	_, err = f.clients.Create(ctx, "missing", domain.ClientAttrs{Name: domain.Ptr("svc")}, nil)
	requireStatus(t, err, http.StatusNotFound)

	_, err = f.clients.Create(ctx, a.ID, domain.ClientAttrs{}, nil)
	requireStatus(t, err, http.StatusNotAcceptable)

	_, err = f.clients.Create(ctx, a.ID, domain.ClientAttrs{
		Name:        domain.Ptr("svc"),
		CommonAttrs: domain.CommonAttrs{Permission: domain.Ptr("BOGUS")},
	}, nil)
	requireStatus(t, err, http.StatusNotAcceptable)
}

func TestClient_CascadeIsolation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.account(t, "a")
	b := f.account(t, "b")
	c := f.client(t, a, "svc")

	_, err := f.clients.DecryptSecret(c, b)
	requireStatus(t, err, http.StatusForbidden)

	// Even with B's key in hand the ciphertext stays closed.
	secret, err := f.clients.DecryptSecret(c, a)
	require.NoError(t, err)
	keyB, err := f.accounts.DecryptedKey(b)
	require.NoError(t, err)
	got, err := cryptox.Decrypt(c.Secret, keyB)
	if err == nil {
		require.NotEqual(t, secret, got)
	}

	require.False(t, f.clients.ValidateSecret(c, b, secret))
}

// Not parallel: asserts on a shared counter.
func TestClient_TokenScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.account(t, "tenant")
	c := f.client(t, e, "svc")

	issuedBefore := testutil.ToFloat64(obs.TokensIssued.WithLabelValues(obs.PrincipalClient, obs.KindAccess))

	pair, err := f.clients.Token(ctx, c, e)
	require.NoError(t, err)
	require.Equal(t, int64(86400), pair.ExpiresIn)
	require.Equal(t, domain.TokenTypeBearer, pair.TokenType)
	require.Equal(t, "https://api.example.test", pair.APIServer)
	require.Equal(t, "https://auth.example.test", pair.AuthServer)
	require.Equal(t, issuedBefore+1, testutil.ToFloat64(obs.TokensIssued.WithLabelValues(obs.PrincipalClient, obs.KindAccess)))

	access, err := f.tokens.Verify(pair.AccessToken, jwtx.UseAccess)
	require.NoError(t, err)
	require.Equal(t, e.ID, access.Account)
	require.Equal(t, c.ID, access.Client)
	require.NotNil(t, access.ExpiresAt)

	first, err := f.tokens.Verify(pair.RefreshToken, jwtx.UseRefresh)
	require.NoError(t, err)
	require.Nil(t, first.ExpiresAt)
	require.NotEmpty(t, first.RefreshKey)
	require.True(t, f.clients.ValidateRefreshKey(c, e, first.RefreshKey))

	// An access assertion cannot stand in for a refresh assertion.
	_, err = f.tokens.Verify(pair.AccessToken, jwtx.UseRefresh)
	requireStatus(t, err, http.StatusUnauthorized)

	again, err := f.clients.RefreshToken(ctx, c, e)
	require.NoError(t, err)
	second, err := f.tokens.Verify(again, jwtx.UseRefresh)
	require.NoError(t, err)

	stored, err := f.clients.Get(ctx, c.ID)
	require.NoError(t, err)
	require.False(t, f.clients.ValidateRefreshKey(stored, e, first.RefreshKey))
	require.True(t, f.clients.ValidateRefreshKey(stored, e, second.RefreshKey))
}

func TestClient_TokenRejectsForeignAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.account(t, "a")
	b := f.account(t, "b")
	c := f.client(t, a, "svc")

	_, err := f.clients.Token(context.Background(), c, b)
	requireStatus(t, err, http.StatusForbidden)
	_, err = f.clients.RefreshToken(context.Background(), c, b)
	requireStatus(t, err, http.StatusForbidden)
}

func TestClient_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	a := f.account(t, "tenant")
	c := f.client(t, a, "svc")
	secret, err := f.clients.DecryptSecret(c, a)
	require.NoError(t, err)

	pair, err := f.clients.Login(ctx, c.ID, secret)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	_, err = f.clients.Login(ctx, "unknown", secret)
	requireStatus(t, err, http.StatusUnauthorized)

	_, err = f.clients.Disable(ctx, c.ID, nil)
	require.NoError(t, err)
	_, err = f.clients.Login(ctx, c.ID, secret)
	requireStatus(t, err, http.StatusForbidden)
	_, err = f.clients.Enable(ctx, c.ID, nil)
	require.NoError(t, err)

	for range 4 {
		_, err = f.clients.Login(ctx, c.ID, "wrong")
		requireStatus(t, err, http.StatusUnauthorized)
	}
	_, err = f.clients.Login(ctx, c.ID, "wrong")
	requireStatus(t, err, http.StatusTooManyRequests)
}

func TestClient_Lookups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	a := f.account(t, "a")
	b := f.account(t, "b")
	c1 := f.client(t, a, "one")
	f.client(t, a, "two")
	f.client(t, b, "one")

	_, err := f.clients.GetByName(ctx, "", a.ID)
	requireStatus(t, err, http.StatusUnauthorized)
	_, err = f.clients.GetByName(ctx, "one", "")
	requireStatus(t, err, http.StatusUnauthorized)

	got, err := f.clients.GetByName(ctx, "one", a.ID)
	require.NoError(t, err)
	require.Equal(t, c1.ID, got.ID)

	_, err = f.clients.GetByName(ctx, "three", a.ID)
	requireStatus(t, err, http.StatusNotFound)

	_, err = f.clients.Disable(ctx, c1.ID, nil)
	require.NoError(t, err)

	views, err := f.clients.ListByAccount(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		require.Equal(t, a.ID, v.Account)
		require.NotEmpty(t, v.Secret)
	}

	page, err := f.clients.List(ctx, domain.ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	require.Equal(t, 2, page.Paging.Total)
}
