package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/stretchr/testify/require"
)

func TestAccount_CreateGeneratesRootKey(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	a := f.account(t, "tenant")
	require.NotEmpty(t, a.RootKey)
	require.True(t, a.Enabled)
	require.True(t, a.IsDomain())

	key, err := f.accounts.DecryptedKey(a)
	require.NoError(t, err)
	require.Len(t, key, 32)
}

func TestAccount_RootKeyIsImmutable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	a := f.account(t, "tenant")
	before := a.RootKey

	require.NoError(t, f.accounts.ensureRootKey(a))
	require.Equal(t, before, a.RootKey)

	updated, err := f.accounts.Update(ctx, a.ID, domain.AccountAttrs{
		Name:        domain.Ptr("renamed"),
		CommonAttrs: domain.CommonAttrs{Permission: domain.Ptr("administrator")},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Name)
	require.True(t, updated.IsAdmin())

	stored, err := f.accounts.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, before, stored.RootKey)
}

func TestAccount_DecryptedKeyFailsClosed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.account(t, "tenant")

	other := &AccountService{Store: f.store, Master: "ffeeddccbbaa99887766554433221100"}
	_, err := other.DecryptedKey(a)
	require.ErrorIs(t, err, domain.ErrCrypto)

	_, err = f.accounts.DecryptedKey(&domain.Account{})
	require.ErrorIs(t, err, domain.ErrCrypto)

	_, err = f.accounts.DecryptedKey(nil)
	require.ErrorIs(t, err, domain.ErrCrypto)
}

func TestAccount_CreateRequiresName(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.accounts.Create(context.Background(), domain.AccountAttrs{}, nil)
	requireStatus(t, err, http.StatusNotAcceptable)

	_, err = f.accounts.Create(context.Background(), domain.AccountAttrs{Name: domain.Ptr("  ")}, nil)
	requireStatus(t, err, http.StatusNotAcceptable)
}

func TestAccount_AuditStamp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	root := f.account(t, "root")
	c := f.client(t, root, "ops")
	u := f.user(t, root, aliceAddress)

	a, err := f.accounts.Create(ctx, domain.AccountAttrs{Name: domain.Ptr("tenant")}, &domain.Caller{Account: root, Client: c})
	require.NoError(t, err)
	require.NotNil(t, a.History.CreatedAt)
	require.Equal(t, c.ID, a.History.CreatedBy)
	require.Equal(t, domain.ActorClient, a.History.CreatedByType)
	require.Nil(t, a.History.UpdatedAt)

	a, err = f.accounts.Disable(ctx, a.ID, &domain.Caller{Account: root, Client: c, User: u})
	require.NoError(t, err)
	require.False(t, a.Enabled)
	require.Equal(t, u.ID, a.History.UpdatedBy)
	require.Equal(t, domain.ActorUser, a.History.UpdatedByType)

	// No actor, no stamp.
	before := a.History
	a, err = f.accounts.Enable(ctx, a.ID, nil)
	require.NoError(t, err)
	require.True(t, a.Enabled)
	require.Equal(t, before.UpdatedBy, a.History.UpdatedBy)
}

func TestEnableDisable_InvalidID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.accounts.Enable(ctx, "", nil)
	requireStatus(t, err, http.StatusNotAcceptable)
	_, err = f.clients.Disable(ctx, " ", nil)
	requireStatus(t, err, http.StatusNotAcceptable)
	_, err = f.users.Enable(ctx, "missing", nil)
	requireStatus(t, err, http.StatusNotFound)
}

func TestUpdate_UnknownPermissionNeverMutates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	a := f.account(t, "tenant")
	c := f.client(t, a, "svc")
	u := f.user(t, a, aliceAddress)

	bogus := domain.CommonAttrs{Permission: domain.Ptr("BOGUS"), Enabled: domain.Ptr(false), ExternalID: domain.Ptr("x")}

	t.Run("account", func(t *testing.T) {
		_, err := f.accounts.Update(ctx, a.ID, domain.AccountAttrs{CommonAttrs: bogus, Name: domain.Ptr("changed")}, nil)
		requireStatus(t, err, http.StatusNotAcceptable)
		require.ErrorIs(t, err, domain.ErrValidation)

		stored, err := f.accounts.Get(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, "tenant", stored.Name)
		require.True(t, stored.Enabled)
		require.Empty(t, stored.ExternalID)
		require.True(t, stored.IsDomain())
	})

	t.Run("client", func(t *testing.T) {
		_, err := f.clients.Update(ctx, c.ID, domain.ClientAttrs{CommonAttrs: bogus, Name: domain.Ptr("changed")}, nil)
		requireStatus(t, err, http.StatusNotAcceptable)

		stored, err := f.clients.Get(ctx, c.ID)
		require.NoError(t, err)
		require.Equal(t, "svc", stored.Name)
		require.True(t, stored.Enabled)
		require.True(t, stored.IsReadOnly())
	})

	t.Run("user", func(t *testing.T) {
		_, err := f.users.Update(ctx, u.ID, domain.UserAttrs{CommonAttrs: bogus}, nil)
		requireStatus(t, err, http.StatusNotAcceptable)

		stored, err := f.users.Get(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, stored.Enabled)
		require.Empty(t, stored.ExternalID)
		require.True(t, stored.IsUser())
	})
}

func TestAccount_EncryptDecrypt(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.account(t, "tenant")

	enc, err := f.accounts.Encrypt(a, "payload")
	require.NoError(t, err)
	plain, err := f.accounts.Decrypt(a, enc)
	require.NoError(t, err)
	require.Equal(t, "payload", plain)

	_, err = f.accounts.Encrypt(a, "")
	requireStatus(t, err, http.StatusNotAcceptable)

	_, err = f.accounts.Decrypt(a, "no-separator")
	requireStatus(t, err, http.StatusNotAcceptable)
}
