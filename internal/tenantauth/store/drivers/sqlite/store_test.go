package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantauth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.NewStore(sqlite.FileDSN(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func stamped(at time.Time) domain.Record {
	at = at.UTC().Truncate(time.Millisecond)
	return domain.Record{CreatedAt: &at, CreatedBy: "c", CreatedByType: domain.ActorClient}
}

func saveAccount(t *testing.T, st store.Store, name string, enabled bool, at *time.Time) *domain.Account {
	t.Helper()
	a := &domain.Account{
		Entity:  domain.Entity{ID: idx.New().String(), Enabled: enabled},
		Name:    name,
		RootKey: "iv:ct",
	}
	if at != nil {
		a.History = stamped(*at)
	}
	require.NoError(t, st.Accounts().Save(context.Background(), a))
	return a
}

func TestMigrations_Idempotent(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.Ping(context.Background()))
}

func TestAccounts_SaveGetRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)

	empty, err := st.Accounts().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	now := time.Now()
	a := &domain.Account{
		Entity: domain.Entity{
			ID:         idx.New().String(),
			Enabled:    true,
			ExternalID: "ext-1",
			Extensors:  map[string]any{"plan": "gold"},
			History:    stamped(now),
		},
		Name:       "acme",
		Permission: domain.AccountAdministrator,
		RootKey:    "aa:bb",
	}
	require.NoError(t, st.Accounts().Save(ctx, a))

	got, err := st.Accounts().Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a, got)

	empty, err = st.Accounts().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	// Upsert replaces.
	a.Name = "acme2"
	a.Enabled = false
	require.NoError(t, st.Accounts().Save(ctx, a))
	got, err = st.Accounts().Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "acme2", got.Name)
	require.False(t, got.Enabled)

	_, err = st.Accounts().Get(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestFind_SortFilterWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i := range 5 {
		at := base.Add(time.Duration(i) * time.Minute)
		ids = append(ids, saveAccount(t, st, "a", i%2 == 0, &at).ID)
	}
	unstamped := saveAccount(t, st, "b", true, nil)

	all, err := st.Accounts().Find(ctx, store.Criteria{}, store.Window{All: true})
	require.NoError(t, err)
	require.Len(t, all, 6)
	require.Equal(t, ids[4], all[0].ID, "newest first")
	require.Equal(t, ids[0], all[4].ID)
	require.Equal(t, unstamped.ID, all[5].ID, "unstamped rows last")

	enabled := true
	page, err := st.Accounts().Find(ctx, store.Criteria{Enabled: &enabled}, store.Window{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, ids[2], page[0].ID)
	require.Equal(t, ids[0], page[1].ID)

	n, err := st.Accounts().Count(ctx, store.Criteria{Enabled: &enabled, Fields: map[string]string{"name": "a"}})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	_, err = st.Accounts().Find(ctx, store.Criteria{Fields: map[string]string{"root_key": "x"}}, store.Window{All: true})
	require.ErrorIs(t, err, store.ErrUnknownField)
}

func TestUsers_UniqueAddress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	acc := saveAccount(t, st, "acme", true, nil)

	u := &domain.User{
		Entity:        domain.Entity{ID: idx.New().String(), Enabled: true},
		Account:       acc.ID,
		PublicAddress: "0xabc",
		Nonce:         42,
	}
	require.NoError(t, st.Users().Save(ctx, u))

	got, err := st.Users().GetByPublicAddress(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, int64(42), got.Nonce)
	require.Empty(t, got.RefreshKey)

	dup := *u
	dup.ID = idx.New().String()
	err = st.Users().Save(ctx, &dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestClients_ForeignKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)

	c := &domain.Client{
		Entity:  domain.Entity{ID: idx.New().String(), Enabled: true},
		Name:    "svc",
		Account: "no-such-account",
		Secret:  "iv:ct",
	}
	require.Error(t, st.Clients().Save(ctx, c))
}

func TestSignals_DeleteAndHousekeeping(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	acc := saveAccount(t, st, "acme", true, nil)

	old := &domain.Signal{
		Entity:       domain.Entity{ID: idx.New().String(), Enabled: true},
		Account:      acc.ID,
		ConnectionID: "conn-old",
		ConnectedAt:  time.Now().Add(-3 * time.Hour).UTC().Truncate(time.Millisecond),
	}
	fresh := &domain.Signal{
		Entity:       domain.Entity{ID: idx.New().String(), Enabled: true},
		Account:      acc.ID,
		User:         "u1",
		ConnectionID: "conn-new",
		ConnectedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, st.Signals().Save(ctx, old))
	require.NoError(t, st.Signals().Save(ctx, fresh))

	got, err := st.Signals().GetByConnectionID(ctx, "conn-new")
	require.NoError(t, err)
	require.Equal(t, fresh, got)

	n, err := st.Signals().DeleteConnectedBefore(ctx, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, st.Signals().Delete(ctx, fresh.ID))
	require.ErrorIs(t, st.Signals().Delete(ctx, fresh.ID), store.ErrNotFound)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)

	boom := errors.New("boom")
	var id string
	err := st.WithTx(ctx, func(tx store.Tx) error {
		a := saveAccount(t, tx, "tx", true, nil)
		id = a.ID
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.Accounts().Get(ctx, id)
	require.ErrorIs(t, err, store.ErrNotFound)

	err = st.WithTx(ctx, func(tx store.Tx) error {
		id = saveAccount(t, tx, "tx", true, nil).ID
		return tx.WithTx(ctx, func(store.Tx) error { return nil })
	})
	require.Error(t, err, "nested transactions are refused")
}
