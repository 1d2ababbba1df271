package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the outer DB stays open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Accounts() store.Accounts { return newAccounts(t.tx) }
func (t *txStore) Clients() store.Clients   { return newClients(t.tx) }
func (t *txStore) Users() store.Users       { return newUsers(t.tx) }
func (t *txStore) Signals() store.Signals   { return newSignals(t.tx) }
