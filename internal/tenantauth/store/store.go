package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrUnknownField  = errors.New("store: unknown filter field")
)

// Store is the root data access interface. Concrete drivers implement it and
// hand out one collection per entity. Collections obtained from a Tx run
// inside that transaction.
type Store interface {
	Accounts() Accounts
	Clients() Clients
	Users() Users
	Signals() Signals

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. Read-modify-write sequences such as refresh key
	// and nonce rotation go through here.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same collections but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Criteria narrows a Find or Count. Fields keys must be filterable on the
// collection, otherwise ErrUnknownField.
type Criteria struct {
	Enabled *bool
	Fields  map[string]string
}

// Window selects a slice of the sorted result. All ignores Offset and Limit.
// Results are always ordered newest audit created_at first, unstamped rows
// last, ties broken by id descending.
type Window struct {
	Offset int
	Limit  int
	All    bool
}

// Collection is the storage contract every entity shares.
type Collection[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	Find(ctx context.Context, c Criteria, w Window) ([]*T, error)
	Count(ctx context.Context, c Criteria) (int, error)

	// Save inserts or replaces the entity by id.
	Save(ctx context.Context, e *T) error
}

type Accounts interface {
	Collection[domain.Account]

	// IsEmpty returns true if there are no accounts.
	IsEmpty(ctx context.Context) (bool, error)
}

type Clients interface {
	Collection[domain.Client]
}

type Users interface {
	Collection[domain.User]

	// GetByPublicAddress matches the stored lowercase address exactly.
	GetByPublicAddress(ctx context.Context, address string) (*domain.User, error)
}

type Signals interface {
	Collection[domain.Signal]

	GetByConnectionID(ctx context.Context, connectionID string) (*domain.Signal, error)
	Delete(ctx context.Context, id string) error

	// DeleteConnectedBefore is housekeeping for connections whose disconnect
	// never arrived. It returns the number of rows removed.
	DeleteConnectedBefore(ctx context.Context, t time.Time) (int64, error)
}
