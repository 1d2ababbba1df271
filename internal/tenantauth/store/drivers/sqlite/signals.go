package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/store"
)

type signalsRepo struct {
	table[domain.Signal]
}

func newSignals(q querier) *signalsRepo {
	return &signalsRepo{table[domain.Signal]{
		q:       q,
		name:    "signals",
		columns: []string{"account_id", "client_id", "user_id", "connection_id", "connected_at"},
		filters: map[string]string{
			"account":       "account_id",
			"client":        "client_id",
			"user":          "user_id",
			"connection_id": "connection_id",
			"external_id":   "external_id",
		},
		entity: func(s *domain.Signal) *domain.Entity { return &s.Entity },
		dest: func(s *domain.Signal) []any {
			return []any{
				&s.Account,
				(*nullableString)(&s.Client),
				(*nullableString)(&s.User),
				&s.ConnectionID,
				(*millis)(&s.ConnectedAt),
			}
		},
		values: func(s *domain.Signal) []any {
			return []any{s.Account, nullString(s.Client), nullString(s.User), s.ConnectionID, s.ConnectedAt.UnixMilli()}
		},
	}}
}

func (r *signalsRepo) GetByConnectionID(ctx context.Context, connectionID string) (*domain.Signal, error) {
	return r.getBy(ctx, "connection_id", connectionID)
}

func (r *signalsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM signals WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *signalsRepo) DeleteConnectedBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, "DELETE FROM signals WHERE connected_at < ?", t.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
