package sqlite

import (
	"context"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
)

type accountsRepo struct {
	table[domain.Account]
}

func newAccounts(q querier) *accountsRepo {
	return &accountsRepo{table[domain.Account]{
		q:       q,
		name:    "accounts",
		columns: []string{"name", "account_permission", "root_key"},
		filters: map[string]string{
			"name":        "name",
			"external_id": "external_id",
		},
		entity: func(a *domain.Account) *domain.Entity { return &a.Entity },
		dest: func(a *domain.Account) []any {
			return []any{&a.Name, &a.Permission, &a.RootKey}
		},
		values: func(a *domain.Account) []any {
			return []any{a.Name, int(a.Permission), a.RootKey}
		},
	}}
}

func (r *accountsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM accounts)").Scan(&exists)
	return !exists, err
}
