package sqlite

import (
	"context"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
)

type usersRepo struct {
	table[domain.User]
}

func newUsers(q querier) *usersRepo {
	return &usersRepo{table[domain.User]{
		q:       q,
		name:    "users",
		columns: []string{"account_id", "public_address", "user_permission", "nonce", "refresh_key"},
		filters: map[string]string{
			"account":        "account_id",
			"public_address": "public_address",
			"external_id":    "external_id",
		},
		entity: func(u *domain.User) *domain.Entity { return &u.Entity },
		dest: func(u *domain.User) []any {
			return []any{&u.Account, &u.PublicAddress, &u.Permission, &u.Nonce, (*nullableString)(&u.RefreshKey)}
		},
		values: func(u *domain.User) []any {
			return []any{u.Account, u.PublicAddress, int(u.Permission), u.Nonce, nullString(u.RefreshKey)}
		},
	}}
}

func (r *usersRepo) GetByPublicAddress(ctx context.Context, address string) (*domain.User, error) {
	return r.getBy(ctx, "public_address", address)
}
