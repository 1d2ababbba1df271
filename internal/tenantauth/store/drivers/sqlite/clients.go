package sqlite

import "github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"

type clientsRepo struct {
	table[domain.Client]
}

func newClients(q querier) *clientsRepo {
	return &clientsRepo{table[domain.Client]{
		q:       q,
		name:    "clients",
		columns: []string{"name", "account_id", "access_permission", "secret", "refresh_key"},
		filters: map[string]string{
			"name":        "name",
			"account":     "account_id",
			"external_id": "external_id",
		},
		entity: func(c *domain.Client) *domain.Entity { return &c.Entity },
		dest: func(c *domain.Client) []any {
			return []any{&c.Name, &c.Account, &c.Permission, &c.Secret, (*nullableString)(&c.RefreshKey)}
		},
		values: func(c *domain.Client) []any {
			return []any{c.Name, c.Account, int(c.Permission), c.Secret, nullString(c.RefreshKey)}
		},
	}}
}
