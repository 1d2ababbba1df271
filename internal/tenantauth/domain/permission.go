package domain

import (
	"slices"
	"strings"
)

// Registry is a closed mapping between role names and the numeric codes
// that are stored. Unknown names are rejected, never defaulted.
type Registry[P ~int] struct {
	field  string
	def    P
	byName map[string]P
	byCode map[P]string
}

func newRegistry[P ~int](field string, def P, names map[string]P) Registry[P] {
	r := Registry[P]{
		field:  field,
		def:    def,
		byName: names,
		byCode: make(map[P]string, len(names)),
	}
	for name, code := range names {
		r.byCode[code] = name
	}
	return r
}

// Code resolves a role name, case-insensitively.
func (r Registry[P]) Code(name string) (P, error) {
	code, ok := r.byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return r.def, ValidationError("Invalid %s", r.field)
	}
	return code, nil
}

// Name returns the role name for code, or "" for an unknown code.
func (r Registry[P]) Name(code P) string { return r.byCode[code] }

func (r Registry[P]) Valid(code P) bool {
	_, ok := r.byCode[code]
	return ok
}

func (r Registry[P]) Default() P { return r.def }

// Names lists the role names ordered by code.
func (r Registry[P]) Names() []string {
	codes := make([]P, 0, len(r.byCode))
	for c := range r.byCode {
		codes = append(codes, c)
	}
	slices.Sort(codes)

	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = r.byCode[c]
	}
	return names
}

type AccountPermission int

const (
	AccountSuperAdmin    AccountPermission = 0
	AccountAdministrator AccountPermission = 1
	AccountDomain        AccountPermission = 2
)

type ClientPermission int

const (
	ClientReadWrite ClientPermission = 0
	ClientReadOnly  ClientPermission = 1
)

type UserPermission int

const (
	UserAdministrator UserPermission = 0
	UserUser          UserPermission = 1
)

var (
	AccountPermissions = newRegistry("account_permission", AccountDomain, map[string]AccountPermission{
		"SUPERADMIN":    AccountSuperAdmin,
		"ADMINISTRATOR": AccountAdministrator,
		"DOMAIN":        AccountDomain,
	})

	ClientPermissions = newRegistry("access_permission", ClientReadOnly, map[string]ClientPermission{
		"READWRITE": ClientReadWrite,
		"READONLY":  ClientReadOnly,
	})

	UserPermissions = newRegistry("user_permission", UserUser, map[string]UserPermission{
		"ADMINISTRATOR": UserAdministrator,
		"USER":          UserUser,
	})
)
