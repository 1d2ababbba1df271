package domain

import (
	"fmt"
	"time"
)

// Entity carries the fields every stored record shares.
type Entity struct {
	ID         string
	ExternalID string
	Enabled    bool
	Extensors  map[string]any
	History    Record
}

type Account struct {
	Entity
	Name       string
	Permission AccountPermission
	RootKey    string // ciphertext under the master secret
}

// The predicates below never fail: a nil Account is simply not privileged.

func (a *Account) IsSuperAdmin() bool { return a != nil && a.Permission == AccountSuperAdmin }
func (a *Account) IsAdmin() bool      { return a != nil && a.Permission == AccountAdministrator }
func (a *Account) IsDomain() bool     { return a != nil && a.Permission == AccountDomain }

type Client struct {
	Entity
	Name       string
	Account    string
	Permission ClientPermission
	Secret     string // ciphertext under the account key
	RefreshKey string // ciphertext under the account key
}

func (c *Client) IsReadWrite() bool { return c != nil && c.Permission == ClientReadWrite }
func (c *Client) IsReadOnly() bool  { return c != nil && c.Permission == ClientReadOnly }

type User struct {
	Entity
	Account       string
	PublicAddress string // lowercase, unique
	Permission    UserPermission
	Nonce         int64
	RefreshKey    string // plaintext unless user refresh key encryption is on
}

func (u *User) IsAdmin() bool { return u != nil && u.Permission == UserAdministrator }
func (u *User) IsUser() bool  { return u != nil && u.Permission == UserUser }

// NonceMessage is the literal text a User signs to prove address ownership.
func NonceMessage(nonce int64) string {
	return fmt.Sprintf("I am signing my one-time nonce: %d", nonce)
}

// Signal is a live connection record held for a principal.
type Signal struct {
	Entity
	Account      string
	Client       string
	User         string
	ConnectionID string
	ConnectedAt  time.Time
}
