package domain

import "time"

// Export views are the only shapes that leave the core. None of them carries
// a root key, an encrypted secret, a refresh key or a nonce.

type AccountView struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	AccountPermission string         `json:"account_permission"`
	Enabled           bool           `json:"enabled"`
	ExternalID        string         `json:"external_id,omitempty"`
	Extensors         map[string]any `json:"extensors,omitempty"`
	RecordHistory     Record         `json:"record_history"`
}

func (a *Account) View() AccountView {
	return AccountView{
		ID:                a.ID,
		Name:              a.Name,
		AccountPermission: AccountPermissions.Name(a.Permission),
		Enabled:           a.Enabled,
		ExternalID:        a.ExternalID,
		Extensors:         a.Extensors,
		RecordHistory:     a.History,
	}
}

// ClientView shows the decrypted secret so an operator can hand it over.
type ClientView struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Account          string         `json:"account"`
	Secret           string         `json:"secret"`
	AccessPermission string         `json:"access_permission"`
	Enabled          bool           `json:"enabled"`
	ExternalID       string         `json:"external_id,omitempty"`
	Extensors        map[string]any `json:"extensors,omitempty"`
	RecordHistory    Record         `json:"record_history"`
}

func (c *Client) View(plainSecret string) ClientView {
	return ClientView{
		ID:               c.ID,
		Name:             c.Name,
		Account:          c.Account,
		Secret:           plainSecret,
		AccessPermission: ClientPermissions.Name(c.Permission),
		Enabled:          c.Enabled,
		ExternalID:       c.ExternalID,
		Extensors:        c.Extensors,
		RecordHistory:    c.History,
	}
}

type UserView struct {
	ID             string         `json:"id"`
	Account        string         `json:"account"`
	PublicAddress  string         `json:"public_address"`
	UserPermission string         `json:"user_permission"`
	Enabled        bool           `json:"enabled"`
	ExternalID     string         `json:"external_id,omitempty"`
	Extensors      map[string]any `json:"extensors,omitempty"`
	RecordHistory  Record         `json:"record_history"`
}

func (u *User) View() UserView {
	return UserView{
		ID:             u.ID,
		Account:        u.Account,
		PublicAddress:  u.PublicAddress,
		UserPermission: UserPermissions.Name(u.Permission),
		Enabled:        u.Enabled,
		ExternalID:     u.ExternalID,
		Extensors:      u.Extensors,
		RecordHistory:  u.History,
	}
}

type SignalView struct {
	ID            string         `json:"id"`
	Account       string         `json:"account"`
	Client        string         `json:"client,omitempty"`
	User          string         `json:"user,omitempty"`
	ConnectionID  string         `json:"connection_id"`
	ConnectedAt   time.Time      `json:"connected_at"`
	Enabled       bool           `json:"enabled"`
	ExternalID    string         `json:"external_id,omitempty"`
	Extensors     map[string]any `json:"extensors,omitempty"`
	RecordHistory Record         `json:"record_history"`
}

func (s *Signal) View() SignalView {
	return SignalView{
		ID:            s.ID,
		Account:       s.Account,
		Client:        s.Client,
		User:          s.User,
		ConnectionID:  s.ConnectionID,
		ConnectedAt:   s.ConnectedAt,
		Enabled:       s.Enabled,
		ExternalID:    s.ExternalID,
		Extensors:     s.Extensors,
		RecordHistory: s.History,
	}
}
