package domain

import "time"

// ActorKind says which kind of principal stamped an audit record.
type ActorKind string

const (
	ActorUser   ActorKind = "USER"
	ActorClient ActorKind = "CLIENT"
)

// Record is the audit trail carried by every stored entity. The first
// stamped mutation fills the created triple, later ones the updated triple.
type Record struct {
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	CreatedBy     string     `json:"created_by,omitempty"`
	CreatedByType ActorKind  `json:"created_by_type,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	UpdatedBy     string     `json:"updated_by,omitempty"`
	UpdatedByType ActorKind  `json:"updated_by_type,omitempty"`
}

// Stamp records caller as the author of a mutation at now. A caller that
// names neither a User nor a Client leaves the record untouched.
func (r *Record) Stamp(caller *Caller, now time.Time) {
	id, kind, ok := caller.Actor()
	if !ok {
		return
	}
	now = now.UTC()
	if r.CreatedAt == nil {
		r.CreatedAt, r.CreatedBy, r.CreatedByType = &now, id, kind
		return
	}
	r.UpdatedAt, r.UpdatedBy, r.UpdatedByType = &now, id, kind
}

// Caller is the resolved principal bundle behind a request.
type Caller struct {
	Account *Account `json:"account,omitempty"`
	Client  *Client  `json:"client,omitempty"`
	User    *User    `json:"user,omitempty"`
}

// Actor names the acting principal: the User when present, else the Client.
func (c *Caller) Actor() (string, ActorKind, bool) {
	switch {
	case c == nil:
		return "", "", false
	case c.User != nil:
		return c.User.ID, ActorUser, true
	case c.Client != nil:
		return c.Client.ID, ActorClient, true
	default:
		return "", "", false
	}
}
