package domain

// CommonAttrs are the whitelisted update fields shared by every credential
// entity. Nil means "leave unchanged". Attrs are input only; the wire names
// (account_permission, access_permission, user_permission) live on the views.
type CommonAttrs struct {
	Permission *string
	Enabled    *bool
	ExternalID *string
	Extensors  map[string]any
}

type AccountAttrs struct {
	CommonAttrs
	Name *string
}

type ClientAttrs struct {
	CommonAttrs
	Name *string
}

// UserAttrs.PublicAddress is honoured on creation only.
type UserAttrs struct {
	CommonAttrs
	PublicAddress *string
}

func Ptr[T any](v T) *T { return &v }
