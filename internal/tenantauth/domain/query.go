package domain

const DefaultLimit = 10

// ListParams is the shared listing input for every collection.
type ListParams struct {
	Offset       int
	Limit        int
	All          bool
	ShowDisabled bool
	Enabled      *bool
	Filters      map[string]string
}

// Window normalises paging input: negative offsets become 0 and a
// non-positive limit becomes DefaultLimit.
func (p ListParams) Window() (offset, limit int) {
	offset, limit = max(p.Offset, 0), p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return offset, limit
}

// EnabledFilter is the enabled constraint to apply: the explicit value if
// given, nothing with ShowDisabled, else enabled only.
func (p ListParams) EnabledFilter() *bool {
	switch {
	case p.Enabled != nil:
		return p.Enabled
	case p.ShowDisabled:
		return nil
	default:
		return Ptr(true)
	}
}

type Paging struct {
	Offset     int `json:"offset"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

func NewPaging(offset, limit, total int) *Paging {
	return &Paging{
		Offset:     offset,
		Limit:      limit,
		Total:      total,
		Page:       offset/limit + 1,
		TotalPages: (total + limit - 1) / limit,
	}
}

// Page carries one listing result. Paging is nil when everything was requested.
type Page[T any] struct {
	Results []T     `json:"results"`
	Paging  *Paging `json:"paging,omitempty"`
}
