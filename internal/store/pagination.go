package store

import "github.com/estately/estately-server/internal/domain"

const (
	defaultLimit = 24
	maxLimit     = 200
)

// Page is one page of results.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// PropertyFilter narrows a property query. Zero values mean "no constraint".
type PropertyFilter struct {
	SellerID     string
	Status       domain.Status
	Category     domain.Category
	City         string // case-insensitive exact match
	MinPrice     int64
	MaxPrice     int64
	MinBedrooms  int
	FeaturedOnly bool
	// FeaturedFirst orders featured listings before the rest.
	FeaturedFirst bool

	Limit  int
	Offset int
}

// Normalize clamps pagination to sane bounds.
func (f *PropertyFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
