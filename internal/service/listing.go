package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/estately/estately-server/internal/domain"
	domainerrors "github.com/estately/estately-server/internal/errors"
	"github.com/estately/estately-server/internal/search"
	"github.com/estately/estately-server/internal/store"
)

// ListingStore is the persistence surface the public listing pages need.
type ListingStore interface {
	GetProperty(ctx context.Context, id string) (*domain.Property, error)
	ListProperties(ctx context.Context) ([]*domain.Property, error)
	QueryProperties(ctx context.Context, filter store.PropertyFilter) (*store.Page[*domain.Property], error)
	HasRole(ctx context.Context, userID string, role domain.Role) (bool, error)
}

// Searcher runs full-text queries over available listings.
type Searcher interface {
	Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error)
	IndexDocuments(docs []*search.PropertyDocument) error
	DocumentCount() (uint64, error)
}

// ListingService serves browsing, search and listing detail pages.
type ListingService struct {
	store    ListingStore
	searcher Searcher
	logger   *slog.Logger
}

// NewListingService creates a listing service. searcher may be nil when
// search is disabled.
func NewListingService(store ListingStore, searcher Searcher, logger *slog.Logger) *ListingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingService{store: store, searcher: searcher, logger: logger}
}

// BrowseFilter narrows the public listing grid.
type BrowseFilter struct {
	Category     string
	City         string
	MinPrice     int64
	MaxPrice     int64
	MinBedrooms  int
	FeaturedOnly bool
	Limit        int
	Offset       int
}

func (f BrowseFilter) validate() error {
	details := map[string]string{}
	if f.Category != "" && !domain.Category(f.Category).Valid() {
		details["property_type"] = "unknown property type"
	}
	if f.MinPrice < 0 {
		details["min_price"] = "must not be negative"
	}
	if f.MaxPrice < 0 {
		details["max_price"] = "must not be negative"
	}
	if f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		details["max_price"] = "must be at least min_price"
	}
	if f.MinBedrooms < 0 {
		details["min_bedrooms"] = "must not be negative"
	}
	if len(details) > 0 {
		return domainerrors.ValidationWithDetails("invalid filter", details)
	}
	return nil
}

// Browse lists available properties, featured first, then newest.
func (s *ListingService) Browse(ctx context.Context, f BrowseFilter) (*store.Page[*domain.Property], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}

	page, err := s.store.QueryProperties(ctx, store.PropertyFilter{
		Status:        domain.StatusAvailable,
		Category:      domain.Category(f.Category),
		City:          strings.TrimSpace(f.City),
		MinPrice:      f.MinPrice,
		MaxPrice:      f.MaxPrice,
		MinBedrooms:   f.MinBedrooms,
		FeaturedOnly:  f.FeaturedOnly,
		FeaturedFirst: true,
		Limit:         f.Limit,
		Offset:        f.Offset,
	})
	if err != nil {
		s.logger.Error("failed to browse listings", "error", err)
		return nil, domainerrors.Internal("Failed to load properties").WithCause(err)
	}
	return page, nil
}

// Search runs a full-text query over available listings.
func (s *ListingService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if s.searcher == nil {
		return nil, domainerrors.Internal("Search is not available")
	}
	if params.Category != "" && !domain.Category(params.Category).Valid() {
		return nil, domainerrors.ValidationWithDetails("invalid search",
			map[string]string{"property_type": "unknown property type"})
	}
	if params.MaxPrice > 0 && params.MinPrice > params.MaxPrice {
		return nil, domainerrors.ValidationWithDetails("invalid search",
			map[string]string{"max_price": "must be at least min_price"})
	}
	switch params.SortBy {
	case "", search.SortRelevance, search.SortPrice, search.SortRecent:
	default:
		return nil, domainerrors.ValidationWithDetails("invalid search",
			map[string]string{"sort": "must be relevance, price or recent"})
	}
	params.Limit = min(max(params.Limit, 1), 100)

	result, err := s.searcher.Search(ctx, params)
	if err != nil {
		s.logger.Error("search failed", "query", params.Query, "error", err)
		return nil, domainerrors.Internal("Search failed").WithCause(err)
	}
	return result, nil
}

// Get returns one listing. Listings that are not available are visible
// only to their seller and to admins; everyone else gets NotFound.
func (s *ListingService) Get(ctx context.Context, viewer *domain.User, id string) (*domain.Property, error) {
	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("Property not found")
		}
		return nil, fmt.Errorf("get property: %w", err)
	}
	if p.IsPublic() {
		return p, nil
	}
	if viewer == nil {
		return nil, domainerrors.NotFound("Property not found")
	}
	if viewer.ID == p.SellerID {
		return p, nil
	}
	isAdmin, err := s.store.HasRole(ctx, viewer.ID, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("role lookup: %w", err)
	}
	if !isAdmin {
		return nil, domainerrors.NotFound("Property not found")
	}
	return p, nil
}

// Mine returns the seller's own listings in every status, newest first.
func (s *ListingService) Mine(ctx context.Context, user *domain.User, limit, offset int) (*store.Page[*domain.Property], error) {
	if user == nil {
		return nil, domainerrors.Unauthorized("Please sign in to view your properties")
	}
	page, err := s.store.QueryProperties(ctx, store.PropertyFilter{
		SellerID: user.ID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.logger.Error("failed to load own listings", "user_id", user.ID, "error", err)
		return nil, domainerrors.Internal("Failed to load your properties").WithCause(err)
	}
	return page, nil
}

// ReindexIfEmpty fills an empty search index from the store, which covers
// first start and a rebuild after a mapping change. It returns the number of
// listings indexed.
func (s *ListingService) ReindexIfEmpty(ctx context.Context) (int, error) {
	if s.searcher == nil {
		return 0, nil
	}
	count, err := s.searcher.DocumentCount()
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	all, err := s.store.ListProperties(ctx)
	if err != nil {
		return 0, fmt.Errorf("list properties: %w", err)
	}
	docs := make([]*search.PropertyDocument, 0, len(all))
	for _, p := range all {
		if p.IsPublic() {
			docs = append(docs, search.PropertyToDocument(p))
		}
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := s.searcher.IndexDocuments(docs); err != nil {
		return 0, fmt.Errorf("index documents: %w", err)
	}

	s.logger.Info("search index rebuilt from store", "documents", len(docs))
	return len(docs), nil
}
