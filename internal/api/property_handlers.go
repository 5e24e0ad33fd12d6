package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/estately/estately-server/internal/domain"
	"github.com/estately/estately-server/internal/search"
	"github.com/estately/estately-server/internal/service"
	"github.com/estately/estately-server/internal/store"
)

func (s *Server) registerPropertyRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "browseProperties",
		Method:      http.MethodGet,
		Path:        "/api/v1/properties",
		Summary:     "Browse listings",
		Description: "Lists available properties, featured first, then newest",
		Tags:        []string{"Properties"},
	}, s.handleBrowseProperties)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchProperties",
		Method:      http.MethodGet,
		Path:        "/api/v1/properties/search",
		Summary:     "Search listings",
		Description: "Full-text search over available properties with filters and facets",
		Tags:        []string{"Properties", "Search"},
	}, s.handleSearchProperties)

	huma.Register(s.api, huma.Operation{
		OperationID: "getProperty",
		Method:      http.MethodGet,
		Path:        "/api/v1/properties/{id}",
		Summary:     "Get listing",
		Description: "Returns one listing. Listings under review are visible only to their seller and admins.",
		Tags:        []string{"Properties"},
	}, s.handleGetProperty)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMyProperties",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/properties",
		Summary:     "My listings",
		Description: "Returns the signed-in seller's listings in every status",
		Tags:        []string{"Properties"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListMyProperties)
}

// === DTOs ===

// PageParams is the shared limit/offset pair.
type PageParams struct {
	Limit  int `query:"limit" minimum:"0" maximum:"200" doc:"Page size (default 24)"`
	Offset int `query:"offset" minimum:"0" doc:"Items to skip"`
}

// BrowsePropertiesInput filters the public grid.
type BrowsePropertiesInput struct {
	PageParams
	Category     string `query:"property_type" doc:"house, apartment, condo, land or commercial"`
	City         string `query:"city" doc:"City name, case-insensitive"`
	MinPrice     int64  `query:"min_price" doc:"Minimum price"`
	MaxPrice     int64  `query:"max_price" doc:"Maximum price"`
	MinBedrooms  int    `query:"min_bedrooms" doc:"Minimum bedrooms"`
	FeaturedOnly bool   `query:"featured" doc:"Only featured listings"`
}

// PropertyPageOutput is one page of listings.
type PropertyPageOutput struct {
	Body *store.Page[*domain.Property]
}

// SearchPropertiesInput is a full-text query with filters.
type SearchPropertiesInput struct {
	PageParams
	Query       string `query:"q" doc:"Search text"`
	Category    string `query:"property_type" doc:"Category filter"`
	City        string `query:"city" doc:"City filter"`
	MinPrice    int64  `query:"min_price" doc:"Minimum price"`
	MaxPrice    int64  `query:"max_price" doc:"Maximum price"`
	MinBedrooms int    `query:"min_bedrooms" doc:"Minimum bedrooms"`
	Featured    bool   `query:"featured" doc:"Only featured listings"`
	Sort        string `query:"sort" enum:"relevance,price,recent" doc:"Sort order"`
	Order       string `query:"order" enum:"asc,desc" doc:"Sort direction"`
}

// SearchOutput wraps search results.
type SearchOutput struct {
	Body *search.SearchResult
}

// PropertyIDInput selects one listing.
type PropertyIDInput struct {
	ID string `path:"id" doc:"Property ID"`
}

// PropertyOutput wraps one listing.
type PropertyOutput struct {
	Body *domain.Property
}

// === Handlers ===

func (s *Server) handleBrowseProperties(ctx context.Context, input *BrowsePropertiesInput) (*PropertyPageOutput, error) {
	page, err := s.services.Listing.Browse(ctx, service.BrowseFilter{
		Category:     input.Category,
		City:         input.City,
		MinPrice:     input.MinPrice,
		MaxPrice:     input.MaxPrice,
		MinBedrooms:  input.MinBedrooms,
		FeaturedOnly: input.FeaturedOnly,
		Limit:        input.Limit,
		Offset:       input.Offset,
	})
	if err != nil {
		return nil, s.handlerError(err, "browse failed")
	}
	return &PropertyPageOutput{Body: page}, nil
}

func (s *Server) handleSearchProperties(ctx context.Context, input *SearchPropertiesInput) (*SearchOutput, error) {
	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.Category = input.Category
	params.City = input.City
	params.MinPrice = input.MinPrice
	params.MaxPrice = input.MaxPrice
	params.MinBedrooms = input.MinBedrooms
	params.Featured = input.Featured
	params.Offset = input.Offset
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	if input.Sort != "" {
		params.SortBy = input.Sort
	}
	if input.Order != "" {
		params.SortOrder = input.Order
	}

	result, err := s.services.Listing.Search(ctx, params)
	if err != nil {
		return nil, s.handlerError(err, "search failed", "query", input.Query)
	}
	return &SearchOutput{Body: result}, nil
}

func (s *Server) handleGetProperty(ctx context.Context, input *PropertyIDInput) (*PropertyOutput, error) {
	p, err := s.services.Listing.Get(ctx, currentUser(ctx), input.ID)
	if err != nil {
		return nil, s.handlerError(err, "get property failed", "property_id", input.ID)
	}
	return &PropertyOutput{Body: p}, nil
}

func (s *Server) handleListMyProperties(ctx context.Context, input *PageParams) (*PropertyPageOutput, error) {
	page, err := s.services.Listing.Mine(ctx, currentUser(ctx), input.Limit, input.Offset)
	if err != nil {
		return nil, s.handlerError(err, "list own properties failed")
	}
	return &PropertyPageOutput{Body: page}, nil
}
