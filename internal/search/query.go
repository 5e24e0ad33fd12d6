package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/estately/estately-server/internal/normalize"
)

// Sort orders accepted by Search.
const (
	SortRelevance = "relevance"
	SortPrice     = "price"
	SortRecent    = "recent"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query string

	// Filters
	Category    string
	City        string // matched on its slug
	MinPrice    int64
	MaxPrice    int64
	MinBedrooms int
	Featured    bool

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // relevance, price, recent
	SortOrder string // asc, desc

	IncludeFacets bool
	Highlight     bool
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:         20,
		SortBy:        SortRelevance,
		SortOrder:     "desc",
		IncludeFacets: true,
		Highlight:     true,
	}
}

// SearchResult is one page of hits.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Facets SearchFacets `json:"facets,omitzero"`
}

// SearchHit is one matching listing.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	City       string            `json:"city"`
	Category   string            `json:"category"`
	Price      int64             `json:"price"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// SearchFacets contains facet counts.
type SearchFacets struct {
	Categories []FacetCount `json:"categories,omitempty"`
	Cities     []FacetCount `json:"cities,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(req, params)

	if params.IncludeFacets {
		req.AddFacet("category", bleve.NewFacetRequest("category", 10))
		req.AddFacet("city_slug", bleve.NewFacetRequest("city_slug", 20))
	}
	if params.Highlight && params.Query != "" {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
		req.Highlight.AddField("description")
	}
	req.Fields = []string{"title", "city", "category", "price"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}

	for _, hit := range res.Hits {
		h := SearchHit{ID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["title"].(string); ok {
			h.Title = v
		}
		if v, ok := hit.Fields["city"].(string); ok {
			h.City = v
		}
		if v, ok := hit.Fields["category"].(string); ok {
			h.Category = v
		}
		if v, ok := hit.Fields["price"].(float64); ok {
			h.Price = int64(v)
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	if params.IncludeFacets {
		result.Facets = extractFacets(res)
	}

	return result, nil
}

// buildSearchQuery ANDs the text query with every filter.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		titleMatch := bleve.NewMatchQuery(q)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		descMatch := bleve.NewMatchQuery(q)
		descMatch.SetField("description")

		placeQueries := []query.Query{titleMatch, descMatch}
		for _, field := range []string{"address", "city", "state"} {
			m := bleve.NewMatchQuery(q)
			m.SetField(field)
			m.SetBoost(1.5)
			placeQueries = append(placeQueries, m)
		}

		// Typo tolerance on the title.
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)
		placeQueries = append(placeQueries, fuzzy)

		queries = append(queries, bleve.NewDisjunctionQuery(placeQueries...))
	}

	if params.Category != "" {
		tq := bleve.NewTermQuery(params.Category)
		tq.SetField("category")
		queries = append(queries, tq)
	}

	if slug := normalize.Slugify(params.City); slug != "" {
		tq := bleve.NewTermQuery(slug)
		tq.SetField("city_slug")
		queries = append(queries, tq)
	}

	if params.MinPrice > 0 || params.MaxPrice > 0 {
		var lo, hi *float64
		if params.MinPrice > 0 {
			v := float64(params.MinPrice)
			lo = &v
		}
		if params.MaxPrice > 0 {
			v := float64(params.MaxPrice)
			hi = &v
		}
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(lo, hi, &inclusive, &inclusive)
		rq.SetField("price")
		queries = append(queries, rq)
	}

	if params.MinBedrooms > 0 {
		lo := float64(params.MinBedrooms)
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(&lo, nil, &inclusive, nil)
		rq.SetField("bedrooms")
		queries = append(queries, rq)
	}

	if params.Featured {
		bq := bleve.NewBoolFieldQuery(true)
		bq.SetField("featured")
		queries = append(queries, bq)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	switch params.SortBy {
	case SortPrice:
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-price", "-_score"})
		} else {
			req.SortBy([]string{"price", "-_score"})
		}
	case SortRecent:
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at"})
		} else {
			req.SortBy([]string{"-created_at"})
		}
	default:
		req.SortBy([]string{"-_score", "-created_at"})
	}
}

// extractFacets converts Bleve facets to our format.
func extractFacets(result *bleve.SearchResult) SearchFacets {
	facets := SearchFacets{}

	if f, ok := result.Facets["category"]; ok && f.Terms != nil {
		for _, term := range f.Terms.Terms() {
			facets.Categories = append(facets.Categories, FacetCount{Value: term.Term, Count: term.Count})
		}
	}
	if f, ok := result.Facets["city_slug"]; ok && f.Terms != nil {
		for _, term := range f.Terms.Terms() {
			facets.Cities = append(facets.Cities, FacetCount{Value: term.Term, Count: term.Count})
		}
	}
	return facets
}
