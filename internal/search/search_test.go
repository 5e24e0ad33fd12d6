package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estately/estately-server/internal/domain"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	index, err := NewSearchIndex(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func seedListings(t *testing.T, index *SearchIndex) {
	t.Helper()

	now := time.Now()
	docs := []*PropertyDocument{
		{
			ID: "prop-1", Title: "Sunny family house", Description: "Large garden and a quiet street",
			City: "Austin", CitySlug: "austin", State: "TX", Category: "house",
			Price: 450000, Bedrooms: 4, Featured: true, CreatedAt: now.Add(-3 * time.Hour).UnixMilli(),
		},
		{
			ID: "prop-2", Title: "Downtown loft apartment", Description: "Walk to everything",
			City: "Austin", CitySlug: "austin", State: "TX", Category: "apartment",
			Price: 320000, Bedrooms: 1, CreatedAt: now.Add(-2 * time.Hour).UnixMilli(),
		},
		{
			ID: "prop-3", Title: "Lakeside cabin", Description: "Private dock with garden",
			City: "San José", CitySlug: "san-jose", State: "CA", Category: "house",
			Price: 890000, Bedrooms: 3, CreatedAt: now.Add(-1 * time.Hour).UnixMilli(),
		},
	}
	require.NoError(t, index.IndexDocuments(docs))
}

func TestNewSearchIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNewSearchIndex_RebuildsOnVersionChange(t *testing.T) {
	dir := t.TempDir()

	index, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexDocument(&PropertyDocument{ID: "prop-1", Title: "House"}))
	require.NoError(t, index.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "listings.version"), []byte("0"), 0644))

	index, err = NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer func() { _ = index.Close() }()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count, "stale index should be recreated empty")
}

func TestSearchIndex_DeleteDocument(t *testing.T) {
	index := setupTestIndex(t)
	seedListings(t, index)

	require.NoError(t, index.DeleteDocument("prop-2"))
	require.NoError(t, index.DeleteDocument("missing"))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestSearchIndex_Sync(t *testing.T) {
	index := setupTestIndex(t)

	p := &domain.Property{
		Syncable: domain.Syncable{ID: "prop-9", CreatedAt: time.Now()},
		Title:    "Corner condo",
		City:     "Denver",
		Category: domain.CategoryCondo,
		Status:   domain.StatusAvailable,
	}
	require.NoError(t, index.Sync(p))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	p.SetStatus(domain.StatusPending)
	require.NoError(t, index.Sync(p))

	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearchIndex_Search_Text(t *testing.T) {
	index := setupTestIndex(t)
	seedListings(t, index)

	result, err := index.Search(context.Background(), SearchParams{Query: "garden", Limit: 10})
	require.NoError(t, err)

	ids := hitIDs(result)
	assert.ElementsMatch(t, []string{"prop-1", "prop-3"}, ids)
}

func TestSearchIndex_Search_MatchesCity(t *testing.T) {
	index := setupTestIndex(t)
	seedListings(t, index)

	result, err := index.Search(context.Background(), SearchParams{Query: "austin", Limit: 10})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"prop-1", "prop-2"}, hitIDs(result))
}

func TestSearchIndex_Search_Filters(t *testing.T) {
	index := setupTestIndex(t)
	seedListings(t, index)
	ctx := context.Background()

	tests := []struct {
		name   string
		params SearchParams
		want   []string
	}{
		{"category", SearchParams{Category: "house"}, []string{"prop-1", "prop-3"}},
		{"city by name", SearchParams{City: "San Jose"}, []string{"prop-3"}},
		{"min price", SearchParams{MinPrice: 400000}, []string{"prop-1", "prop-3"}},
		{"max price", SearchParams{MaxPrice: 450000}, []string{"prop-1", "prop-2"}},
		{"price band", SearchParams{MinPrice: 300000, MaxPrice: 400000}, []string{"prop-2"}},
		{"bedrooms", SearchParams{MinBedrooms: 3}, []string{"prop-1", "prop-3"}},
		{"featured", SearchParams{Featured: true}, []string{"prop-1"}},
		{"text and category", SearchParams{Query: "garden", Category: "house", City: "austin"}, []string{"prop-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.params.Limit = 10
			result, err := index.Search(ctx, tt.params)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, hitIDs(result))
		})
	}
}

func TestSearchIndex_Search_SortByPrice(t *testing.T) {
	index := setupTestIndex(t)
	seedListings(t, index)

	result, err := index.Search(context.Background(), SearchParams{SortBy: SortPrice, SortOrder: "asc", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"prop-2", "prop-1", "prop-3"}, hitIDs(result))
	assert.Equal(t, int64(320000), result.Hits[0].Price)

	result, err = index.Search(context.Background(), SearchParams{SortBy: SortRecent, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"prop-3", "prop-2", "prop-1"}, hitIDs(result))
}

func TestSearchIndex_Search_Pagination(t *testing.T) {
	index := setupTestIndex(t)
	seedListings(t, index)

	result, err := index.Search(context.Background(), SearchParams{SortBy: SortRecent, Limit: 2, Offset: 2})
	require.NoError(t, err)

	assert.Equal(t, uint64(3), result.Total)
	assert.Equal(t, []string{"prop-1"}, hitIDs(result))
}

func TestSearchIndex_Search_Facets(t *testing.T) {
	index := setupTestIndex(t)
	seedListings(t, index)

	result, err := index.Search(context.Background(), SearchParams{IncludeFacets: true, Limit: 10})
	require.NoError(t, err)

	categories := facetMap(result.Facets.Categories)
	assert.Equal(t, 2, categories["house"])
	assert.Equal(t, 1, categories["apartment"])

	cities := facetMap(result.Facets.Cities)
	assert.Equal(t, 2, cities["austin"])
	assert.Equal(t, 1, cities["san-jose"])
}

func TestSearchIndex_Search_Highlight(t *testing.T) {
	index := setupTestIndex(t)
	seedListings(t, index)

	result, err := index.Search(context.Background(), SearchParams{Query: "cabin", Highlight: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)

	hit := result.Hits[0]
	assert.Equal(t, "Lakeside cabin", hit.Title)
	assert.Contains(t, hit.Highlights["title"], "<mark>")
}

func TestSearchIndex_Rebuild(t *testing.T) {
	index := setupTestIndex(t)
	seedListings(t, index)

	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	require.NoError(t, index.IndexDocument(&PropertyDocument{ID: "prop-1", Title: "House"}))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestPropertyToDocument(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &domain.Property{
		Syncable:    domain.Syncable{ID: "prop-1", CreatedAt: created},
		Title:       "Townhouse",
		Description: "Close to **downtown**",
		City:        "Zürich",
		Category:    domain.CategoryHouse,
		Price:       1000,
	}

	doc := PropertyToDocument(p)

	assert.Equal(t, "zurich", doc.CitySlug)
	assert.Equal(t, "Close to downtown", doc.Description)
	assert.Equal(t, "house", doc.Category)
	assert.Equal(t, created.UnixMilli(), doc.CreatedAt)
}

func hitIDs(r *SearchResult) []string {
	ids := make([]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func facetMap(counts []FacetCount) map[string]int {
	m := make(map[string]int, len(counts))
	for _, c := range counts {
		m[c.Value] = c.Count
	}
	return m
}
