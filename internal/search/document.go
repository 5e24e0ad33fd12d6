// Package search provides full-text search over public listings using Bleve,
// with category and city faceting and price range filtering.
package search

import (
	"github.com/estately/estately-server/internal/domain"
	"github.com/estately/estately-server/internal/normalize"
)

// PropertyDocument is the structure indexed for each available listing.
//
// Only available listings are indexed; pending and rejected ones are kept
// out so search never leaks unmoderated content.
type PropertyDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"` // plain text
	Address     string `json:"address"`
	City        string `json:"city"`
	CitySlug    string `json:"city_slug"`
	State       string `json:"state"`
	ZipCode     string `json:"zip_code"`
	Category    string `json:"category"`

	Price     int64 `json:"price"`
	Bedrooms  int   `json:"bedrooms"`
	Bathrooms int   `json:"bathrooms"`
	Area      int   `json:"area"`
	Featured  bool  `json:"featured"`

	CreatedAt int64 `json:"created_at"` // Unix millis
}

// ToMap converts the document to a map keyed by the mapping's field names.
func (d *PropertyDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"title":      d.Title,
		"address":    d.Address,
		"city":       d.City,
		"city_slug":  d.CitySlug,
		"state":      d.State,
		"zip_code":   d.ZipCode,
		"category":   d.Category,
		"price":      d.Price,
		"bedrooms":   d.Bedrooms,
		"bathrooms":  d.Bathrooms,
		"area":       d.Area,
		"featured":   d.Featured,
		"created_at": d.CreatedAt,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	return m
}

// PropertyToDocument converts a listing to its search document.
func PropertyToDocument(p *domain.Property) *PropertyDocument {
	return &PropertyDocument{
		ID:          p.ID,
		Title:       p.Title,
		Description: normalize.PlainText(p.Description),
		Address:     p.Address,
		City:        p.City,
		CitySlug:    normalize.Slugify(p.City),
		State:       p.State,
		ZipCode:     p.ZipCode,
		Category:    string(p.Category),
		Price:       p.Price,
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		Area:        p.Area,
		Featured:    p.Featured,
		CreatedAt:   p.CreatedAt.UnixMilli(),
	}
}
