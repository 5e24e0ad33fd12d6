package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/estately/estately-server/internal/domain"
	"github.com/estately/estately-server/internal/store"
)

func TestCreateAndGetProperty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "seller-1", "s@example.com")

	p := makeTestProperty("prop-1", "seller-1")
	p.Images = []string{"https://cdn/x/1.jpg", "https://cdn/x/2.jpg"}
	p.SetPlaceholder("https://cdn/x/1.jpg", "LEHV6nWB2yk8")
	p.TaxReceiptURL = "https://cdn/x/tax.pdf"
	mustCreateProperty(t, s, p)

	got, err := s.GetProperty(ctx, "prop-1")
	if err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	if got.Title != p.Title || got.Price != p.Price || got.Category != domain.CategoryHouse {
		t.Errorf("scalar fields mismatch: %+v", got)
	}
	if len(got.Images) != 2 || got.Images[0] != "https://cdn/x/1.jpg" {
		t.Errorf("Images = %v", got.Images)
	}
	if got.ImagePlaceholders["https://cdn/x/1.jpg"] != "LEHV6nWB2yk8" {
		t.Errorf("ImagePlaceholders = %v", got.ImagePlaceholders)
	}
	if !got.HasVerificationDocument() {
		t.Error("expected tax receipt")
	}
	if got.Status != domain.StatusPending || got.Featured {
		t.Errorf("status/featured = %s/%v", got.Status, got.Featured)
	}
}

func TestCreateProperty_UnknownSeller(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateProperty(context.Background(), makeTestProperty("prop-1", "ghost"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing seller, got %v", err)
	}
}

func TestUpdateProperty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "seller-1", "s@example.com")

	p := makeTestProperty("prop-1", "seller-1")
	mustCreateProperty(t, s, p)

	p.Title = "Renovated bungalow"
	p.AppendImages("https://cdn/x/3.jpg")
	p.Touch()
	if err := s.UpdateProperty(ctx, p); err != nil {
		t.Fatalf("UpdateProperty: %v", err)
	}

	got, _ := s.GetProperty(ctx, "prop-1")
	if got.Title != "Renovated bungalow" || len(got.Images) != 1 {
		t.Errorf("update not persisted: %+v", got)
	}

	if err := s.UpdateProperty(ctx, makeTestProperty("ghost", "seller-1")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePropertyStatus_ClearsFeaturedOffAvailable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "seller-1", "s@example.com")
	mustCreateProperty(t, s, makeTestProperty("prop-1", "seller-1"))

	if err := s.UpdatePropertyStatus(ctx, "prop-1", domain.StatusAvailable, true); err != nil {
		t.Fatalf("UpdatePropertyStatus: %v", err)
	}
	got, _ := s.GetProperty(ctx, "prop-1")
	if got.Status != domain.StatusAvailable || !got.Featured {
		t.Fatalf("got %s/%v", got.Status, got.Featured)
	}

	if err := s.UpdatePropertyStatus(ctx, "prop-1", domain.StatusPending, true); err != nil {
		t.Fatalf("UpdatePropertyStatus: %v", err)
	}
	got, _ = s.GetProperty(ctx, "prop-1")
	if got.Featured {
		t.Error("featured should be cleared when leaving available")
	}

	if err := s.UpdatePropertyStatus(ctx, "prop-1", "archived", false); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := s.UpdatePropertyStatus(ctx, "ghost", domain.StatusPending, false); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListProperties_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "seller-1", "s@example.com")

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		p := makeTestProperty(id, "seller-1")
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		mustCreateProperty(t, s, p)
	}

	all, err := s.ListProperties(ctx)
	if err != nil {
		t.Fatalf("ListProperties: %v", err)
	}
	if len(all) != 3 || all[0].ID != "new" || all[2].ID != "old" {
		ids := make([]string, len(all))
		for i, p := range all {
			ids[i] = p.ID
		}
		t.Errorf("order = %v", ids)
	}
}

func TestQueryProperties_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "seller-1", "s@example.com")
	mustCreateUser(t, s, "seller-2", "t@example.com")

	cheap := makeTestProperty("cheap", "seller-1")
	cheap.Price = 100000
	cheap.Status = domain.StatusAvailable
	cheap.CreatedAt = time.Now().Add(-2 * time.Minute)

	condo := makeTestProperty("condo", "seller-2")
	condo.Category = domain.CategoryCondo
	condo.City = "Chicago"
	condo.Bedrooms = 1
	condo.Status = domain.StatusAvailable
	condo.Featured = true
	condo.CreatedAt = time.Now().Add(-3 * time.Minute)

	pending := makeTestProperty("pending", "seller-1")
	pending.CreatedAt = time.Now().Add(-time.Minute)

	for _, p := range []*domain.Property{cheap, condo, pending} {
		mustCreateProperty(t, s, p)
	}

	tests := []struct {
		name   string
		filter store.PropertyFilter
		want   []string
	}{
		{"available", store.PropertyFilter{Status: domain.StatusAvailable}, []string{"cheap", "condo"}},
		{"featured first", store.PropertyFilter{Status: domain.StatusAvailable, FeaturedFirst: true}, []string{"condo", "cheap"}},
		{"featured only", store.PropertyFilter{FeaturedOnly: true}, []string{"condo"}},
		{"by seller", store.PropertyFilter{SellerID: "seller-1"}, []string{"pending", "cheap"}},
		{"by category", store.PropertyFilter{Category: domain.CategoryCondo}, []string{"condo"}},
		{"by city", store.PropertyFilter{City: "chicago"}, []string{"condo"}},
		{"price range", store.PropertyFilter{MinPrice: 200000, MaxPrice: 400000}, []string{"pending", "condo"}},
		{"bedrooms", store.PropertyFilter{MinBedrooms: 2}, []string{"pending", "cheap"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.QueryProperties(ctx, tt.filter)
			if err != nil {
				t.Fatalf("QueryProperties: %v", err)
			}
			var got []string
			for _, p := range page.Items {
				got = append(got, p.ID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
			if page.Total != len(tt.want) {
				t.Errorf("Total = %d, want %d", page.Total, len(tt.want))
			}
		})
	}
}

func TestQueryProperties_Pagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "seller-1", "s@example.com")

	for i := range 5 {
		p := makeTestProperty(string(rune('a'+i)), "seller-1")
		p.CreatedAt = time.Now().Add(time.Duration(-i) * time.Minute)
		mustCreateProperty(t, s, p)
	}

	page, err := s.QueryProperties(ctx, store.PropertyFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("QueryProperties: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].ID != "c" || !page.HasMore || page.Total != 5 {
		t.Errorf("unexpected page: items=%d first=%s more=%v total=%d",
			len(page.Items), page.Items[0].ID, page.HasMore, page.Total)
	}
}

func TestCountProperties(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "seller-1", "s@example.com")

	withReceipt := makeTestProperty("a", "seller-1")
	withReceipt.TaxReceiptURL = "https://cdn/tax.pdf"
	mustCreateProperty(t, s, withReceipt)
	mustCreateProperty(t, s, makeTestProperty("b", "seller-1"))

	total, err := s.CountProperties(ctx)
	if err != nil || total != 2 {
		t.Errorf("CountProperties = %d, %v", total, err)
	}
	verified, err := s.CountPropertiesWithTaxReceipt(ctx)
	if err != nil || verified != 1 {
		t.Errorf("CountPropertiesWithTaxReceipt = %d, %v", verified, err)
	}
}

func TestDeleteProperty_CascadesFavorites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, s, "seller-1", "s@example.com")
	mustCreateUser(t, s, "buyer-1", "b@example.com")
	mustCreateProperty(t, s, makeTestProperty("prop-1", "seller-1"))

	if err := s.AddFavorite(ctx, &domain.Favorite{UserID: "buyer-1", PropertyID: "prop-1", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("AddFavorite: %v", err)
	}
	if err := s.DeleteProperty(ctx, "prop-1"); err != nil {
		t.Fatalf("DeleteProperty: %v", err)
	}

	ids, err := s.ListFavoriteIDs(ctx, "buyer-1")
	if err != nil {
		t.Fatalf("ListFavoriteIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("favorites should cascade, got %v", ids)
	}
}
