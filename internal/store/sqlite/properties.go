package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/estately/estately-server/internal/domain"
	"github.com/estately/estately-server/internal/store"
)

// propertyColumns is the ordered list of columns selected in property queries.
// Must match the scan order in scanProperty.
const propertyColumns = `p.id, p.created_at, p.updated_at, p.deleted_at, p.seller_id,
	p.title, p.price, p.property_type, p.bedrooms, p.bathrooms, p.area,
	p.address, p.city, p.state, p.zip_code, p.description,
	p.images, p.image_placeholders, p.tax_receipt_url, p.status, p.featured`

func scanProperty(scanner interface{ Scan(dest ...any) error }) (*domain.Property, error) {
	var p domain.Property

	var (
		createdAt    string
		updatedAt    string
		deletedAt    sql.NullString
		category     string
		images       string
		placeholders string
		taxReceipt   sql.NullString
		status       string
		featured     int
	)

	err := scanner.Scan(
		&p.ID,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&p.SellerID,
		&p.Title,
		&p.Price,
		&category,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.Area,
		&p.Address,
		&p.City,
		&p.State,
		&p.ZipCode,
		&p.Description,
		&images,
		&placeholders,
		&taxReceipt,
		&status,
		&featured,
	)
	if err != nil {
		return nil, err
	}

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if p.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("decode images for %s: %w", p.ID, err)
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if placeholders != "" && placeholders != "{}" {
		if err := json.Unmarshal([]byte(placeholders), &p.ImagePlaceholders); err != nil {
			return nil, fmt.Errorf("decode placeholders for %s: %w", p.ID, err)
		}
	}

	p.Category = domain.Category(category)
	p.Status = domain.Status(status)
	p.TaxReceiptURL = taxReceipt.String
	p.Featured = featured != 0

	return &p, nil
}

func encodeMedia(p *domain.Property) (images, placeholders string, err error) {
	imgs := p.Images
	if imgs == nil {
		imgs = []string{}
	}
	ib, err := json.Marshal(imgs)
	if err != nil {
		return "", "", err
	}
	ph := p.ImagePlaceholders
	if ph == nil {
		ph = map[string]string{}
	}
	pb, err := json.Marshal(ph)
	if err != nil {
		return "", "", err
	}
	return string(ib), string(pb), nil
}

// CreateProperty inserts a new listing.
func (s *Store) CreateProperty(ctx context.Context, p *domain.Property) error {
	images, placeholders, err := encodeMedia(p)
	if err != nil {
		return fmt.Errorf("encode media: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO properties (
			id, created_at, updated_at, deleted_at, seller_id,
			title, price, property_type, bedrooms, bathrooms, area,
			address, city, state, zip_code, description,
			images, image_placeholders, tax_receipt_url, status, featured
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
		nullTimeString(p.DeletedAt),
		p.SellerID,
		p.Title,
		p.Price,
		string(p.Category),
		p.Bedrooms,
		p.Bathrooms,
		p.Area,
		p.Address,
		p.City,
		p.State,
		p.ZipCode,
		p.Description,
		images,
		placeholders,
		nullString(p.TaxReceiptURL),
		string(p.Status),
		boolToInt(p.Featured),
	)
	return mapWriteErr(err)
}

// GetProperty retrieves a listing by ID.
func (s *Store) GetProperty(ctx context.Context, id string) (*domain.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties p WHERE p.id = ? AND p.deleted_at IS NULL`, id)
	p, err := scanProperty(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return p, nil
}

// UpdateProperty writes every mutable field of a listing. The seller is immutable.
func (s *Store) UpdateProperty(ctx context.Context, p *domain.Property) error {
	images, placeholders, err := encodeMedia(p)
	if err != nil {
		return fmt.Errorf("encode media: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE properties SET
			updated_at = ?, title = ?, price = ?, property_type = ?,
			bedrooms = ?, bathrooms = ?, area = ?,
			address = ?, city = ?, state = ?, zip_code = ?, description = ?,
			images = ?, image_placeholders = ?, tax_receipt_url = ?,
			status = ?, featured = ?
		WHERE id = ? AND deleted_at IS NULL`,
		formatTime(p.UpdatedAt),
		p.Title,
		p.Price,
		string(p.Category),
		p.Bedrooms,
		p.Bathrooms,
		p.Area,
		p.Address,
		p.City,
		p.State,
		p.ZipCode,
		p.Description,
		images,
		placeholders,
		nullString(p.TaxReceiptURL),
		string(p.Status),
		boolToInt(p.Featured),
		p.ID,
	)
	if err != nil {
		return mapWriteErr(err)
	}
	return requireOneRow(result)
}

// UpdatePropertyStatus sets status and featured without touching other fields.
func (s *Store) UpdatePropertyStatus(ctx context.Context, id string, status domain.Status, featured bool) error {
	if !status.Valid() {
		return store.ErrInvalidInput.WithCause(fmt.Errorf("unknown status %q", status))
	}
	if status != domain.StatusAvailable {
		featured = false
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE properties SET status = ?, featured = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		string(status), boolToInt(featured), formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	return requireOneRow(result)
}

// DeleteProperty removes a listing and, by cascade, its favorites.
func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireOneRow(result)
}

// ListProperties returns every listing, newest first.
func (s *Store) ListProperties(ctx context.Context) ([]*domain.Property, error) {
	return s.queryProperties(ctx,
		`SELECT `+propertyColumns+` FROM properties p
		WHERE p.deleted_at IS NULL ORDER BY p.created_at DESC, p.id`)
}

// QueryProperties returns one page of listings matching filter.
func (s *Store) QueryProperties(ctx context.Context, filter store.PropertyFilter) (*store.Page[*domain.Property], error) {
	filter.Normalize()

	where, args := propertyWhere(filter)

	total, err := s.count(ctx, `SELECT COUNT(*) FROM properties p WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("count properties: %w", err)
	}

	order := `p.created_at DESC, p.id`
	if filter.FeaturedFirst {
		order = `p.featured DESC, ` + order
	}

	query := `SELECT ` + propertyColumns + ` FROM properties p WHERE ` + where +
		` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	items, err := s.queryProperties(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Property{}
	}

	return &store.Page[*domain.Property]{
		Items:   items,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasMore: filter.Offset+len(items) < total,
	}, nil
}

func propertyWhere(f store.PropertyFilter) (string, []any) {
	clauses := []string{"p.deleted_at IS NULL"}
	var args []any

	if f.SellerID != "" {
		clauses = append(clauses, "p.seller_id = ?")
		args = append(args, f.SellerID)
	}
	if f.Status != "" {
		clauses = append(clauses, "p.status = ?")
		args = append(args, string(f.Status))
	}
	if f.Category != "" {
		clauses = append(clauses, "p.property_type = ?")
		args = append(args, string(f.Category))
	}
	if f.City != "" {
		clauses = append(clauses, "LOWER(p.city) = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(f.City)))
	}
	if f.MinPrice > 0 {
		clauses = append(clauses, "p.price >= ?")
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice > 0 {
		clauses = append(clauses, "p.price <= ?")
		args = append(args, f.MaxPrice)
	}
	if f.MinBedrooms > 0 {
		clauses = append(clauses, "p.bedrooms >= ?")
		args = append(args, f.MinBedrooms)
	}
	if f.FeaturedOnly {
		clauses = append(clauses, "p.featured = 1")
	}

	return strings.Join(clauses, " AND "), args
}

func (s *Store) queryProperties(ctx context.Context, query string, args ...any) ([]*domain.Property, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	defer rows.Close()

	var out []*domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountProperties counts every listing regardless of status.
func (s *Store) CountProperties(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM properties WHERE deleted_at IS NULL`)
}

// CountPropertiesWithTaxReceipt counts listings carrying a verification document.
func (s *Store) CountPropertiesWithTaxReceipt(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM properties
		WHERE deleted_at IS NULL AND tax_receipt_url IS NOT NULL AND tax_receipt_url != ''`)
}

func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
