package sqlite

import (
	"context"
	"fmt"

	"github.com/estately/estately-server/internal/domain"
)

// AddFavorite records a bookmark.
// Returns store.ErrAlreadyExists if the pair is already present and
// store.ErrNotFound if the user or property does not exist.
func (s *Store) AddFavorite(ctx context.Context, fav *domain.Favorite) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, property_id, created_at) VALUES (?, ?, ?)`,
		fav.UserID, fav.PropertyID, formatTime(fav.CreatedAt))
	return mapWriteErr(err)
}

// RemoveFavorite deletes a bookmark. Zero affected rows is success.
func (s *Store) RemoveFavorite(ctx context.Context, userID, propertyID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND property_id = ?`, userID, propertyID)
	return err
}

// ListFavoriteIDs returns the property IDs a user has bookmarked.
func (s *Store) ListFavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT property_id FROM favorites WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorite ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListFavoriteProperties returns a user's bookmarked listings, most recently
// bookmarked first.
func (s *Store) ListFavoriteProperties(ctx context.Context, userID string) ([]*domain.Property, error) {
	props, err := s.queryProperties(ctx,
		`SELECT `+propertyColumns+` FROM favorites f
		JOIN properties p ON p.id = f.property_id
		WHERE f.user_id = ? AND p.deleted_at IS NULL
		ORDER BY f.created_at DESC, p.id`, userID)
	if err != nil {
		return nil, err
	}
	if props == nil {
		props = []*domain.Property{}
	}
	return props, nil
}
