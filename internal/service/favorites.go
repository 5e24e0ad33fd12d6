package service

import (
	"context"
	"log/slog"

	"github.com/estately/estately-server/internal/domain"
	domainerrors "github.com/estately/estately-server/internal/errors"
	"github.com/estately/estately-server/internal/favorites"
	"github.com/estately/estately-server/internal/metrics"
	"github.com/estately/estately-server/internal/sse"
)

// FavoriteLister fetches a user's favorited listings.
type FavoriteLister interface {
	ListFavoriteProperties(ctx context.Context, userID string) ([]*domain.Property, error)
}

// FavoritesService serves the favorites page and the toggle button.
type FavoritesService struct {
	registry *favorites.Registry
	store    FavoriteLister
	events   EventEmitter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewFavoritesService creates a new favorites service.
func NewFavoritesService(
	registry *favorites.Registry,
	store FavoriteLister,
	events EventEmitter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *FavoritesService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FavoritesService{
		registry: registry,
		store:    store,
		events:   emitterOrNoop(events),
		metrics:  m,
		logger:   logger,
	}
}

// List returns the user's favorited listings, most recently favorited
// first. Favorites whose listing was deleted are skipped.
func (s *FavoritesService) List(ctx context.Context, user *domain.User) ([]*domain.Property, error) {
	if user == nil {
		return nil, domainerrors.Unauthorized("Please sign in to view favorites")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	props, err := s.store.ListFavoriteProperties(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to load favorite listings", "user_id", user.ID, "error", err)
		return nil, domainerrors.Internal("Failed to load favorites").WithCause(err)
	}

	out := props[:0]
	for _, p := range props {
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// IDs returns the sorted set of favorited listing IDs.
func (s *FavoritesService) IDs(ctx context.Context, user *domain.User) ([]string, error) {
	m, err := s.registry.For(ctx, user)
	if err != nil {
		return nil, err
	}
	return m.IDs(), nil
}

// Toggle flips a favorite and reports the new state.
func (s *FavoritesService) Toggle(ctx context.Context, user *domain.User, propertyID string) (bool, error) {
	m, err := s.registry.For(ctx, user)
	if err != nil {
		s.metrics.FavoriteToggled(metrics.OutcomeFailed)
		return false, err
	}

	favorited, err := m.Toggle(ctx, user, propertyID)
	if err != nil {
		s.metrics.FavoriteToggled(metrics.OutcomeFailed)
		return favorited, err
	}

	if favorited {
		s.metrics.FavoriteToggled("added")
	} else {
		s.metrics.FavoriteToggled("removed")
	}
	s.events.Emit(sse.NewFavoriteEvent(user.ID, propertyID, favorited))

	s.logger.Debug("favorite toggled",
		"user_id", user.ID,
		"property_id", propertyID,
		"favorited", favorited,
	)
	return favorited, nil
}

