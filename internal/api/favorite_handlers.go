package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/estately/estately-server/internal/domain"
)

func (s *Server) registerFavoriteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listFavorites",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/favorites",
		Summary:     "List favorites",
		Description: "Returns favorited listings, most recently favorited first",
		Tags:        []string{"Favorites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListFavorites)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFavoriteIDs",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/favorites/ids",
		Summary:     "Favorite IDs",
		Description: "Returns the set of favorited listing IDs, used to render heart buttons",
		Tags:        []string{"Favorites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListFavoriteIDs)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleFavorite",
		Method:      http.MethodPost,
		Path:        "/api/v1/me/favorites/{id}/toggle",
		Summary:     "Toggle favorite",
		Description: "Adds or removes a listing from favorites and returns the new state",
		Tags:        []string{"Favorites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleFavorite)
}

// === DTOs ===

// FavoritesOutput lists favorited listings.
type FavoritesOutput struct {
	Body struct {
		Properties []*domain.Property `json:"properties"`
	}
}

// FavoriteIDsOutput lists favorited listing IDs.
type FavoriteIDsOutput struct {
	Body struct {
		IDs []string `json:"ids"`
	}
}

// ToggleFavoriteOutput reports the state after a toggle.
type ToggleFavoriteOutput struct {
	Body struct {
		PropertyID string `json:"property_id"`
		Favorited  bool   `json:"favorited"`
	}
}

// === Handlers ===

func (s *Server) handleListFavorites(ctx context.Context, _ *struct{}) (*FavoritesOutput, error) {
	props, err := s.services.Favorites.List(ctx, currentUser(ctx))
	if err != nil {
		return nil, s.handlerError(err, "list favorites failed")
	}
	out := &FavoritesOutput{}
	out.Body.Properties = props
	return out, nil
}

func (s *Server) handleListFavoriteIDs(ctx context.Context, _ *struct{}) (*FavoriteIDsOutput, error) {
	ids, err := s.services.Favorites.IDs(ctx, currentUser(ctx))
	if err != nil {
		return nil, s.handlerError(err, "list favorite ids failed")
	}
	out := &FavoriteIDsOutput{}
	out.Body.IDs = ids
	return out, nil
}

func (s *Server) handleToggleFavorite(ctx context.Context, input *PropertyIDInput) (*ToggleFavoriteOutput, error) {
	favorited, err := s.services.Favorites.Toggle(ctx, currentUser(ctx), input.ID)
	if err != nil {
		return nil, s.handlerError(err, "toggle favorite failed", "property_id", input.ID)
	}
	out := &ToggleFavoriteOutput{}
	out.Body.PropertyID = input.ID
	out.Body.Favorited = favorited
	return out, nil
}
