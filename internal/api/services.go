package api

import (
	"github.com/estately/estately-server/internal/objectstore"
	"github.com/estately/estately-server/internal/search"
	"github.com/estately/estately-server/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Auth       *service.AuthService
	Listing    *service.ListingService
	Favorites  *service.FavoritesService
	Submission *service.SubmissionService
	Moderation *service.ModerationService
	Search     *search.SearchIndex // nil when search is disabled
}

// StorageServices groups the public buckets served by the API server.
type StorageServices struct {
	PropertyImages *objectstore.Bucket
}
