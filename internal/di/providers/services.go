package providers

import (
	"github.com/samber/do/v2"

	"github.com/estately/estately-server/internal/auth"
	"github.com/estately/estately-server/internal/config"
	"github.com/estately/estately-server/internal/favorites"
	"github.com/estately/estately-server/internal/logger"
	"github.com/estately/estately-server/internal/metrics"
	"github.com/estately/estately-server/internal/objectstore"
	"github.com/estately/estately-server/internal/service"
)

// ProvideMetrics provides the Prometheus registry wrapper.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	m := metrics.New()
	m.RegisterGauge("estately_sse_clients", "Connected server-sent event clients.", func() float64 {
		return float64(sseHandle.ClientCount())
	})
	return m, nil
}

// ProvideSessionService provides the session management service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideFavoritesRegistry provides the per-user favorite sets.
func ProvideFavoritesRegistry(i do.Injector) (*favorites.Registry, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return favorites.NewRegistry(storeHandle.Store, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	registry := do.MustInvoke[*favorites.Registry](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(
		storeHandle.Store,
		tokenService,
		sessionService,
		registry,
		service.NewLogMailer(log.Logger),
		log.Logger,
		service.AuthOptions{
			ResetTokenTTL: cfg.Auth.ResetTokenDuration,
			PublicURL:     cfg.Server.PublicURL,
		},
	), nil
}

// ProvideListingService provides browsing and search.
func ProvideListingService(i do.Injector) (*service.ListingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewListingService(storeHandle.Store, indexHandle.Searcher(), log.Logger), nil
}

// ProvideFavoritesService provides the favorites workflow.
func ProvideFavoritesService(i do.Injector) (*service.FavoritesService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	registry := do.MustInvoke[*favorites.Registry](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewFavoritesService(registry, storeHandle.Store, sseHandle.Manager, m, log.Logger), nil
}

// ProvideSubmissionService provides the listing submission workflow.
func ProvideSubmissionService(i do.Injector) (*service.SubmissionService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	bucket := do.MustInvoke[*objectstore.Bucket](i)
	journalHandle := do.MustInvoke[*JournalHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSubmissionService(
		storeHandle.Store,
		bucket,
		journalHandle.Journal,
		indexHandle.Indexer(),
		sseHandle.Manager,
		m,
		log.Logger,
		cfg.Uploads.MaxFileBytes,
	), nil
}

// ProvideModerationService provides the admin dashboard.
func ProvideModerationService(i do.Injector) (*service.ModerationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewModerationService(storeHandle.Store, indexHandle.Indexer(), sseHandle.Manager, m, log.Logger), nil
}
