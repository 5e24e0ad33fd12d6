package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/estately/estately-server/internal/api"
	"github.com/estately/estately-server/internal/config"
	"github.com/estately/estately-server/internal/logger"
	"github.com/estately/estately-server/internal/metrics"
	"github.com/estately/estately-server/internal/objectstore"
	"github.com/estately/estately-server/internal/service"
)

// shutdownTimeout bounds how long in-flight requests and SSE streams get to drain.
const shutdownTimeout = 30 * time.Second

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	if stopErr := h.handler.Shutdown(); err == nil {
		err = stopErr
	}
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	bucket := do.MustInvoke[*objectstore.Bucket](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth:       do.MustInvoke[*service.AuthService](i),
		Listing:    do.MustInvoke[*service.ListingService](i),
		Favorites:  do.MustInvoke[*service.FavoritesService](i),
		Submission: do.MustInvoke[*service.SubmissionService](i),
		Moderation: do.MustInvoke[*service.ModerationService](i),
		Search:     indexHandle.SearchIndex,
	}

	storage := &api.StorageServices{
		PropertyImages: bucket,
	}

	handler := api.NewServer(storeHandle.Store, services, storage, sseHandle.Manager, m, cfg, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr, "public_url", cfg.Server.PublicURL)

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
