// Package api provides the HTTP API server and handlers for Estately.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/estately/estately-server/internal/config"
	"github.com/estately/estately-server/internal/metrics"
	"github.com/estately/estately-server/internal/sse"
	"github.com/estately/estately-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           store.Store
	services        *Services
	storage         *StorageServices
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	sseManager      *sse.Manager
	sseHandler      *sse.Handler
	metrics         *metrics.Metrics
	authRateLimiter *RateLimiter
	maxUploadBytes  int64
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	st store.Store,
	services *Services,
	storage *StorageServices,
	sseManager *sse.Manager,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()

	s := &Server{
		store:          st,
		services:       services,
		storage:        storage,
		router:         router,
		logger:         logger,
		sseManager:     sseManager,
		metrics:        m,
		maxUploadBytes: cfg.Uploads.MaxFileBytes,
		authRateLimiter: NewRateLimiter(
			cfg.RateLimit.AuthPerMinute, time.Minute, cfg.RateLimit.AuthBurst,
		),
	}

	s.setupMiddleware(cfg.Server.CORSOrigins)

	s.api = humachi.New(router, newHumaConfig())
	RegisterErrorHandler()

	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, s.identifyStream, logger)
	}

	s.registerRoutes()
	return s
}

func newHumaConfig() huma.Config {
	humaConfig := huma.DefaultConfig("Estately API", "1.0.0")
	humaConfig.Info.Description = "Real estate listings, favorites, submissions and moderation."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	return humaConfig
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

// Shutdown releases background resources owned by the server.
func (s *Server) Shutdown() error {
	if s.authRateLimiter != nil {
		s.authRateLimiter.Stop()
	}
	return nil
}

func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(RateLimitMiddleware(s.authRateLimiter, authRateLimitedPath, s.logger))
	s.router.Use(authMiddleware(s.services.Auth))
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerPropertyRoutes()
	s.registerSubmissionRoutes()
	s.registerFavoriteRoutes()
	s.registerAdminRoutes()
	s.registerStorageRoutes()

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}
	if s.sseHandler != nil {
		s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	}
}
