// Package server provides the HTTP server for the registry service.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jacobparis/registry-registry/internal/apierrors"
	"github.com/jacobparis/registry-registry/internal/config"
	"github.com/jacobparis/registry-registry/internal/handler"
	"github.com/jacobparis/registry-registry/internal/health"
	"github.com/jacobparis/registry-registry/internal/kv"
	"github.com/jacobparis/registry-registry/internal/metrics"
	"github.com/jacobparis/registry-registry/internal/middleware"
	"github.com/jacobparis/registry-registry/internal/registry"
	"github.com/jacobparis/registry-registry/internal/resolver"
)

// Server represents the HTTP server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	store        *registry.Store
	handlers     *handler.Handlers
	healthCheck  *health.HealthCheck
	errorHandler *apierrors.Handler
	logger       *zap.Logger
	cfg          *config.Config
}

// NewServer wires the registry store, resolver, and handlers over the given
// key-value backend.
func NewServer(cfg *config.Config, backend kv.Store, m *metrics.Metrics, logger *zap.Logger) *Server {
	router := mux.NewRouter()
	errorHandler := apierrors.NewHandler(logger)

	store := registry.NewStore(backend, registry.Options{
		Protocol:        cfg.Registry.Protocol,
		RootDomain:      cfg.Registry.RootDomain,
		FetchTimeout:    cfg.Registry.FetchTimeout,
		PerFetchTimeout: cfg.Registry.PerFetchTimeout,
		Revalidator:     &logRevalidator{logger: logger},
		Recorder:        m,
	}, logger)

	res := resolver.New(cfg.Registry.RootDomain, cfg.Registry.PreviewSuffix)
	handlers := handler.NewHandlers(store, res, errorHandler, logger)
	healthCheck := health.NewHealthCheck(backend, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		router:       router,
		httpServer:   httpServer,
		store:        store,
		handlers:     handlers,
		healthCheck:  healthCheck,
		errorHandler: errorHandler,
		logger:       logger,
		cfg:          cfg,
	}
}

// SetupRoutes configures all HTTP routes.
func (s *Server) SetupRoutes(m *metrics.Metrics) {
	middlewareChain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
		middleware.CORS([]string{"*"}),
		metrics.Middleware(m),
	}

	if s.cfg.RateLimiter.Enabled {
		rateLimiter := middleware.NewRateLimiter(
			s.cfg.RateLimiter.RequestsPerSecond,
			s.cfg.RateLimiter.BurstSize,
			s.logger,
		)
		middlewareChain = append(middlewareChain, rateLimiter.Limit)
	}

	chain := middleware.Chain(middlewareChain...)
	s.router.Use(func(next http.Handler) http.Handler {
		return chain(next)
	})

	// Health check endpoints
	s.router.HandleFunc("/health", s.healthCheck.LivenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.healthCheck.ReadinessHandler).Methods(http.MethodGet)

	// Tenant-scoped registry endpoints, resolved from the request host.
	s.router.HandleFunc("/r", s.handlers.TenantRegistry).Methods(http.MethodGet)
	s.router.HandleFunc("/r/{item}", s.handlers.TenantComponent).Methods(http.MethodGet)

	// Management API
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/tenants", s.handlers.CreateTenant).Methods(http.MethodPost)
	api.HandleFunc("/tenants", s.handlers.ListTenants).Methods(http.MethodGet)
	api.HandleFunc("/tenants/import", s.handlers.ImportTenant).Methods(http.MethodPost)
	api.HandleFunc("/tenants/{tenant}", s.handlers.GetTenant).Methods(http.MethodGet)
	api.HandleFunc("/tenants/{tenant}", s.handlers.DeleteTenant).Methods(http.MethodDelete)
	api.HandleFunc("/tenants/{tenant}/components", s.handlers.CreateComponent).Methods(http.MethodPost)
	api.HandleFunc("/tenants/{tenant}/components/{name}", s.handlers.GetComponent).Methods(http.MethodGet)
	api.HandleFunc("/tenants/{tenant}/components/{name}", s.handlers.UpdateComponent).Methods(http.MethodPut)
	api.HandleFunc("/tenants/{tenant}/components/{name}/exists", s.handlers.ComponentExists).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		s.errorHandler.WriteErrorResponse(w, http.StatusNotFound, apierrors.ErrorCodeInvalidRequest, "endpoint not found", requestID)
	})

	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		s.errorHandler.WriteErrorResponse(w, http.StatusMethodNotAllowed, apierrors.ErrorCodeInvalidRequest, "method not allowed", requestID)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.Int("port", s.cfg.Server.Port),
		zap.String("root_domain", s.cfg.Registry.RootDomain),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the http.Handler for the server, for tests.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// logRevalidator is the page-revalidation hook. Rendering sits behind a
// cache owned by the fronting layer; this deployment only records the
// invalidation, treating it as fire-and-forget.
type logRevalidator struct {
	logger *zap.Logger
}

func (lr *logRevalidator) Revalidate(path string) {
	lr.logger.Debug("revalidate", zap.String("path", path))
}
