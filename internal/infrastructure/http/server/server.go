// Package server provides the HTTP server for the recipe modification API
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/alchemorsel/recipemod/internal/infrastructure/config"
	"github.com/alchemorsel/recipemod/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/recipemod/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipemod/internal/infrastructure/http/response"
	"github.com/alchemorsel/recipemod/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipemod/internal/ports/inbound"
	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
	"github.com/alchemorsel/recipemod/pkg/healthcheck"
)

// Dependencies are the collaborators the router dispatches to.
// Limiter may be nil when rate limiting is disabled.
type Dependencies struct {
	Modifications inbound.ModificationService
	Catalog       inbound.RecipeCatalog
	Health        *healthcheck.HealthCheck
	Metrics       *monitoring.MetricsCollector
	Auth          *middleware.Authenticator
	Limiter       *middleware.RateLimiter
}

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	router  *chi.Mux
	server  *http.Server
	done    chan struct{}
	serving bool
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	s := &Server{
		config: cfg,
		logger: logger.Named("http"),
		done:   make(chan struct{}),
	}

	s.router = s.setupRouter(deps)

	handler := otelhttp.NewHandler(s.router, cfg.Telemetry.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return !strings.HasPrefix(r.URL.Path, "/health") && r.URL.Path != cfg.Telemetry.MetricsPath
		}),
	)

	s.server = &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	return s
}

// setupRouter configures the HTTP router with middleware and routes
func (s *Server) setupRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	r.Use(deps.Metrics.HTTPMiddleware)

	// Set before mounting so /api/v1 inherits them.
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.Error(w, req, s.logger, apperrors.NewNotFoundError("route"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.Error(w, req, s.logger, apperrors.NewMethodNotAllowedError(req.Method))
	})

	r.Get("/health", deps.Health.Handler())
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Method(http.MethodGet, s.config.Telemetry.MetricsPath, deps.Metrics.Handler())

	mods := handlers.NewModificationHandlers(deps.Modifications, s.logger)
	recipes := handlers.NewRecipeHandlers(deps.Catalog, s.logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(s.config.Server.RequestTimeout))
		if deps.Limiter != nil {
			r.Use(deps.Limiter.Middleware)
		}
		r.Use(middleware.JSONOnly(s.config.Server.MaxBodyBytes, s.logger))
		r.Use(deps.Auth.Middleware)

		r.Get("/usage", mods.Usage)
		r.Get("/recipes/{id}", recipes.GetRecipe)
		r.Put("/recipes/{id}", recipes.PutRecipe)
		r.Post("/recipes/{id}/modifications", mods.Modify)
	})

	return r
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listener and serves in the background. Bind errors are
// returned so the application fails to start.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		zap.String("address", s.server.Addr),
		zap.String("environment", s.config.App.Environment),
	)

	if err := http2.ConfigureServer(s.server, nil); err != nil {
		s.logger.Error("Failed to configure HTTP/2", zap.Error(err))
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}

	s.serving = true
	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped unexpectedly", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests until ctx ends
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	if !s.serving {
		return nil
	}

	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return nil
}
