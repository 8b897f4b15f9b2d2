// Package api provides the HTTP API server for the wizard.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/droidwrap/droidwrap/internal/api/handlers"
	"github.com/droidwrap/droidwrap/internal/api/health"
	"github.com/droidwrap/droidwrap/internal/api/middleware"
	"github.com/droidwrap/droidwrap/internal/auth"
	"github.com/droidwrap/droidwrap/internal/metrics"
	"github.com/droidwrap/droidwrap/internal/store"
	"github.com/droidwrap/droidwrap/internal/wizard"
	"github.com/droidwrap/droidwrap/pkg/config"
	"github.com/droidwrap/droidwrap/ui"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	store         store.Store
	manager       *wizard.Manager
	auth          *auth.Service
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, st store.Store, mgr *wizard.Manager, authSvc *auth.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:   st,
		manager: mgr,
		auth:    authSvc,
		config:  cfg,
		logger:  logger,
	}
	s.healthChecker = health.NewChecker(st, Version)
	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health and metrics (no auth required)
	r.Get("/health", s.healthChecker.Handler())
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Auth routes (no auth required)
	authHandler := handlers.NewAuthHandler(s.auth, s.logger)
	r.Route("/auth", func(r chi.Router) {
		r.Get("/status", authHandler.Status)
		r.Post("/login", authHandler.Login)
	})

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		authMiddleware := middleware.NewAuthMiddleware(s.auth, s.logger)
		r.Use(authMiddleware.Authenticate)

		sessionHandler := handlers.NewSessionsHandler(s.manager, s.logger)
		logStreamHandler := handlers.NewLogStreamHandler(s.manager, s.logger)
		logWSHandler := handlers.NewLogWSHandler(s.manager, s.logger)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Post("/analyze", sessionHandler.Analyze)
				r.Put("/config", sessionHandler.UpdateConfig)
				r.Post("/build", sessionHandler.StartBuild)
				r.Post("/back", sessionHandler.Back)
				r.Post("/configure", sessionHandler.Configure)
				r.Get("/report", sessionHandler.Report)
				r.Get("/logs", sessionHandler.Logs)

				// Real-time console streaming
				r.Get("/logs/stream", logStreamHandler.Stream)
				r.Get("/logs/ws", logWSHandler.Stream)
			})
		})

		runsHandler := handlers.NewRunsHandler(s.store, s.logger)
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", runsHandler.List)
			r.Route("/{runID}", func(r chi.Router) {
				r.Get("/", runsHandler.Get)
				r.Get("/logs", runsHandler.Logs)
			})
		})
	})

	// Embedded web UI with SPA fallback
	if ui.Available() {
		r.NotFound(ui.Handler().ServeHTTP)
	}

	s.router = r
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
		// No global write timeout: SSE and websocket streams stay open
		// for the life of a run.
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Name implements shutdown.Component.
func (s *Server) Name() string { return "api" }

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
