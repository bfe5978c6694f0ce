// Package api exposes the reconciliation engine over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/settleworks/recon-backend/internal/api/handlers"
	"github.com/settleworks/recon-backend/internal/api/middleware"
	"github.com/settleworks/recon-backend/internal/domain/recon"
	"github.com/settleworks/recon-backend/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	// Workers bounds concurrent ledger queries per reconcile request.
	Workers int
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		Workers:        4,
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new API server for one merchant scope.
func NewServer(cfg Config, engine *recon.Engine, repo storage.Repository, scope string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		config: cfg,
		router: router,
		logger: logger,
	}

	base := handlers.NewBase(repo, scope, logger)
	health := handlers.NewHealthHandler()
	stats := handlers.NewStatsHandler(base)
	claims := handlers.NewClaimsHandler(base)
	reconcile := handlers.NewReconcileHandler(base, engine, cfg.Workers)

	// Health check (no /api prefix - for load balancers)
	router.GET("/health", health.Check)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/stats", stats.Get)
		apiGroup.GET("/claims", claims.List)
		apiGroup.POST("/reconcile", reconcile.Run)
	}

	return s
}

// Router exposes the underlying handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("API server listening", "port", s.config.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
