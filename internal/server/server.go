// Package server provides the HTTP API for kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/rag"
)

// Server is the HTTP server for the kotae API.
type Server struct {
	pipeline *rag.Pipeline
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(pipeline *rag.Pipeline, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		pipeline: pipeline,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/chat", s.handleChat)
	r.Post("/api/v1/query", s.handleQuery)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/reindex", s.handleReindex)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
