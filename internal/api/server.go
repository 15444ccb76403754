package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/cert-registry/internal/config"
	"github.com/ignite/cert-registry/internal/pkg/logger"
)

// Server wraps the HTTP server for the registration and certificate API.
type Server struct {
	config config.ServerConfig
	server *http.Server
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg config.ServerConfig, h *Handlers) *Server {
	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      SetupRoutes(h),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	logger.Info("API server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
