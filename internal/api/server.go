package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/mailguard/internal/config"
)

// Server is the HTTP API server.
type Server struct {
	cfg     config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer wires the router.
func NewServer(cfg config.ServerConfig, h *Handlers, hc *HealthChecker) *Server {
	return &Server{cfg: cfg, handler: SetupRoutes(h, hc, cfg.AllowedOrigins)}
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.handler,
		ReadTimeout:       time.Duration(s.cfg.ReadTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(s.cfg.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler { return s.handler }
