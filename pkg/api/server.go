package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/imageforge/imageforge/pkg/logging"
)

// Server wraps the HTTP server with sane timeouts and graceful shutdown
type Server struct {
	srv *http.Server
	log *logging.Logger
}

// NewServer creates a server for the given address and handler
func NewServer(addr string, handler http.Handler, log *logging.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log.WithField("component", "server"),
	}
}

// ListenAndServe blocks until the server stops. A clean shutdown
// returns nil.
func (s *Server) ListenAndServe() error {
	s.log.Info("HTTP server listening", map[string]interface{}{
		"addr": s.srv.Addr,
	})
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("HTTP server shutting down")
	return s.srv.Shutdown(ctx)
}
