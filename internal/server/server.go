package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ternarybob/seoforge/internal/app"
)

// Server exposes the batch API and the WebSocket progress feed
type Server struct {
	app    *app.App
	router *http.ServeMux
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New builds the server for application. Nothing listens until Start.
func New(application *app.App) *Server {
	s := &Server{app: application}
	s.router = s.setupRoutes()

	cfg := application.Config.Server
	s.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           s.withConditionalMiddleware(s.router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second, // multipart imports up to the upload limit
		WriteTimeout:      2 * time.Minute,  // exports of large batches render synchronously
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured address and serves until Shutdown.
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.app.Logger.Info().
		Str("address", ln.Addr().String()).
		Str("url", "http://"+ln.Addr().String()+"/api").
		Str("ws", "ws://"+ln.Addr().String()+"/ws").
		Msg("HTTP server listening")

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Addr returns the bound address once listening, else the configured one
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Shutdown stops accepting connections and waits for active requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Info().Msg("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.app.Logger.Info().Msg("HTTP server stopped")
	return nil
}
