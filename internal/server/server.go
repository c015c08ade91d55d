// Package server exposes the send pipeline over HTTP.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/shineum/mailgate/internal/dispatch"
)

// shutdownTimeout is the maximum time to wait for in-flight requests
// during graceful shutdown.
const shutdownTimeout = 30 * time.Second

// DefaultMaxBodyBytes caps request bodies, 25 MiB.
const DefaultMaxBodyBytes = 25 << 20

// Config holds the configuration for a Server.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000").
	ListenAddr string

	// MaxBodyBytes caps the request body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// MaxMemory is the part of a multipart body kept in memory.
	MaxMemory int64

	// TLSConfig enables HTTPS when non-nil.
	TLSConfig *tls.Config

	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
}

// Server serves the gateway API.
type Server struct {
	config  Config
	gateway *dispatch.Gateway
	log     *slog.Logger
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
}

// New creates a Server for gateway.
func New(cfg Config, gateway *dispatch.Gateway, log *slog.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Server{config: cfg, gateway: gateway, log: log}
	s.handler = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts the server and blocks until ctx is cancelled. On
// cancellation it stops accepting connections and waits up to 30 seconds
// for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return err
	}
	if s.config.TLSConfig != nil {
		ln = tls.NewListener(ln, s.config.TLSConfig)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.log.Info("HTTP server listening",
		"addr", ln.Addr().String(),
		"provider", s.gateway.Provider().Name(),
		"tls_enabled", s.config.TLSConfig != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("shutdown timeout reached, forcing close", "error", err)
		_ = srv.Close()
	} else {
		s.log.Info("all requests completed")
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the listener address, or empty string if not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
