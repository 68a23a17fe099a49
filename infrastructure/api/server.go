// Package api serves the ATAS and comm HTTP APIs.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// DefaultShutdownTimeout bounds graceful shutdown in Serve.
const DefaultShutdownTimeout = 15 * time.Second

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithShutdownTimeout sets how long Serve waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.shutdownTimeout = d }
}

// WithBeforeShutdown registers fn to run when Serve starts shutting down,
// before waiting on open connections. Hijacked connections such as
// WebSockets are not tracked by http.Server and must be closed here.
func WithBeforeShutdown(fn func()) ServerOption {
	return func(s *Server) { s.beforeShutdown = append(s.beforeShutdown, fn) }
}

// Server is the HTTP listener shared by both binaries: chi with request
// IDs, real client IPs and panic recovery. There is no server-wide write
// timeout; per-route timeouts are set by the API surface so WebSocket
// streams stay open.
type Server struct {
	router          chi.Router
	logger          *slog.Logger
	addr            string
	shutdownTimeout time.Duration
	beforeShutdown  []func()

	mu         sync.Mutex
	httpServer *http.Server
	listenAddr net.Addr
}

// NewServer creates a Server for addr.
func NewServer(addr string, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)

	s := &Server{
		router:          router,
		addr:            addr,
		logger:          logger,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the chi router for registering routes.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the listening address once Serve has bound, otherwise the
// configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listenAddr != nil {
		return s.listenAddr.String()
	}
	return s.addr
}

// Serve listens and serves until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.mu.Lock()
	s.httpServer, s.listenAddr = srv, ln.Addr()
	s.mu.Unlock()

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-serveErr
	return nil
}

// Shutdown runs the before-shutdown hooks and stops accepting requests,
// waiting for in-flight ones until ctx ends. It is a no-op before Serve.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("shutting down HTTP server")
	for _, fn := range s.beforeShutdown {
		fn()
	}
	return srv.Shutdown(ctx)
}
