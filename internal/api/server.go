// Package api exposes the gateway over HTTP.
//
// Endpoints:
//
//	GET  /ws/{client_id}     - WebSocket chat (duplex frames)
//	GET  /ws                 - WebSocket chat, server-assigned client ID
//	POST /api/send_message   - one exchange without a WebSocket
//	GET  /api/history        - conversation history for the caller
//	POST /api/reset          - clear the caller's history
//	GET  /health             - liveness probe
//	GET  /ready              - readiness probe (tool server reachability)
//
// The REST endpoints identify the caller by remote address, so they share a
// session across requests from the same host. WebSocket clients carry their
// ID in the path.
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: health check endpoints (/health, /ready)
//   - chat.go: REST chat endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dataflywheel/chatgate/internal/gateway"
	"github.com/dataflywheel/chatgate/internal/log"
	"github.com/dataflywheel/chatgate/internal/session"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	ReadHeaderTimeout = 10 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// ServerConfig contains the collaborators for the HTTP server.
type ServerConfig struct {
	Registry *session.Registry  // Required
	WS       *gateway.WSHandler // Required
	Ready    ReadyFunc          // Optional: nil means always ready
	Logger   log.Logger
}

// Server is the gateway's HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates a server with all routes registered. WebSocket and probe
// routes bypass the middleware chain: upgrades need the raw ResponseWriter,
// and probes should not pollute request logs.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ch := &chatHandler{registry: cfg.Registry, logger: logger}

	apiMux := http.NewServeMux()
	ch.RegisterRoutes(apiMux)

	hh := &healthHandler{ready: cfg.Ready, logger: logger}

	mux := http.NewServeMux()
	hh.RegisterRoutes(mux)
	mux.Handle("GET /ws/{client_id}", cfg.WS)
	mux.Handle("GET /ws", cfg.WS)
	mux.Handle("/", chain(apiMux, recoveryMiddleware(logger), loggingMiddleware(logger)))

	return &Server{mux: mux, logger: logger}
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	// No ReadTimeout or WriteTimeout: WebSocket connections share this
	// server and must outlive any per-request deadline.
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: ReadHeaderTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
