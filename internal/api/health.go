package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dataflywheel/chatgate/internal/log"
)

// ReadyFunc probes the gateway's upstream dependencies. A non-nil error
// renders the service not ready.
type ReadyFunc func(ctx context.Context) error

type healthHandler struct {
	ready  ReadyFunc
	logger log.Logger
}

func (h *healthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /ready", h.readiness)
}

// health is a liveness probe. It answers as long as the process serves HTTP.
func (h *healthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// readiness additionally checks the tool server when a probe is wired.
func (h *healthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			h.logger.Warn("readiness probe failed", "error", err)
			writeJSON(w, h.logger, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ready"})
}
