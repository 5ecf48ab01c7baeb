package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vistaar-ai/vistaar/internal/cache"
)

type healthHandler struct {
	cache *cache.Service
	pool  *pgxpool.Pool
}

// health is a liveness probe.
func (h *healthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ready reports dependency state. A demoted cache does not fail
// readiness; it is reported so operators can see the degradation.
func (h *healthHandler) ready(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}

	if h.pool != nil {
		if err := h.pool.Ping(r.Context()); err != nil {
			body["status"] = "degraded"
			body["database"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}
	if h.cache != nil {
		if h.cache.FallbackActive() {
			body["cache"] = "memory-fallback"
		} else {
			body["cache"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, body)
}
