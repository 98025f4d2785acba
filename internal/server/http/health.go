package httpserver

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger reports storage reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves /health.
type HealthHandler struct {
	db  Pinger
	log *zap.Logger
}

// NewHealthHandler creates a health handler. db may be nil for the in-memory store.
func NewHealthHandler(db Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, log: log}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.log.Warn("health: database down", zap.Error(err))
			checks["database"] = "down"
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Checks: checks})
			return
		}
	} else {
		checks["database"] = "memory"
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Checks: checks})
}
