package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthCheck pings one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports liveness and dependency status
type HealthHandler struct {
	checks map[string]HealthCheck
}

// NewHealthHandler creates a health handler; checks may be empty
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return &HealthHandler{checks: checks}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	respondWithJSON(w, status, map[string]interface{}{
		"status":       overall,
		"dependencies": deps,
	})
}
