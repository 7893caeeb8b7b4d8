package handlers

import (
	"net/http"
	"strconv"

	"github.com/zatekoja/storefront-catalog/internal/application/services"
)

// AnalyticsHandler exposes catalog query analytics
type AnalyticsHandler struct {
	analytics *services.QueryAnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics *services.QueryAnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// GetZeroResultQueries handles GET /api/analytics/zero-result-queries?limit=N
func (h *AnalyticsHandler) GetZeroResultQueries(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			respondWithError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	queries, err := h.analytics.GetZeroResultQueries(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"queries": queries,
		"count":   len(queries),
		"enabled": h.analytics.Enabled(),
	})
}
