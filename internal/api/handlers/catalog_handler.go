package handlers

import (
	"net/http"

	"github.com/zatekoja/storefront-catalog/internal/application/services"
	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
)

// CatalogHandler serves view configs and one-shot catalog resolution
type CatalogHandler struct {
	sessions *services.SessionService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(sessions *services.SessionService) *CatalogHandler {
	return &CatalogHandler{sessions: sessions}
}

// ListViews handles GET /api/views
func (h *CatalogHandler) ListViews(w http.ResponseWriter, r *http.Request) {
	views := h.sessions.Views().List()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"views": views,
		"count": len(views),
	})
}

// GetView handles GET /api/views/{view}
func (h *CatalogHandler) GetView(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Views().Get(r.PathValue("view"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// ResolveCatalog handles GET /api/catalog/{view}?{query}. The query string
// is the shopper's URL; the response carries the settled snapshot and its
// canonical form.
func (h *CatalogHandler) ResolveCatalog(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Resolve(r.Context(), r.PathValue("view"), r.URL.RawQuery)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if snap.Phase == entities.CatalogPhaseFailed {
		w.Header().Set("Cache-Control", "no-store")
	}
	respondWithJSON(w, http.StatusOK, snap)
}
