package handlers

import (
	"net/http"
	"strings"

	adapterstoreapi "github.com/zatekoja/storefront-catalog/internal/adapters/storeapi"
	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/domain/providers"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

// maxBatchIDs bounds GET /api/products?ids=
const maxBatchIDs = 50

// ProductHandler proxies product detail lookups
type ProductHandler struct {
	provider providers.CatalogProvider
}

// NewProductHandler creates a new product handler
func NewProductHandler(provider providers.CatalogProvider) *ProductHandler {
	return &ProductHandler{provider: provider}
}

// GetProduct handles GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.provider.GetProductByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

// GetProductBySlug handles GET /api/products/slug/{slug}
func (h *ProductHandler) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := h.provider.GetProductBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

// GetProducts handles GET /api/products?ids=a,b,c. Products come back in
// request order; ids that cannot be found are listed under "missing" and any
// other failure fails the request.
func (h *ProductHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	ids := splitIDs(r.URL.Query()["ids"])
	if len(ids) == 0 {
		respondWithError(w, http.StatusBadRequest, "ids is required")
		return
	}
	if len(ids) > maxBatchIDs {
		respondWithError(w, http.StatusBadRequest, "too many ids")
		return
	}

	loader := adapterstoreapi.NewProductLoader(h.provider)
	products, errs := loader.LoadMany(r.Context(), ids)

	found := make([]*entities.Product, 0, len(ids))
	missing := make([]string, 0)
	for i, id := range ids {
		if errs != nil && errs[i] != nil {
			if apperrors.Is(errs[i], apperrors.ErrorTypeNotFound) {
				missing = append(missing, id)
				continue
			}
			respondWithAppError(w, r, errs[i])
			return
		}
		found = append(found, products[i])
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"products": found,
		"missing":  missing,
		"count":    len(found),
	})
}

// splitIDs reads comma-separated ids from every ids parameter, keeping the
// first occurrence of each in request order
func splitIDs(raw []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range raw {
		for _, id := range strings.Split(item, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
