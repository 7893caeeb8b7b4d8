package providers

import (
	"context"
	"net/url"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
)

// CatalogProvider defines the interface to the external product API
type CatalogProvider interface {
	// ListProducts fetches one page of the product listing. params carries the
	// API query parameters (page, limit, facets, search).
	ListProducts(ctx context.Context, params url.Values) (*entities.CatalogResult, error)

	// GetProductByID fetches a single product by its identifier
	GetProductByID(ctx context.Context, id string) (*entities.Product, error)

	// GetProductBySlug fetches a single product by its URL slug
	GetProductBySlug(ctx context.Context, slug string) (*entities.Product, error)
}
