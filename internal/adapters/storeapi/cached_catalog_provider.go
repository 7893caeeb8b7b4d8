package storeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/domain/providers"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/observability"
)

// Cache names reported on the cache hit/miss counters
const (
	listCacheName    = "catalog_list"
	productCacheName = "catalog_product"
)

// CachedCatalogProvider wraps a CatalogProvider with cache-aside reads.
// Only successful answers are stored; failures always reach the caller.
type CachedCatalogProvider struct {
	provider   providers.CatalogProvider
	cache      providers.CacheProvider
	metrics    *observability.Metrics
	listTTL    int
	productTTL int
}

// NewCachedCatalogProvider creates a cached catalog provider. TTLs are in seconds;
// a non-positive TTL disables caching for that kind of read.
func NewCachedCatalogProvider(provider providers.CatalogProvider, cache providers.CacheProvider, metrics *observability.Metrics, listTTL, productTTL int) *CachedCatalogProvider {
	return &CachedCatalogProvider{
		provider:   provider,
		cache:      cache,
		metrics:    metrics,
		listTTL:    listTTL,
		productTTL: productTTL,
	}
}

var _ providers.CatalogProvider = (*CachedCatalogProvider)(nil)

func listCacheKey(params url.Values) string {
	return fmt.Sprintf("catalog:list:%s", params.Encode())
}

func productIDCacheKey(id string) string {
	return fmt.Sprintf("catalog:product:id:%s", id)
}

func productSlugCacheKey(slug string) string {
	return fmt.Sprintf("catalog:product:slug:%s", slug)
}

// ListProducts returns a cached page when present, otherwise asks the provider
func (p *CachedCatalogProvider) ListProducts(ctx context.Context, params url.Values) (*entities.CatalogResult, error) {
	key := listCacheKey(params)

	var cached entities.CatalogResult
	if p.listTTL > 0 && p.lookup(ctx, key, listCacheName, &cached) {
		return &cached, nil
	}

	result, err := p.provider.ListProducts(ctx, params)
	if err != nil {
		return nil, err
	}
	if p.listTTL > 0 {
		p.store(key, result, p.listTTL)
	}
	return result, nil
}

// GetProductByID returns a cached product when present, otherwise asks the provider
func (p *CachedCatalogProvider) GetProductByID(ctx context.Context, id string) (*entities.Product, error) {
	return p.getProduct(ctx, productIDCacheKey(id), func(ctx context.Context) (*entities.Product, error) {
		return p.provider.GetProductByID(ctx, id)
	})
}

// GetProductBySlug returns a cached product when present, otherwise asks the provider
func (p *CachedCatalogProvider) GetProductBySlug(ctx context.Context, slug string) (*entities.Product, error) {
	return p.getProduct(ctx, productSlugCacheKey(slug), func(ctx context.Context) (*entities.Product, error) {
		return p.provider.GetProductBySlug(ctx, slug)
	})
}

func (p *CachedCatalogProvider) getProduct(ctx context.Context, key string, load func(context.Context) (*entities.Product, error)) (*entities.Product, error) {
	var cached entities.Product
	if p.productTTL > 0 && p.lookup(ctx, key, productCacheName, &cached) {
		return &cached, nil
	}

	product, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if p.productTTL > 0 {
		p.store(key, product, p.productTTL)
		// Prime the other lookup so id and slug reads share one entry lifetime
		if product.ID != "" && key != productIDCacheKey(product.ID) {
			p.store(productIDCacheKey(product.ID), product, p.productTTL)
		}
	}
	return product, nil
}

func (p *CachedCatalogProvider) lookup(ctx context.Context, key, cacheName string, out interface{}) bool {
	data, err := p.cache.Get(ctx, key)
	if err != nil {
		observability.RecordCacheMiss(ctx, p.metrics, cacheName)
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached catalog entry")
		observability.RecordCacheMiss(ctx, p.metrics, cacheName)
		return false
	}
	observability.RecordCacheHit(ctx, p.metrics, cacheName)
	return true
}

// store writes asynchronously so the response is not held up by the cache
func (p *CachedCatalogProvider) store(key string, value interface{}, ttl int) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to marshal catalog entry for cache")
		return
	}
	go func() {
		if err := p.cache.Set(context.Background(), key, data, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to cache catalog entry")
		}
	}()
}
