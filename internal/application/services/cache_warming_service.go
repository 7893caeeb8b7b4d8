package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/storefront-catalog/internal/application/catalog"
	"github.com/zatekoja/storefront-catalog/internal/domain/providers"
)

// CacheWarmingService pre-fetches the landing pages of every view so the
// first shopper to open a view is served from the listing cache
type CacheWarmingService struct {
	views    *catalog.ViewRegistry
	provider providers.CatalogProvider
	pages    int
	logger   zerolog.Logger
}

// NewCacheWarmingService creates a cache warming service. provider should be
// the cached catalog provider; pages is how many leading pages of each
// view's default listing to warm (minimum 1).
func NewCacheWarmingService(views *catalog.ViewRegistry, provider providers.CatalogProvider, pages int) *CacheWarmingService {
	if pages < 1 {
		pages = 1
	}
	return &CacheWarmingService{
		views:    views,
		provider: provider,
		pages:    pages,
		logger:   log.With().Str("component", "cache_warming").Logger(),
	}
}

// WarmCache fetches the leading pages of every view. Failures are logged
// and skipped; the returned count is the number of pages fetched.
func (s *CacheWarmingService) WarmCache(ctx context.Context) int {
	warmed := 0
	for _, view := range s.views.List() {
		state := catalog.NewSerializer(view).Parse("")
		for page := 1; page <= s.pages; page++ {
			if ctx.Err() != nil {
				return warmed
			}
			req := catalog.NewProductListRequest(state.WithPage(page), view)
			result, err := s.provider.ListProducts(ctx, req.Values())
			if err != nil {
				s.logger.Warn().Err(err).Str("view", view.Name).Int("page", page).Msg("Failed to warm catalog page")
				break
			}
			warmed++
			if page >= result.TotalPages {
				break
			}
		}
	}
	s.logger.Info().Int("pages", warmed).Msg("Cache warming completed")
	return warmed
}

// StartPeriodicWarming warms once, then again every interval until ctx ends
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	s.WarmCache(ctx)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("Stopping cache warming service")
				return
			case <-ticker.C:
				s.WarmCache(ctx)
			}
		}
	}()
	s.logger.Info().Dur("interval", interval).Msg("Started periodic cache warming")
}
