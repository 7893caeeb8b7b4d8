package storeapi

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	"github.com/zatekoja/storefront-catalog/internal/domain/providers"
)

// maxConcurrentLookups bounds parallel detail calls within one batch
const maxConcurrentLookups = 8

// ProductLoader batches and de-duplicates product detail lookups made while
// serving one request. The product API has no batch endpoint, so each batch
// fans out to the detail route with bounded concurrency.
type ProductLoader struct {
	loader *dataloader.Loader[string, *entities.Product]
}

// NewProductLoader creates a loader; create one per incoming request
func NewProductLoader(provider providers.CatalogProvider) *ProductLoader {
	batch := func(ctx context.Context, ids []string) []*dataloader.Result[*entities.Product] {
		results := make([]*dataloader.Result[*entities.Product], len(ids))

		var g errgroup.Group
		g.SetLimit(maxConcurrentLookups)
		for i, id := range ids {
			g.Go(func() error {
				product, err := provider.GetProductByID(ctx, id)
				results[i] = &dataloader.Result[*entities.Product]{Data: product, Error: err}
				return nil
			})
		}
		_ = g.Wait()
		return results
	}

	return &ProductLoader{
		loader: dataloader.NewBatchedLoader(batch,
			dataloader.WithBatchCapacity[string, *entities.Product](50),
			dataloader.WithWait[string, *entities.Product](2*time.Millisecond),
		),
	}
}

// Load returns one product
func (l *ProductLoader) Load(ctx context.Context, id string) (*entities.Product, error) {
	return l.loader.Load(ctx, id)()
}

// LoadMany returns products in the order of ids. errs is nil when every
// lookup succeeded; otherwise errs[i] holds the failure for ids[i].
func (l *ProductLoader) LoadMany(ctx context.Context, ids []string) ([]*entities.Product, []error) {
	products, errs := l.loader.LoadMany(ctx, ids)()
	for _, err := range errs {
		if err != nil {
			return products, errs
		}
	}
	return products, nil
}
