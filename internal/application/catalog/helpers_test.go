package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

const awaitTimeout = 2 * time.Second

// fakeProvider records listing calls and answers through respond
type fakeProvider struct {
	mu      sync.Mutex
	calls   []url.Values
	respond func(ctx context.Context, params url.Values) (*entities.CatalogResult, error)
}

func newFakeProvider(respond func(ctx context.Context, params url.Values) (*entities.CatalogResult, error)) *fakeProvider {
	return &fakeProvider{respond: respond}
}

func (p *fakeProvider) ListProducts(ctx context.Context, params url.Values) (*entities.CatalogResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, params)
	respond := p.respond
	p.mu.Unlock()
	return respond(ctx, params)
}

func (p *fakeProvider) GetProductByID(ctx context.Context, id string) (*entities.Product, error) {
	return nil, apperrors.NewNotFoundError("product " + id)
}

func (p *fakeProvider) GetProductBySlug(ctx context.Context, slug string) (*entities.Product, error) {
	return nil, apperrors.NewNotFoundError("product " + slug)
}

func (p *fakeProvider) setRespond(respond func(ctx context.Context, params url.Values) (*entities.CatalogResult, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.respond = respond
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *fakeProvider) lastCall() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return nil
	}
	return p.calls[len(p.calls)-1]
}

// mockCatalogProvider is a testify mock of providers.CatalogProvider
type mockCatalogProvider struct {
	mock.Mock
}

func (m *mockCatalogProvider) ListProducts(ctx context.Context, params url.Values) (*entities.CatalogResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CatalogResult), args.Error(1)
}

func (m *mockCatalogProvider) GetProductByID(ctx context.Context, id string) (*entities.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Product), args.Error(1)
}

func (m *mockCatalogProvider) GetProductBySlug(ctx context.Context, slug string) (*entities.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Product), args.Error(1)
}

// makeProducts builds one product per price, named after its position
func makeProducts(prefix string, prices ...int64) []entities.Product {
	products := make([]entities.Product, 0, len(prices))
	for i, price := range prices {
		products = append(products, entities.Product{
			ID:        fmt.Sprintf("%s-%d", prefix, i),
			Slug:      fmt.Sprintf("%s-%d", prefix, i),
			Name:      fmt.Sprintf("%s %d", prefix, i),
			Price:     decimal.NewFromInt(price),
			CreatedAt: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}
	return products
}

// pagedResponder answers every call with a page of twelve products out of
// sixty, echoing the requested page.
func pagedResponder(prefix string) func(ctx context.Context, params url.Values) (*entities.CatalogResult, error) {
	return func(ctx context.Context, params url.Values) (*entities.CatalogResult, error) {
		page, _ := strconv.Atoi(params.Get("page"))
		return &entities.CatalogResult{
			Products:      makeProducts(prefix, 100, 450, 500, 800, 1200, 1999, 2000, 2500, 4000, 6000, 8000, 9000),
			CurrentPage:   page,
			TotalPages:    5,
			TotalProducts: 60,
		}, nil
	}
}

func mustView(name string) entities.ViewConfig {
	registry, err := NewViewRegistry(DefaultViews()...)
	if err != nil {
		panic(err)
	}
	view, err := registry.Get(name)
	if err != nil {
		panic(err)
	}
	return view
}

func awaitCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), awaitTimeout)
}
