package catalog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
)

func TestRefine_PriceSlider(t *testing.T) {
	view := mustView("shop")
	products := makeProducts("p", 100, 450, 500, 800, 1200, 1999, 2000, 2500, 4000, 6000, 8000, 9000)
	state := view.EmptyState().WithPrice(entities.PriceRange{
		Min: decimal.NewFromInt(500),
		Max: decimal.NewFromInt(2000),
	})

	refined := Refine(products, PredicateFor(state, view))

	require.Len(t, refined, 5)
	for _, p := range refined {
		assert.True(t, p.Price.GreaterThanOrEqual(decimal.NewFromInt(500)), p.Name)
		assert.True(t, p.Price.LessThanOrEqual(decimal.NewFromInt(2000)), p.Name)
	}
	assert.Len(t, products, 12, "input is untouched")
}

func TestRefine_UsesEffectivePrice(t *testing.T) {
	view := mustView("shop")
	onSale := makeProducts("sale", 3000)[0]
	onSale.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(1500))

	state := view.EmptyState().WithPrice(entities.PriceRange{
		Min: decimal.NewFromInt(1000),
		Max: decimal.NewFromInt(2000),
	})

	refined := Refine([]entities.Product{onSale}, PredicateFor(state, view))
	assert.Len(t, refined, 1)
}

func TestRefine_NoPredicateKeepsEverything(t *testing.T) {
	view := mustView("shop")
	products := makeProducts("p", 100, 200)

	assert.Nil(t, PredicateFor(view.EmptyState(), view))

	refined := Refine(products, nil)
	assert.Equal(t, products, refined)

	refined[0].Name = "changed"
	assert.Equal(t, "p 0", products[0].Name)
}

func TestSortProducts(t *testing.T) {
	products := makeProducts("p", 300, 100, 200)
	products[2].SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(50))
	products[0].CreatedAt = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	names := func(ps []entities.Product) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Name)
		}
		return out
	}

	assert.Equal(t, []string{"p 0", "p 1", "p 2"}, names(SortProducts(products, entities.SortFeatured)))
	assert.Equal(t, []string{"p 2", "p 1", "p 0"}, names(SortProducts(products, entities.SortPriceAsc)))
	assert.Equal(t, []string{"p 0", "p 1", "p 2"}, names(SortProducts(products, entities.SortPriceDesc)))
	assert.Equal(t, []string{"p 0", "p 2", "p 1"}, names(SortProducts(products, entities.SortNewest)))
	assert.Equal(t, []string{"p 0", "p 1", "p 2"}, names(products), "input order is kept")
}
