package catalog

import (
	"slices"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
)

// RefinementPredicate decides whether a fetched product stays visible
type RefinementPredicate func(entities.Product) bool

// PredicateFor builds the predicate for the client-only parts of a state,
// which today is the price slider. It returns nil when nothing is refined.
// Server facets are never re-checked here.
func PredicateFor(state entities.QueryState, view entities.ViewConfig) RefinementPredicate {
	price, ok := state.Price()
	if !ok || !view.PriceMax.GreaterThan(view.PriceMin) {
		return nil
	}
	return func(p entities.Product) bool {
		return price.Contains(p.EffectivePrice())
	}
}

// Refine returns the products accepted by predicate, in their original
// order. The input slice is never modified.
func Refine(products []entities.Product, predicate RefinementPredicate) []entities.Product {
	out := make([]entities.Product, 0, len(products))
	for _, p := range products {
		if predicate == nil || predicate(p) {
			out = append(out, p)
		}
	}
	return out
}

// SortProducts returns the products in the given order. The sort is stable
// and featured keeps the server order.
func SortProducts(products []entities.Product, order entities.SortOrder) []entities.Product {
	out := slices.Clone(products)
	if out == nil {
		out = []entities.Product{}
	}

	switch order {
	case entities.SortNewest:
		slices.SortStableFunc(out, func(a, b entities.Product) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case entities.SortPriceAsc:
		slices.SortStableFunc(out, func(a, b entities.Product) int {
			return a.EffectivePrice().Cmp(b.EffectivePrice())
		})
	case entities.SortPriceDesc:
		slices.SortStableFunc(out, func(a, b entities.Product) int {
			return b.EffectivePrice().Cmp(a.EffectivePrice())
		})
	}
	return out
}
