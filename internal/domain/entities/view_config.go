package entities

import (
	"github.com/shopspring/decimal"
)

// ViewConfig parametrizes one storefront listing page
type ViewConfig struct {
	Name        string           `json:"name" validate:"required,lowercase"`
	Title       string           `json:"title" validate:"required"`
	Facets      []Facet          `json:"facets" validate:"dive,oneof=category gender materialType jewelleryCategory tags color"`
	FixedParams map[Facet]string `json:"fixedParams,omitempty" validate:"dive,keys,oneof=category gender materialType jewelleryCategory tags color,endkeys,required"`
	PageSize    int              `json:"pageSize" validate:"required,min=1,max=100"`
	PriceMin    decimal.Decimal  `json:"priceMin"`
	PriceMax    decimal.Decimal  `json:"priceMax"`
	DefaultSort SortOrder        `json:"defaultSort" validate:"required,oneof=featured newest price-asc price-desc"`
	ServerSort  bool             `json:"serverSort"`
}

// PriceBounds returns the full slider range of the view
func (v ViewConfig) PriceBounds() PriceRange {
	return PriceRange{Min: v.PriceMin, Max: v.PriceMax}
}

// OffersFacet reports whether shoppers can filter this view by f
func (v ViewConfig) OffersFacet(f Facet) bool {
	for _, offered := range v.Facets {
		if offered == f {
			return true
		}
	}
	return false
}

// EmptyState returns the default query state for the view
func (v ViewConfig) EmptyState() QueryState {
	return NewQueryState(v.PageSize, v.DefaultSort)
}
