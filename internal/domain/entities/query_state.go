package entities

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Facet is a named filterable product attribute
type Facet string

const (
	FacetCategory          Facet = "category"
	FacetGender            Facet = "gender"
	FacetMaterialType      Facet = "materialType"
	FacetJewelleryCategory Facet = "jewelleryCategory"
	FacetTags              Facet = "tags"
	FacetColor             Facet = "color"
)

// AllFacets lists every facet the product API filters on, in canonical order
var AllFacets = []Facet{
	FacetCategory,
	FacetGender,
	FacetMaterialType,
	FacetJewelleryCategory,
	FacetTags,
	FacetColor,
}

// Valid reports whether f is a facet the product API understands
func (f Facet) Valid() bool {
	return slices.Contains(AllFacets, f)
}

// SortOrder is the ordering of a product listing
type SortOrder string

const (
	SortFeatured  SortOrder = "featured"
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
)

// Valid reports whether s is a known sort order
func (s SortOrder) Valid() bool {
	switch s {
	case SortFeatured, SortNewest, SortPriceAsc, SortPriceDesc:
		return true
	}
	return false
}

// PriceRange is an inclusive price interval
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Contains reports whether p lies inside the range, bounds included
func (r PriceRange) Contains(p decimal.Decimal) bool {
	return p.GreaterThanOrEqual(r.Min) && p.LessThanOrEqual(r.Max)
}

// Equal compares two ranges by value
func (r PriceRange) Equal(o PriceRange) bool {
	return r.Min.Equal(o.Min) && r.Max.Equal(o.Max)
}

// QueryState is the immutable description of one catalog view. Every With*
// method returns a new value and leaves the receiver untouched.
//
// Any change to facets, search or sort lands on page 1 in the same
// transition. A price refinement is applied client-side only and keeps the
// current page.
type QueryState struct {
	filters  map[Facet][]string
	search   string
	sort     SortOrder
	page     int
	pageSize int
	price    *PriceRange
}

// NewQueryState creates an empty state on page 1
func NewQueryState(pageSize int, sort SortOrder) QueryState {
	if pageSize < 1 {
		pageSize = 1
	}
	if !sort.Valid() {
		sort = SortFeatured
	}
	return QueryState{
		sort:     sort,
		page:     1,
		pageSize: pageSize,
	}
}

// Search returns the free-text search term
func (s QueryState) Search() string { return s.search }

// Sort returns the sort order
func (s QueryState) Sort() SortOrder { return s.sort }

// Page returns the 1-based page number
func (s QueryState) Page() int {
	if s.page < 1 {
		return 1
	}
	return s.page
}

// PageSize returns the number of products per page
func (s QueryState) PageSize() int { return s.pageSize }

// Price returns the client-side price refinement, if any
func (s QueryState) Price() (PriceRange, bool) {
	if s.price == nil {
		return PriceRange{}, false
	}
	return *s.price, true
}

// Values returns a copy of the selected values for a facet
func (s QueryState) Values(f Facet) []string {
	return slices.Clone(s.filters[f])
}

// HasValue reports whether value is selected for facet f
func (s QueryState) HasValue(f Facet, value string) bool {
	_, found := slices.BinarySearch(s.filters[f], strings.TrimSpace(value))
	return found
}

// Filters returns a copy of all facet selections
func (s QueryState) Filters() map[Facet][]string {
	out := make(map[Facet][]string, len(s.filters))
	for f, values := range s.filters {
		out[f] = slices.Clone(values)
	}
	return out
}

// HasFilters reports whether any facet or search term narrows the listing
func (s QueryState) HasFilters() bool {
	return len(s.filters) > 0 || s.search != ""
}

// WithFacet replaces the selection for facet f. Passing no values clears it.
func (s QueryState) WithFacet(f Facet, values ...string) QueryState {
	normalized := NormalizeValues(values...)
	if slices.Equal(normalized, s.filters[f]) {
		return s
	}

	next := s.clone()
	if len(normalized) == 0 {
		delete(next.filters, f)
	} else {
		next.filters[f] = normalized
	}
	next.page = 1
	return next
}

// ToggleFacetValue adds value to facet f, or removes it when already
// selected. A comma-separated value toggles its parts together: they are
// removed only when every part is selected.
func (s QueryState) ToggleFacetValue(f Facet, value string) QueryState {
	parts := NormalizeValues(value)
	if len(parts) == 0 {
		return s
	}
	current := s.filters[f]
	allSelected := true
	for _, part := range parts {
		if !s.HasValue(f, part) {
			allSelected = false
			break
		}
	}
	if allSelected {
		remaining := make([]string, 0, len(current))
		for _, v := range current {
			if _, found := slices.BinarySearch(parts, v); !found {
				remaining = append(remaining, v)
			}
		}
		return s.WithFacet(f, remaining...)
	}
	return s.WithFacet(f, append(slices.Clone(current), parts...)...)
}

// ClearFilters drops every facet selection, the search term and the price
// refinement.
func (s QueryState) ClearFilters() QueryState {
	if !s.HasFilters() && s.price == nil {
		return s
	}
	next := s.clone()
	next.filters = nil
	next.search = ""
	next.price = nil
	if s.HasFilters() {
		next.page = 1
	}
	return next
}

// WithSearch sets the free-text search term
func (s QueryState) WithSearch(term string) QueryState {
	term = strings.TrimSpace(term)
	if term == s.search {
		return s
	}
	next := s.clone()
	next.search = term
	next.page = 1
	return next
}

// WithSort sets the sort order. Unknown orders leave the state unchanged.
func (s QueryState) WithSort(sort SortOrder) QueryState {
	if !sort.Valid() || sort == s.sort {
		return s
	}
	next := s.clone()
	next.sort = sort
	next.page = 1
	return next
}

// WithPage moves to page n, clamped to at least 1
func (s QueryState) WithPage(n int) QueryState {
	if n < 1 {
		n = 1
	}
	if n == s.Page() {
		return s
	}
	next := s.clone()
	next.page = n
	return next
}

// WithPrice sets the client-side price refinement
func (s QueryState) WithPrice(r PriceRange) QueryState {
	if r.Min.GreaterThan(r.Max) {
		r.Min, r.Max = r.Max, r.Min
	}
	if s.price != nil && s.price.Equal(r) {
		return s
	}
	next := s.clone()
	next.price = &r
	return next
}

// WithoutPrice removes the price refinement
func (s QueryState) WithoutPrice() QueryState {
	if s.price == nil {
		return s
	}
	next := s.clone()
	next.price = nil
	return next
}

// FiltersEqual reports whether both states select the same facets and search term
func (s QueryState) FiltersEqual(o QueryState) bool {
	if s.search != o.search || len(s.filters) != len(o.filters) {
		return false
	}
	for f, values := range s.filters {
		if !slices.Equal(values, o.filters[f]) {
			return false
		}
	}
	return true
}

// Equal reports whether two states describe the same catalog view
func (s QueryState) Equal(o QueryState) bool {
	if !s.FiltersEqual(o) ||
		s.sort != o.sort ||
		s.Page() != o.Page() ||
		s.pageSize != o.pageSize {
		return false
	}
	if (s.price == nil) != (o.price == nil) {
		return false
	}
	return s.price == nil || s.price.Equal(*o.price)
}

func (s QueryState) clone() QueryState {
	next := s
	next.filters = s.Filters()
	if s.price != nil {
		p := *s.price
		next.price = &p
	}
	return next
}

type queryStateJSON struct {
	Filters  map[Facet][]string `json:"filters"`
	Search   string             `json:"search,omitempty"`
	Sort     SortOrder          `json:"sort"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
	Price    *PriceRange        `json:"price,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (s QueryState) MarshalJSON() ([]byte, error) {
	filters := s.Filters()
	return json.Marshal(queryStateJSON{
		Filters:  filters,
		Search:   s.search,
		Sort:     s.sort,
		Page:     s.Page(),
		PageSize: s.pageSize,
		Price:    s.price,
	})
}

// NormalizeValues splits comma-joined values, trims them, drops empties and
// duplicates, and sorts the result.
func NormalizeValues(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}
