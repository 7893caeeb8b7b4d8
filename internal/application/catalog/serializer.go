package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

// URL query keys besides the facet names
const (
	ParamPage     = "page"
	ParamSort     = "sort"
	ParamSearch   = "search"
	ParamMinPrice = "minPrice"
	ParamMaxPrice = "maxPrice"
)

// Serializer maps between a view's QueryState and its URL query string.
//
// Parse never fails: malformed input falls back to the view defaults.
// Serialize omits every key that holds its default, so for any state s
// returned by Parse, Parse(Serialize(s)) equals s.
type Serializer struct {
	view entities.ViewConfig
}

// NewSerializer creates a serializer for a view
func NewSerializer(view entities.ViewConfig) *Serializer {
	return &Serializer{view: view}
}

// Parse reads a raw query string, with or without the leading '?'
func (s *Serializer) Parse(rawQuery string) entities.QueryState {
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		// ParseQuery keeps every well-formed pair, so carry on with those.
		s.recovered("query", rawQuery, err)
	}
	return s.ParseValues(values)
}

// ParseValues reads already-decoded query values
func (s *Serializer) ParseValues(values url.Values) entities.QueryState {
	state := s.view.EmptyState()

	for _, f := range s.facets() {
		if raw := values[string(f)]; len(raw) > 0 {
			state = state.WithFacet(f, raw...)
		}
	}

	state = state.WithSearch(values.Get(ParamSearch))

	if raw := values.Get(ParamSort); raw != "" {
		if sort := entities.SortOrder(raw); sort.Valid() {
			state = state.WithSort(sort)
		} else {
			s.recovered(ParamSort, raw, nil)
		}
	}

	if price, ok := s.parsePrice(values); ok {
		state = state.WithPrice(price)
	}

	// Page last: the facet and sort transitions above land on page 1.
	return state.WithPage(s.parsePage(values.Get(ParamPage)))
}

// Serialize renders a state as a canonical query string: sorted keys,
// sorted comma-joined values, defaults omitted.
func (s *Serializer) Serialize(state entities.QueryState) string {
	return s.Values(state).Encode()
}

// Values renders a state as query values, defaults omitted
func (s *Serializer) Values(state entities.QueryState) url.Values {
	values := url.Values{}

	for _, f := range s.facets() {
		if selected := state.Values(f); len(selected) > 0 {
			values.Set(string(f), strings.Join(selected, ","))
		}
	}
	if search := state.Search(); search != "" {
		values.Set(ParamSearch, search)
	}
	if state.Sort() != s.view.DefaultSort {
		values.Set(ParamSort, string(state.Sort()))
	}
	if state.Page() > 1 {
		values.Set(ParamPage, strconv.Itoa(state.Page()))
	}
	if price, ok := state.Price(); ok {
		bounds := s.view.PriceBounds()
		if !price.Min.Equal(bounds.Min) {
			values.Set(ParamMinPrice, price.Min.String())
		}
		if !price.Max.Equal(bounds.Max) {
			values.Set(ParamMaxPrice, price.Max.String())
		}
	}

	return values
}

// facets returns the facets shoppers may set on this view. Facets pinned by
// the view's fixed params are not part of the URL.
func (s *Serializer) facets() []entities.Facet {
	out := make([]entities.Facet, 0, len(s.view.Facets))
	for _, f := range s.view.Facets {
		if _, fixed := s.view.FixedParams[f]; !fixed {
			out = append(out, f)
		}
	}
	return out
}

func (s *Serializer) parsePage(raw string) int {
	if raw == "" {
		return 1
	}
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		s.recovered(ParamPage, raw, err)
		return 1
	}
	return page
}

// parsePrice reads the slider bounds. The result is clamped into the view's
// range; a range covering the whole slider means no refinement.
func (s *Serializer) parsePrice(values url.Values) (entities.PriceRange, bool) {
	rawMin, rawMax := values.Get(ParamMinPrice), values.Get(ParamMaxPrice)
	if rawMin == "" && rawMax == "" {
		return entities.PriceRange{}, false
	}

	bounds := s.view.PriceBounds()
	if !bounds.Max.GreaterThan(bounds.Min) {
		return entities.PriceRange{}, false
	}

	r := bounds
	if rawMin != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(rawMin)); err == nil {
			r.Min = d
		} else {
			s.recovered(ParamMinPrice, rawMin, err)
		}
	}
	if rawMax != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(rawMax)); err == nil {
			r.Max = d
		} else {
			s.recovered(ParamMaxPrice, rawMax, err)
		}
	}

	if r.Min.GreaterThan(r.Max) {
		r.Min, r.Max = r.Max, r.Min
	}
	r.Min = clampDecimal(r.Min, bounds)
	r.Max = clampDecimal(r.Max, bounds)

	if r.Equal(bounds) {
		return entities.PriceRange{}, false
	}
	return r, true
}

func (s *Serializer) recovered(key, raw string, cause error) {
	err := apperrors.NewParseError("malformed catalog query value for "+key, cause)
	log.Debug().
		Err(err).
		Str("view", s.view.Name).
		Str("key", key).
		Str("raw", raw).
		Msg("Falling back to default")
}

func clampDecimal(d decimal.Decimal, bounds entities.PriceRange) decimal.Decimal {
	if d.LessThan(bounds.Min) {
		return bounds.Min
	}
	if d.GreaterThan(bounds.Max) {
		return bounds.Max
	}
	return d
}
