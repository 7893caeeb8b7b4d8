package catalog

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

// CommandType names a shopper interaction with a catalog view
type CommandType string

const (
	CommandSetFacet         CommandType = "set_facet"
	CommandToggleFacetValue CommandType = "toggle_facet_value"
	CommandClearFilters     CommandType = "clear_filters"
	CommandSetSearch        CommandType = "set_search"
	CommandSetSort          CommandType = "set_sort"
	CommandSetPriceRange    CommandType = "set_price_range"
	CommandClearPriceRange  CommandType = "clear_price_range"
	CommandNextPage         CommandType = "next_page"
	CommandPrevPage         CommandType = "prev_page"
	CommandGoToPage         CommandType = "go_to_page"
	CommandRetry            CommandType = "retry"
)

// Command is a typed message dispatched to a Controller. It doubles as the
// JSON envelope accepted by the gateway.
type Command struct {
	Type     CommandType         `json:"type" validate:"required,oneof=set_facet toggle_facet_value clear_filters set_search set_sort set_price_range clear_price_range next_page prev_page go_to_page retry"`
	Facet    entities.Facet      `json:"facet,omitempty" validate:"required_if=Type set_facet,required_if=Type toggle_facet_value"`
	Value    string              `json:"value,omitempty" validate:"required_if=Type toggle_facet_value"`
	Values   []string            `json:"values,omitempty"`
	Search   string              `json:"search,omitempty" validate:"max=200"`
	Sort     entities.SortOrder  `json:"sort,omitempty" validate:"required_if=Type set_sort"`
	Page     *int                `json:"page,omitempty" validate:"required_if=Type go_to_page"`
	MinPrice decimal.NullDecimal `json:"minPrice"`
	MaxPrice decimal.NullDecimal `json:"maxPrice"`
}

// SetFacet replaces the selection of one facet
func SetFacet(f entities.Facet, values ...string) Command {
	return Command{Type: CommandSetFacet, Facet: f, Values: values}
}

// ToggleFacetValue selects or deselects one facet value
func ToggleFacetValue(f entities.Facet, value string) Command {
	return Command{Type: CommandToggleFacetValue, Facet: f, Value: value}
}

// ClearFilters drops every selection, the search term and the price range
func ClearFilters() Command { return Command{Type: CommandClearFilters} }

// SetSearch sets the free-text search term
func SetSearch(term string) Command { return Command{Type: CommandSetSearch, Search: term} }

// SetSort changes the ordering
func SetSort(order entities.SortOrder) Command { return Command{Type: CommandSetSort, Sort: order} }

// SetPriceRange moves the price slider
func SetPriceRange(lo, hi decimal.Decimal) Command {
	return Command{
		Type:     CommandSetPriceRange,
		MinPrice: decimal.NewNullDecimal(lo),
		MaxPrice: decimal.NewNullDecimal(hi),
	}
}

// ClearPriceRange resets the price slider
func ClearPriceRange() Command { return Command{Type: CommandClearPriceRange} }

// NextPage moves to the following page
func NextPage() Command { return Command{Type: CommandNextPage} }

// PrevPage moves to the preceding page
func PrevPage() Command { return Command{Type: CommandPrevPage} }

// GoToPage jumps to page n, clamped into the known page range
func GoToPage(n int) Command { return Command{Type: CommandGoToPage, Page: &n} }

// Retry re-issues the current request
func Retry() Command { return Command{Type: CommandRetry} }

// historyMode says how a transition is written to the history
type historyMode int

const (
	historyReplace historyMode = iota
	historyPush
)

// apply computes the next state for a command in a single transition
func apply(state entities.QueryState, cmd Command, pages Pagination, view entities.ViewConfig) (entities.QueryState, historyMode, error) {
	switch cmd.Type {
	case CommandSetFacet:
		if err := checkFacet(cmd.Facet, view); err != nil {
			return state, historyReplace, err
		}
		values := slices.Clone(cmd.Values)
		if cmd.Value != "" {
			values = append(values, cmd.Value)
		}
		return state.WithFacet(cmd.Facet, values...), historyReplace, nil

	case CommandToggleFacetValue:
		if err := checkFacet(cmd.Facet, view); err != nil {
			return state, historyReplace, err
		}
		return state.ToggleFacetValue(cmd.Facet, cmd.Value), historyReplace, nil

	case CommandClearFilters:
		return state.ClearFilters(), historyReplace, nil

	case CommandSetSearch:
		return state.WithSearch(cmd.Search), historyReplace, nil

	case CommandSetSort:
		if !cmd.Sort.Valid() {
			return state, historyReplace, apperrors.NewValidationError(fmt.Sprintf("unknown sort order %q", cmd.Sort))
		}
		return state.WithSort(cmd.Sort), historyReplace, nil

	case CommandSetPriceRange:
		if !view.PriceMax.GreaterThan(view.PriceMin) {
			return state, historyReplace, apperrors.NewValidationError(fmt.Sprintf("view %s has no price filter", view.Name))
		}
		r := view.PriceBounds()
		if cmd.MinPrice.Valid {
			r.Min = cmd.MinPrice.Decimal
		}
		if cmd.MaxPrice.Valid {
			r.Max = cmd.MaxPrice.Decimal
		}
		return state.WithPrice(r), historyReplace, nil

	case CommandClearPriceRange:
		return state.WithoutPrice(), historyReplace, nil

	case CommandNextPage:
		return state.WithPage(pages.Next()), historyPush, nil

	case CommandPrevPage:
		return state.WithPage(pages.Prev()), historyPush, nil

	case CommandGoToPage:
		target := 1
		if cmd.Page != nil {
			target = *cmd.Page
		}
		return state.WithPage(pages.GoTo(target)), historyPush, nil

	case CommandRetry:
		return state, historyReplace, nil
	}

	return state, historyReplace, apperrors.NewValidationError(fmt.Sprintf("unknown command %q", cmd.Type))
}

func checkFacet(f entities.Facet, view entities.ViewConfig) error {
	if !f.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown facet %q", f))
	}
	if _, fixed := view.FixedParams[f]; fixed || !view.OffersFacet(f) {
		return apperrors.NewValidationError(fmt.Sprintf("facet %q is not offered by view %s", f, view.Name))
	}
	return nil
}
