package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
)

// Product API query keys
const (
	apiParamPage   = "page"
	apiParamLimit  = "limit"
	apiParamSearch = "search"
	apiParamSort   = "sort"
)

// FetchTicket identifies the server request a QueryState resolves to. Two
// states with the same ticket are served by the same network call.
type FetchTicket string

// ProductListRequest is the server-side part of a QueryState: everything the
// product API filters on. Client refinements never appear here.
type ProductListRequest struct {
	Page    int                         `json:"page"`
	Limit   int                         `json:"limit"`
	Filters map[entities.Facet][]string `json:"filters,omitempty"`
	Search  string                      `json:"search,omitempty"`
	Sort    entities.SortOrder          `json:"sort,omitempty"`
}

// NewProductListRequest builds the server request for a state. The view's
// fixed params override any shopper selection for the same facet.
func NewProductListRequest(state entities.QueryState, view entities.ViewConfig) ProductListRequest {
	filters := state.Filters()
	for f, value := range view.FixedParams {
		if normalized := entities.NormalizeValues(value); len(normalized) > 0 {
			filters[f] = normalized
		}
	}

	req := ProductListRequest{
		Page:    state.Page(),
		Limit:   state.PageSize(),
		Filters: filters,
		Search:  state.Search(),
	}
	if view.ServerSort {
		req.Sort = state.Sort()
	}
	return req
}

// Values encodes the request as product API query parameters
func (r ProductListRequest) Values() url.Values {
	values := url.Values{}
	values.Set(apiParamPage, strconv.Itoa(r.Page))
	values.Set(apiParamLimit, strconv.Itoa(r.Limit))
	for f, selected := range r.Filters {
		if len(selected) > 0 {
			values.Set(string(f), strings.Join(selected, ","))
		}
	}
	if r.Search != "" {
		values.Set(apiParamSearch, r.Search)
	}
	if r.Sort != "" {
		values.Set(apiParamSort, string(r.Sort))
	}
	return values
}

// Ticket hashes the canonical encoding of the request
func (r ProductListRequest) Ticket() FetchTicket {
	sum := sha256.Sum256([]byte(r.Values().Encode()))
	return FetchTicket(hex.EncodeToString(sum[:16]))
}

// TicketFor returns the ticket of the server request behind a state
func TicketFor(state entities.QueryState, view entities.ViewConfig) FetchTicket {
	return NewProductListRequest(state, view).Ticket()
}
