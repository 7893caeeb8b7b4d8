package catalog

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

func requestFor(view entities.ViewConfig, state entities.QueryState) (FetchTicket, ProductListRequest) {
	req := NewProductListRequest(state, view)
	return req.Ticket(), req
}

func TestFetcher_IdenticalTicketsShareOneCall(t *testing.T) {
	view := mustView("shop")
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	provider := newFakeProvider(func(ctx context.Context, params url.Values) (*entities.CatalogResult, error) {
		started <- struct{}{}
		<-release
		return &entities.CatalogResult{Products: makeProducts("p", 100), CurrentPage: 1, TotalPages: 1, TotalProducts: 1}, nil
	})
	f := NewFetcher(provider, view.Name, time.Second, nil)
	ticket, req := requestFor(view, view.EmptyState())

	type outcome struct {
		result *entities.CatalogResult
		err    error
	}
	first := make(chan outcome, 1)
	second := make(chan outcome, 1)

	go func() {
		r, err := f.Request(context.Background(), ticket, req)
		first <- outcome{r, err}
	}()
	<-started

	go func() {
		r, err := f.Request(context.Background(), ticket, req)
		second <- outcome{r, err}
	}()
	require.Eventually(t, func() bool { return !f.superseded(2) }, time.Second, time.Millisecond)
	close(release)

	a, b := <-first, <-second
	assert.ErrorIs(t, a.err, ErrSuperseded, "earlier caller loses")
	require.NoError(t, b.err)
	assert.Len(t, b.result.Products, 1)
	assert.Equal(t, 1, provider.callCount())
}

func TestFetcher_NewTicketAbortsOtherCalls(t *testing.T) {
	view := mustView("shop")
	aborted := make(chan struct{})

	provider := newFakeProvider(func(ctx context.Context, params url.Values) (*entities.CatalogResult, error) {
		if params.Get("category") == "Rings" {
			<-ctx.Done()
			close(aborted)
			return nil, ctx.Err()
		}
		return &entities.CatalogResult{Products: makeProducts("earrings", 100), CurrentPage: 1, TotalPages: 1, TotalProducts: 1}, nil
	})
	f := NewFetcher(provider, view.Name, time.Second, nil)

	ringsTicket, ringsReq := requestFor(view, view.EmptyState().WithFacet(entities.FacetCategory, "Rings"))
	earTicket, earReq := requestFor(view, view.EmptyState().WithFacet(entities.FacetCategory, "Earrings"))

	ringsErr := make(chan error, 1)
	go func() {
		_, err := f.Request(context.Background(), ringsTicket, ringsReq)
		ringsErr <- err
	}()
	require.Eventually(t, func() bool { return provider.callCount() == 1 }, time.Second, time.Millisecond)

	result, err := f.Request(context.Background(), earTicket, earReq)
	require.NoError(t, err)
	assert.Equal(t, "earrings 0", result.Products[0].Name)

	select {
	case <-aborted:
	case <-time.After(time.Second):
		t.Fatal("in-flight call for the previous ticket was not aborted")
	}
	assert.ErrorIs(t, <-ringsErr, ErrSuperseded)
}

func TestFetcher_TimeoutIsANetworkError(t *testing.T) {
	view := mustView("shop")
	provider := newFakeProvider(func(ctx context.Context, params url.Values) (*entities.CatalogResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	f := NewFetcher(provider, view.Name, 20*time.Millisecond, nil)
	ticket, req := requestFor(view, view.EmptyState())

	_, err := f.Request(context.Background(), ticket, req)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNetwork), "got %v", err)

	fetchErr := ToFetchError(err)
	assert.Equal(t, entities.FetchErrorNetwork, fetchErr.Kind)
}

func TestFetcher_ServerErrorPassesThrough(t *testing.T) {
	view := mustView("shop")
	provider := new(mockCatalogProvider)
	provider.On("ListProducts", mock.Anything, mock.MatchedBy(func(v url.Values) bool {
		return v.Get("page") == "1" && v.Get("limit") == "12"
	})).Return(nil, apperrors.NewServerError(500, "Internal Server Error")).Once()

	f := NewFetcher(provider, view.Name, time.Second, nil)
	ticket, req := requestFor(view, view.EmptyState())

	_, err := f.Request(context.Background(), ticket, req)

	fetchErr := ToFetchError(err)
	require.NotNil(t, fetchErr)
	assert.Equal(t, entities.FetchErrorServer, fetchErr.Kind)
	assert.Equal(t, 500, fetchErr.StatusCode)
	provider.AssertExpectations(t)
}

func TestFetcher_UnclassifiedErrorBecomesNetwork(t *testing.T) {
	view := mustView("shop")
	provider := new(mockCatalogProvider)
	provider.On("ListProducts", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

	f := NewFetcher(provider, view.Name, time.Second, nil)
	ticket, req := requestFor(view, view.EmptyState())

	_, err := f.Request(context.Background(), ticket, req)

	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNetwork))
	assert.ErrorIs(t, err, assert.AnError)
}
