package routes

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/storefront-catalog/internal/adapters/cache"
	"github.com/zatekoja/storefront-catalog/internal/adapters/events"
	"github.com/zatekoja/storefront-catalog/internal/api/handlers"
	"github.com/zatekoja/storefront-catalog/internal/api/middleware"
	"github.com/zatekoja/storefront-catalog/internal/application/catalog"
	"github.com/zatekoja/storefront-catalog/internal/application/services"
	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

type pagedProvider struct{}

func (pagedProvider) ListProducts(ctx context.Context, params url.Values) (*entities.CatalogResult, error) {
	page, _ := strconv.Atoi(params.Get("page"))
	return &entities.CatalogResult{
		Products:      []entities.Product{{ID: "p" + strconv.Itoa(page), Price: decimal.NewFromInt(900)}},
		CurrentPage:   page,
		TotalPages:    4,
		TotalProducts: 48,
	}, nil
}

func (pagedProvider) GetProductByID(ctx context.Context, id string) (*entities.Product, error) {
	return &entities.Product{ID: id, Name: "Product " + id}, nil
}

func (pagedProvider) GetProductBySlug(ctx context.Context, slug string) (*entities.Product, error) {
	return nil, apperrors.NewNotFoundError("not found")
}

func newTestServer(t *testing.T, checks map[string]handlers.HealthCheck) *httptest.Server {
	t.Helper()

	views, err := catalog.NewViewRegistry(catalog.DefaultViews()...)
	require.NoError(t, err)

	bus := events.NewMemoryEventBus()
	analytics := services.NewQueryAnalyticsService(nil)
	sessions := services.NewSessionService(views, pagedProvider{}, bus, analytics, nil, services.SessionConfig{
		FetchTimeout: time.Second,
	})

	router := NewRouter(
		handlers.NewCatalogHandler(sessions),
		handlers.NewSessionHandler(sessions),
		handlers.NewSSEHandler(sessions),
		handlers.NewProductHandler(pagedProvider{}),
		handlers.NewAnalyticsHandler(analytics),
		handlers.NewHealthHandler(checks),
		middleware.NewCacheMiddleware(cache.NewMemoryAdapter(), nil, 30, 300),
		nil,
		[]string{"*"},
	)

	server := httptest.NewServer(router.SetupRoutes())
	t.Cleanup(func() {
		server.Close()
		sessions.Shutdown(context.Background())
		_ = bus.Close()
	})
	return server
}

func TestRouter_HealthAndAnalytics(t *testing.T) {
	server := newTestServer(t, map[string]handlers.HealthCheck{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "degraded", health["status"])

	resp, err = http.Get(server.URL + "/api/analytics/zero-result-queries?limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var analytics map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&analytics))
	assert.Equal(t, false, analytics["enabled"])
	assert.Equal(t, float64(0), analytics["count"])

	resp, err = http.Get(server.URL + "/api/analytics/zero-result-queries?limit=0")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_CatalogResponsesAreCached(t *testing.T) {
	server := newTestServer(t, nil)

	get := func() *http.Response {
		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/catalog/bags?page=2", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://shop.example")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	first := get()
	first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, "MISS", first.Header.Get("X-Cache"))
	assert.Equal(t, "*", first.Header.Get("Access-Control-Allow-Origin"))

	second := get()
	defer second.Body.Close()
	assert.Equal(t, "HIT", second.Header.Get("X-Cache"))
	assert.Equal(t, "*", second.Header.Get("Access-Control-Allow-Origin"))

	var snap map[string]interface{}
	require.NoError(t, json.NewDecoder(second.Body).Decode(&snap))
	assert.Equal(t, "page=2", snap["url"])
}

func TestRouter_SessionStream(t *testing.T) {
	server := newTestServer(t, nil)

	resp, err := http.Post(server.URL+"/api/sessions", "application/json", strings.NewReader(`{"view":"shop"}`))
	require.NoError(t, err)
	var created map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := created["sessionId"].(string)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/sessions/"+id+"/stream", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	reader := bufio.NewReader(stream.Body)
	nextEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
		}
	}
	assert.Equal(t, "connected", nextEvent())

	resp, err = http.Post(server.URL+"/api/sessions/"+id+"/commands", "application/json", strings.NewReader(`{"type":"go_to_page","page":3}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "state_changed", nextEvent())

	del, err := http.NewRequest(http.MethodDelete, server.URL+"/api/sessions/"+id, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(del)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Remaining state changes may precede the close event
	for {
		if event := nextEvent(); event == "session_closed" {
			break
		}
	}
}
