package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/storefront-catalog/internal/adapters/cache"
)

func countingHandler(calls *int32, status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestCacheMiddleware_CachesSuccessfulCatalogResponses(t *testing.T) {
	var calls int32
	m := NewCacheMiddleware(cache.NewMemoryAdapter(), nil, 30, 300)
	handler := m.Middleware(countingHandler(&calls, http.StatusOK, `{"phase":"ready"}`))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/catalog/shop?page=2", nil))
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/catalog/shop?page=2", nil))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, `{"phase":"ready"}`, second.Body.String())

	// A different query is a different entry
	third := httptest.NewRecorder()
	handler.ServeHTTP(third, httptest.NewRequest(http.MethodGet, "/api/catalog/shop?page=3", nil))
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCacheMiddleware_SkipsUncacheableResponses(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		target  string
		handler func(calls *int32) http.Handler
	}{
		{
			name:   "error status",
			method: http.MethodGet,
			target: "/api/products/missing",
			handler: func(calls *int32) http.Handler {
				return countingHandler(calls, http.StatusNotFound, `{"error":"not found"}`)
			},
		},
		{
			name:   "no-store",
			method: http.MethodGet,
			target: "/api/catalog/shop",
			handler: func(calls *int32) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					atomic.AddInt32(calls, 1)
					w.Header().Set("Cache-Control", "no-store")
					_, _ = w.Write([]byte(`{"phase":"failed"}`))
				})
			},
		},
		{
			name:   "uncached route",
			method: http.MethodGet,
			target: "/api/sessions/abc",
			handler: func(calls *int32) http.Handler {
				return countingHandler(calls, http.StatusOK, `{}`)
			},
		},
		{
			name:   "non-GET",
			method: http.MethodPost,
			target: "/api/catalog/shop",
			handler: func(calls *int32) http.Handler {
				return countingHandler(calls, http.StatusOK, `{}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			handler := NewCacheMiddleware(cache.NewMemoryAdapter(), nil, 30, 300).Middleware(tt.handler(&calls))

			for i := 0; i < 2; i++ {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
				assert.NotEqual(t, "HIT", rec.Header().Get("X-Cache"))
			}
			assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
		})
	}
}

func TestCacheMiddleware_RouteConfig(t *testing.T) {
	m := NewCacheMiddleware(cache.NewMemoryAdapter(), nil, 0, 300)

	assert.True(t, m.getRouteConfig("/api/views").Enabled)
	assert.True(t, m.getRouteConfig("/api/views/bags").Enabled)
	assert.Equal(t, 300, m.getRouteConfig("/api/products/slug/ring").TTLSeconds)
	assert.False(t, m.getRouteConfig("/api/catalog/shop").Enabled, "zero TTL disables the route")
	assert.False(t, m.getRouteConfig("/api/sessions").Enabled)
}

func TestCORSMiddleware(t *testing.T) {
	var calls int32
	next := countingHandler(&calls, http.StatusOK, `{}`)

	t.Run("listed origin is echoed", func(t *testing.T) {
		handler := CORSMiddleware([]string{"https://shop.example"})(next)
		req := httptest.NewRequest(http.MethodGet, "/api/views", nil)
		req.Header.Set("Origin", "https://shop.example")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("unlisted origin gets no allow header", func(t *testing.T) {
		handler := CORSMiddleware([]string{"https://shop.example"})(next)
		req := httptest.NewRequest(http.MethodGet, "/api/views", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard by default", func(t *testing.T) {
		handler := CORSMiddleware(nil)(next)
		req := httptest.NewRequest(http.MethodGet, "/api/views", nil)
		req.Header.Set("Origin", "https://any.example")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		before := atomic.LoadInt32(&calls)
		handler := CORSMiddleware(nil)(next)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/sessions", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Last-Event-ID")
		assert.Equal(t, before, atomic.LoadInt32(&calls))
	})
}

func TestResponseOptimization(t *testing.T) {
	var calls int32
	handler := ResponseOptimization(countingHandler(&calls, http.StatusOK, `{"views":[]}`))

	req := httptest.NewRequest(http.MethodGet, "/api/views", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	gz, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, `{"views":[]}`, string(body))

	conditional := httptest.NewRequest(http.MethodGet, "/api/views", nil)
	conditional.Header.Set("Accept-Encoding", "gzip")
	conditional.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, conditional)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestETag_PassesErrorsThrough(t *testing.T) {
	var calls int32
	handler := ETag(countingHandler(&calls, http.StatusNotFound, `{"error":"x"}`))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/x", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
	assert.Equal(t, `{"error":"x"}`, rec.Body.String())
}

func TestObservabilityMiddleware_RequestID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/views", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := ObservabilityMiddleware(nil)(LoggingMiddleware(mux))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/api/views", nil)
	req.Header.Set(RequestIDHeader, "upstream-7")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-7", rec.Header().Get(RequestIDHeader))
}
