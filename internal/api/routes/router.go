package routes

import (
	"net/http"

	"github.com/zatekoja/storefront-catalog/internal/api/handlers"
	"github.com/zatekoja/storefront-catalog/internal/api/middleware"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	catalogHandler   *handlers.CatalogHandler
	sessionHandler   *handlers.SessionHandler
	sseHandler       *handlers.SSEHandler
	productHandler   *handlers.ProductHandler
	analyticsHandler *handlers.AnalyticsHandler
	healthHandler    *handlers.HealthHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
	allowedOrigins  []string
}

// NewRouter creates a new router
func NewRouter(
	catalogHandler *handlers.CatalogHandler,
	sessionHandler *handlers.SessionHandler,
	sseHandler *handlers.SSEHandler,
	productHandler *handlers.ProductHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	healthHandler *handlers.HealthHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		catalogHandler:   catalogHandler,
		sessionHandler:   sessionHandler,
		sseHandler:       sseHandler,
		productHandler:   productHandler,
		analyticsHandler: analyticsHandler,
		healthHandler:    healthHandler,
		cacheMiddleware:  cacheMiddleware,
		metrics:          metrics,
		allowedOrigins:   allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	if r.healthHandler != nil {
		r.mux.HandleFunc("GET /health", r.healthHandler.Health)
	} else {
		r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		})
	}

	// View and one-shot catalog endpoints
	r.mux.Handle("GET /api/views", r.cacheable(r.catalogHandler.ListViews))
	r.mux.Handle("GET /api/views/{view}", r.cacheable(r.catalogHandler.GetView))
	r.mux.Handle("GET /api/catalog/{view}", r.cacheable(r.catalogHandler.ResolveCatalog))

	// Session endpoints
	r.mux.HandleFunc("POST /api/sessions", r.sessionHandler.CreateSession)
	r.mux.HandleFunc("GET /api/sessions/{id}", r.sessionHandler.GetSession)
	r.mux.HandleFunc("DELETE /api/sessions/{id}", r.sessionHandler.CloseSession)
	r.mux.HandleFunc("POST /api/sessions/{id}/commands", r.sessionHandler.DispatchCommand)
	r.mux.HandleFunc("POST /api/sessions/{id}/back", r.sessionHandler.Back)
	r.mux.HandleFunc("POST /api/sessions/{id}/forward", r.sessionHandler.Forward)

	// Event stream, never buffered
	r.mux.HandleFunc("GET /api/sessions/{id}/stream", r.sseHandler.StreamSession)

	// Product endpoints
	r.mux.Handle("GET /api/products", r.cacheable(r.productHandler.GetProducts))
	r.mux.Handle("GET /api/products/{id}", r.cacheable(r.productHandler.GetProduct))
	r.mux.Handle("GET /api/products/slug/{slug}", r.cacheable(r.productHandler.GetProductBySlug))

	// Analytics endpoints
	if r.analyticsHandler != nil {
		r.mux.HandleFunc("GET /api/analytics/zero-result-queries", r.analyticsHandler.GetZeroResultQueries)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

// cacheable wraps a read-only JSON route with the response cache and the
// HTTP performance optimizations (compression, ETag, cache headers). The
// cache sits inside compression so stored bodies are plain JSON.
func (r *Router) cacheable(h http.HandlerFunc) http.Handler {
	var handler http.Handler = h
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}
	return middleware.ResponseOptimization(handler)
}
