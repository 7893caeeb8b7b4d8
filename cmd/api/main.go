package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/storefront-catalog/internal/adapters/cache"
	"github.com/zatekoja/storefront-catalog/internal/adapters/database"
	"github.com/zatekoja/storefront-catalog/internal/adapters/events"
	adapterstoreapi "github.com/zatekoja/storefront-catalog/internal/adapters/storeapi"
	"github.com/zatekoja/storefront-catalog/internal/api/handlers"
	"github.com/zatekoja/storefront-catalog/internal/api/middleware"
	"github.com/zatekoja/storefront-catalog/internal/api/routes"
	"github.com/zatekoja/storefront-catalog/internal/application/catalog"
	"github.com/zatekoja/storefront-catalog/internal/application/services"
	"github.com/zatekoja/storefront-catalog/internal/domain/providers"
	"github.com/zatekoja/storefront-catalog/internal/domain/repositories"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/clients/redis"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/clients/storeapi"
	"github.com/zatekoja/storefront-catalog/internal/infrastructure/observability"
	"github.com/zatekoja/storefront-catalog/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.App.Env, cfg.App.LogLevel)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	checks := map[string]handlers.HealthCheck{}

	// Initialize Redis client; the gateway runs without it on in-memory
	// cache and event bus, which only works for a single replica
	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Redis client, falling back to in-memory cache and event bus")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient, "storefront")
			eventBus = events.NewRedisEventBus(redisClient)
			checks["redis"] = redisClient.Ping
			log.Info().Msg("Redis client initialized successfully")
		}
	}
	if cacheProvider == nil {
		cacheProvider = cache.NewMemoryAdapter()
	}
	if eventBus == nil {
		eventBus = events.NewMemoryEventBus()
	}

	// Query analytics are optional and need PostgreSQL
	var analyticsRepo repositories.QueryAnalyticsRepository
	if cfg.Database.Enabled {
		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize PostgreSQL client, query analytics disabled")
		} else {
			defer pgClient.Close()
			adapter := database.NewQueryAnalyticsAdapter(pgClient, metrics)
			if err := adapter.EnsureSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to ensure query analytics schema")
			}
			analyticsRepo = adapter
			checks["postgres"] = pgClient.Ping
			log.Info().Msg("PostgreSQL client initialized successfully")
		}
	}
	analyticsService := services.NewQueryAnalyticsService(analyticsRepo)

	// Product API, wrapped with the listing and product caches
	apiClient := storeapi.NewClient(cfg.StoreAPI.BaseURL, cfg.StoreAPI.Timeout)
	catalogProvider := adapterstoreapi.NewCachedCatalogProvider(
		apiClient,
		cacheProvider,
		metrics,
		cfg.Catalog.ListCacheTTL,
		cfg.Catalog.ProductCacheTTL,
	)

	views, err := catalog.NewViewRegistry(catalog.DefaultViews()...)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid catalog view configuration")
	}

	sessionService := services.NewSessionService(views, catalogProvider, eventBus, analyticsService, metrics, services.SessionConfig{
		FetchTimeout: cfg.Catalog.FetchTimeout,
		IdleTTL:      cfg.Catalog.SessionTTL,
		MaxSessions:  cfg.Catalog.MaxSessions,
	})
	sessionService.StartJanitor(ctx, cfg.Catalog.JanitorInterval)

	if cfg.Catalog.WarmPages > 0 && cfg.Catalog.ListCacheTTL > 0 {
		warmingService := services.NewCacheWarmingService(views, catalogProvider, cfg.Catalog.WarmPages)
		go warmingService.StartPeriodicWarming(ctx, time.Duration(cfg.Catalog.ListCacheTTL)*time.Second)
	}

	// Initialize handlers
	router := routes.NewRouter(
		handlers.NewCatalogHandler(sessionService),
		handlers.NewSessionHandler(sessionService),
		handlers.NewSSEHandler(sessionService),
		handlers.NewProductHandler(catalogProvider),
		handlers.NewAnalyticsHandler(analyticsService),
		handlers.NewHealthHandler(checks),
		middleware.NewCacheMiddleware(cacheProvider, metrics, cfg.Catalog.ResponseCacheTTL, cfg.Catalog.ProductCacheTTL),
		metrics,
		cfg.Server.AllowedOrigins,
	)

	// Event streams stay open, so there is no write timeout
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Str("store_api", cfg.StoreAPI.BaseURL).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Closing sessions first ends open event streams
	cancel()
	sessionService.Shutdown(shutdownCtx)

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}
