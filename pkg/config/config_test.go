package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_StoreAPIConfig(t *testing.T) {
	t.Setenv("STORE_API_URL", "http://test-store:5000/api")
	t.Setenv("CATALOG_FETCH_TIMEOUT", "5s")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://test-store:5000/api", cfg.StoreAPI.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Catalog.FetchTimeout)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_API_URL", "")
	t.Setenv("CATALOG_FETCH_TIMEOUT", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.StoreAPI.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Catalog.FetchTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
	assert.Equal(t, 10000, cfg.Catalog.MaxSessions)
	assert.Equal(t, 1, cfg.Catalog.WarmPages)
}

func TestLoad_MalformedDurationFallsBack(t *testing.T) {
	t.Setenv("CATALOG_SESSION_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Catalog.SessionTTL)
}

func TestLoad_RejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("CATALOG_FETCH_TIMEOUT", "-1s")

	_, err := Load()
	assert.Error(t, err)
}
