package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	StoreAPI StoreAPIConfig
	Catalog  CatalogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OTEL     OTELConfig
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Env      string
	LogLevel string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// StoreAPIConfig points at the external product REST API
type StoreAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CatalogConfig holds catalog controller and cache settings
type CatalogConfig struct {
	FetchTimeout     time.Duration
	SessionTTL       time.Duration
	JanitorInterval  time.Duration
	MaxSessions      int
	WarmPages        int
	ListCacheTTL     int // seconds
	ProductCacheTTL  int // seconds
	ResponseCacheTTL int // seconds
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment wins.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		StoreAPI: StoreAPIConfig{
			BaseURL: getEnv("STORE_API_URL", "http://localhost:5000/api"),
			Timeout: getEnvAsDuration("STORE_API_TIMEOUT", 20*time.Second),
		},
		Catalog: CatalogConfig{
			FetchTimeout:     getEnvAsDuration("CATALOG_FETCH_TIMEOUT", 15*time.Second),
			SessionTTL:       getEnvAsDuration("CATALOG_SESSION_TTL", 30*time.Minute),
			JanitorInterval:  getEnvAsDuration("CATALOG_JANITOR_INTERVAL", time.Minute),
			MaxSessions:      getEnvAsInt("CATALOG_MAX_SESSIONS", 10000),
			WarmPages:        getEnvAsInt("CATALOG_WARM_PAGES", 1),
			ListCacheTTL:     getEnvAsInt("CATALOG_LIST_CACHE_TTL", 60),
			ProductCacheTTL:  getEnvAsInt("CATALOG_PRODUCT_CACHE_TTL", 300),
			ResponseCacheTTL: getEnvAsInt("CATALOG_RESPONSE_CACHE_TTL", 30),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("ANALYTICS_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "storefront_catalog"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "storefront-catalog"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.StoreAPI.BaseURL) == "" {
		return fmt.Errorf("STORE_API_URL must not be empty")
	}
	if c.Catalog.FetchTimeout <= 0 {
		return fmt.Errorf("CATALOG_FETCH_TIMEOUT must be positive")
	}
	if c.Catalog.SessionTTL <= 0 {
		return fmt.Errorf("CATALOG_SESSION_TTL must be positive")
	}
	return nil
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
