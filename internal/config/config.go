// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Port     string
	LogLevel string

	// Upstream data service. Both may be empty: the service then serves empty results.
	SupabaseURL     string
	SupabaseAnonKey string

	// SnapshotTTL is the freshness window of the cached snapshot.
	SnapshotTTL time.Duration
	// IncludeAuxiliary selects whether benchmark definitions, runs and epoch models are fetched.
	IncludeAuxiliary bool
	UpstreamTimeout  time.Duration
	// EdgeCacheMaxAge is advertised to shared caches via s-maxage.
	EdgeCacheMaxAge time.Duration
	// SnapshotWarmInterval enables the background warmer when > 0.
	SnapshotWarmInterval time.Duration
	// ForceRefreshMinInterval limits cache-bypassing reads and manual invalidations.
	ForceRefreshMinInterval time.Duration
	QueryCacheSize          int

	SeedSnapshotFile string
	DatabaseURL      string
	DatabaseMaxConns int
	// APIKey guards the admin endpoints; they are not registered when empty.
	APIKey string

	OtelMetricsExporter  string
	OtelTracesExporter   string
	OtelTracesSampler    string
	OtelTracesSamplerArg string

	ShutdownTimeout time.Duration
}

// HasUpstreamCredentials reports whether both the upstream URL and key are set.
func (c *Config) HasUpstreamCredentials() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFirst returns the first non-empty variable among keys.
func getEnvFirst(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a time.Duration (e.g. "6h", "90s")
// or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// Load reads configuration from environment variables and returns a Config struct.
// It automatically loads .env file if it exists.
// Returns default values for any missing environment variables.
// Missing upstream credentials are not an error; they are logged as a warning.
func Load() (*Config, error) {
	// Load .env file if it exists. Skip logging when absent (e.g. env from secrets/parameter store).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	snapshotTTL := getEnvAsDuration("SNAPSHOT_TTL", 6*time.Hour)
	if snapshotTTL <= 0 {
		return nil, errors.New("SNAPSHOT_TTL must be a positive duration")
	}

	upstreamTimeout := getEnvAsDuration("UPSTREAM_TIMEOUT", 30*time.Second)
	if upstreamTimeout <= 0 {
		return nil, errors.New("UPSTREAM_TIMEOUT must be a positive duration")
	}

	edgeCacheMaxAge := getEnvAsDuration("EDGE_CACHE_MAX_AGE", 5*time.Minute)
	if edgeCacheMaxAge < 0 {
		return nil, errors.New("EDGE_CACHE_MAX_AGE must not be negative")
	}

	warmInterval := getEnvAsDuration("SNAPSHOT_WARM_INTERVAL", 0)
	if warmInterval < 0 {
		return nil, errors.New("SNAPSHOT_WARM_INTERVAL must not be negative")
	}

	forceRefreshMinInterval := getEnvAsDuration("FORCE_REFRESH_MIN_INTERVAL", time.Minute)
	if forceRefreshMinInterval < 0 {
		return nil, errors.New("FORCE_REFRESH_MIN_INTERVAL must not be negative")
	}

	queryCacheSize := getEnvAsInt("QUERY_CACHE_SIZE", 256)
	if queryCacheSize <= 0 {
		return nil, errors.New("QUERY_CACHE_SIZE must be a positive integer")
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SupabaseURL:     getEnvFirst("SUPABASE_URL", "PUBLIC_SUPABASE_URL"),
		SupabaseAnonKey: getEnvFirst("SUPABASE_ANON_KEY", "PUBLIC_SUPABASE_ANON_KEY"),

		SnapshotTTL:             snapshotTTL,
		IncludeAuxiliary:        getEnvAsBool("SNAPSHOT_INCLUDE_AUXILIARY", true),
		UpstreamTimeout:         upstreamTimeout,
		EdgeCacheMaxAge:         edgeCacheMaxAge,
		SnapshotWarmInterval:    warmInterval,
		ForceRefreshMinInterval: forceRefreshMinInterval,
		QueryCacheSize:          queryCacheSize,

		SeedSnapshotFile: os.Getenv("SEED_SNAPSHOT_FILE"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DatabaseMaxConns: getEnvAsInt("DATABASE_MAX_CONNS", 4),
		APIKey:           os.Getenv("API_KEY"),

		OtelMetricsExporter:  os.Getenv("OTEL_METRICS_EXPORTER"),
		OtelTracesExporter:   os.Getenv("OTEL_TRACES_EXPORTER"),
		OtelTracesSampler:    os.Getenv("OTEL_TRACES_SAMPLER"),
		OtelTracesSamplerArg: os.Getenv("OTEL_TRACES_SAMPLER_ARG"),

		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	if !cfg.HasUpstreamCredentials() {
		slog.Warn("Missing SUPABASE_URL or SUPABASE_ANON_KEY; live refresh is disabled and only seeded data is served")
	}

	return cfg, nil
}
