package config

import (
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"PORT", "LOG_LEVEL",
		"SUPABASE_URL", "PUBLIC_SUPABASE_URL", "SUPABASE_ANON_KEY", "PUBLIC_SUPABASE_ANON_KEY",
		"SNAPSHOT_TTL", "SNAPSHOT_INCLUDE_AUXILIARY", "UPSTREAM_TIMEOUT", "EDGE_CACHE_MAX_AGE",
		"SNAPSHOT_WARM_INTERVAL", "FORCE_REFRESH_MIN_INTERVAL", "QUERY_CACHE_SIZE",
		"SEED_SNAPSHOT_FILE", "DATABASE_URL", "DATABASE_MAX_CONNS", "API_KEY",
		"OTEL_METRICS_EXPORTER", "OTEL_TRACES_EXPORTER", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		shouldSet    bool
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			shouldSet:    true,
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "TEST_VAR_MISSING",
			defaultValue: "default",
			shouldSet:    false,
			want:         "default",
		},
		{
			name:         "returns default when environment variable is empty string",
			key:          "TEST_VAR_EMPTY",
			defaultValue: "default",
			envValue:     "",
			shouldSet:    true,
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{"valid integer", "200", 200},
		{"empty falls back", "", 100},
		{"invalid falls back", "not_a_number", 100},
		{"negative", "-50", -50},
		{"zero", "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT_VAR", tt.envValue)

			if got := getEnvAsInt("TEST_INT_VAR", 100); got != tt.want {
				t.Errorf("getEnvAsInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{"hours", "6h", 6 * time.Hour},
		{"seconds", "90s", 90 * time.Second},
		{"empty falls back", "", time.Minute},
		{"bare number falls back", "30", time.Minute},
		{"garbage falls back", "soon", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION_VAR", tt.envValue)

			if got := getEnvAsDuration("TEST_DURATION_VAR", time.Minute); got != tt.want {
				t.Errorf("getEnvAsDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_BOOL_VAR", "false")
	if getEnvAsBool("TEST_BOOL_VAR", true) {
		t.Error("getEnvAsBool() = true, want false")
	}

	t.Setenv("TEST_BOOL_VAR", "maybe")
	if !getEnvAsBool("TEST_BOOL_VAR", true) {
		t.Error("invalid value should fall back to default")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.SnapshotTTL != 6*time.Hour {
		t.Errorf("SnapshotTTL = %v", cfg.SnapshotTTL)
	}
	if !cfg.IncludeAuxiliary {
		t.Error("IncludeAuxiliary should default to true")
	}
	if cfg.UpstreamTimeout != 30*time.Second {
		t.Errorf("UpstreamTimeout = %v", cfg.UpstreamTimeout)
	}
	if cfg.EdgeCacheMaxAge != 5*time.Minute {
		t.Errorf("EdgeCacheMaxAge = %v", cfg.EdgeCacheMaxAge)
	}
	if cfg.SnapshotWarmInterval != 0 {
		t.Errorf("SnapshotWarmInterval = %v", cfg.SnapshotWarmInterval)
	}
	if cfg.QueryCacheSize != 256 {
		t.Errorf("QueryCacheSize = %d", cfg.QueryCacheSize)
	}
	if cfg.DatabaseMaxConns != 4 {
		t.Errorf("DatabaseMaxConns = %d", cfg.DatabaseMaxConns)
	}
	if cfg.HasUpstreamCredentials() {
		t.Error("HasUpstreamCredentials() = true with no credentials set")
	}
}

func TestLoad_MissingCredentialsIsNotAnError(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if cfg.HasUpstreamCredentials() {
		t.Error("HasUpstreamCredentials() = true without a key")
	}
}

func TestLoad_CredentialFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantURL string
		wantKey string
	}{
		{
			name:    "primary names",
			env:     map[string]string{"SUPABASE_URL": "https://a.supabase.co", "SUPABASE_ANON_KEY": "key-a"},
			wantURL: "https://a.supabase.co",
			wantKey: "key-a",
		},
		{
			name:    "public fallbacks",
			env:     map[string]string{"PUBLIC_SUPABASE_URL": "https://b.supabase.co", "PUBLIC_SUPABASE_ANON_KEY": "key-b"},
			wantURL: "https://b.supabase.co",
			wantKey: "key-b",
		},
		{
			name: "primary wins over fallback",
			env: map[string]string{
				"SUPABASE_URL": "https://a.supabase.co", "PUBLIC_SUPABASE_URL": "https://b.supabase.co",
				"SUPABASE_ANON_KEY": "key-a", "PUBLIC_SUPABASE_ANON_KEY": "key-b",
			},
			wantURL: "https://a.supabase.co",
			wantKey: "key-a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.SupabaseURL != tt.wantURL || cfg.SupabaseAnonKey != tt.wantKey {
				t.Errorf("got (%q, %q), want (%q, %q)", cfg.SupabaseURL, cfg.SupabaseAnonKey, tt.wantURL, tt.wantKey)
			}
			if !cfg.HasUpstreamCredentials() {
				t.Error("HasUpstreamCredentials() = false")
			}
		})
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero ttl", "SNAPSHOT_TTL", "0s"},
		{"negative ttl", "SNAPSHOT_TTL", "-1h"},
		{"zero upstream timeout", "UPSTREAM_TIMEOUT", "0s"},
		{"negative edge max age", "EDGE_CACHE_MAX_AGE", "-5m"},
		{"negative warm interval", "SNAPSHOT_WARM_INTERVAL", "-1m"},
		{"negative refresh interval", "FORCE_REFRESH_MIN_INTERVAL", "-1s"},
		{"zero query cache", "QUERY_CACHE_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() error = nil, want error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SNAPSHOT_TTL", "30m")
	t.Setenv("SNAPSHOT_INCLUDE_AUXILIARY", "false")
	t.Setenv("SNAPSHOT_WARM_INTERVAL", "10m")
	t.Setenv("QUERY_CACHE_SIZE", "16")
	t.Setenv("API_KEY", "admin")
	t.Setenv("PORT", "3000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SnapshotTTL != 30*time.Minute || cfg.IncludeAuxiliary || cfg.SnapshotWarmInterval != 10*time.Minute {
		t.Errorf("unexpected snapshot settings: %+v", cfg)
	}
	if cfg.QueryCacheSize != 16 || cfg.APIKey != "admin" || cfg.Port != "3000" {
		t.Errorf("unexpected settings: %+v", cfg)
	}
}
