package config

import (
	"os"
	"testing"
	"time"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		prev, ok := os.LookupEnv(key)
		os.Unsetenv(key)
		if ok {
			t.Cleanup(func() { os.Setenv(key, prev) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t,
		"APP_ENV", "LOG_LEVEL", "PORT", "STORAGE_BACKEND", "TTS_PROVIDER",
		"SIGNED_URL_TTL", "CORS_ORIGINS", "PRELOAD_CONCURRENCY", "DICTIONARY_RPS",
		"RESOLVER_DEDUPE", "RESOLVER_SYNTHESIZE_TIMEOUT", "WARM_INTERVAL",
	)
	t.Setenv("JWT_SECRET", "prod-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Errorf("Expected memory backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Storage.SignedURLTTL != 315360000*time.Second {
		t.Errorf("Expected ten-year TTL, got %v", cfg.Storage.SignedURLTTL)
	}
	if cfg.Resolver.SynthesizeTimeout != 15*time.Second {
		t.Errorf("Expected 15s synthesize timeout, got %v", cfg.Resolver.SynthesizeTimeout)
	}
	if cfg.Warmer.Interval != 500*time.Millisecond {
		t.Errorf("Expected 500ms warm interval, got %v", cfg.Warmer.Interval)
	}
	if !cfg.Resolver.Dedupe {
		t.Error("Expected dedupe enabled by default")
	}
	if cfg.Development() {
		t.Error("Expected production mode")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("TTS_PROVIDER", "mock")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("APP_ENV", "development")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SIGNED_URL_TTL", "1h")
	t.Setenv("PRELOAD_CONCURRENCY", "8")
	t.Setenv("DICTIONARY_RPS", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != StorageSQLite {
		t.Errorf("Expected sqlite backend, got %s", cfg.Storage.Backend)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("Expected 2 CORS origins, got %v", cfg.Server.CORSOrigins)
	}
	if !cfg.Development() {
		t.Error("Expected development mode")
	}
	if cfg.Preload.Concurrency != 8 {
		t.Errorf("Expected concurrency 8, got %d", cfg.Preload.Concurrency)
	}
}

func TestLoadJWTSecret(t *testing.T) {
	unsetEnv(t, "JWT_SECRET")

	t.Setenv("APP_ENV", "production")
	if _, err := Load(); err == nil {
		t.Error("Expected error without JWT_SECRET in production")
	}

	t.Setenv("JWT_SECRET", devJWTSecret)
	if _, err := Load(); err == nil {
		t.Error("Expected error for the development secret in production")
	}

	os.Unsetenv("JWT_SECRET")
	t.Setenv("APP_ENV", "development")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Auth.JWTSecret != devJWTSecret {
		t.Errorf("Expected development secret, got %q", cfg.Auth.JWTSecret)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			LogLevel:   "info",
			Server:     ServerConfig{Port: 8080},
			Auth:       AuthConfig{JWTSecret: "s3cret"},
			Storage:    StorageConfig{Backend: StorageMemory, SignedURLTTL: time.Hour},
			TTS:        TTSConfig{Provider: ProviderGoogle},
			Dictionary: DictionaryConfig{RateLimit: 2},
			Preload:    PreloadConfig{Concurrency: 4},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"bad backend", func(c *Config) { c.Storage.Backend = "ftp" }, true},
		{"bad provider", func(c *Config) { c.TTS.Provider = "polly" }, true},
		{"zero ttl", func(c *Config) { c.Storage.SignedURLTTL = 0 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"zero concurrency", func(c *Config) { c.Preload.Concurrency = 0 }, true},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"development secret", func(c *Config) { c.Auth.JWTSecret = devJWTSecret }, true},
		{"development secret in development", func(c *Config) {
			c.Env = "development"
			c.Auth.JWTSecret = devJWTSecret
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGoogleKeyFallback(t *testing.T) {
	c := TTSConfig{LegacyGoogleAPIKey: "legacy"}
	if c.GoogleKey() != "legacy" {
		t.Errorf("Expected legacy key, got %q", c.GoogleKey())
	}
	c.GoogleAPIKey = "primary"
	if c.GoogleKey() != "primary" {
		t.Errorf("Expected primary key, got %q", c.GoogleKey())
	}
}
