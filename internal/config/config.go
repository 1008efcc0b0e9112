// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageMongo  = "mongo"
	StorageS3     = "s3"
	StorageNone   = "none"
)

// TTS providers
const (
	ProviderGoogle     = "google"
	ProviderElevenLabs = "elevenlabs"
	ProviderMock       = "mock"
	ProviderNone       = "none"
)

// devJWTSecret signs tokens in development when JWT_SECRET is unset. It is refused anywhere else.
const devJWTSecret = "your-secret-key"

// Config is the full server configuration
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Server     ServerConfig
	Auth       AuthConfig
	Storage    StorageConfig
	TTS        TTSConfig
	Dictionary DictionaryConfig
	Resolver   ResolverConfig
	Warmer     WarmerConfig
	Preload    PreloadConfig
}

type ServerConfig struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	PublicBaseURL   string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type AuthConfig struct {
	JWTSecret     string        `env:"JWT_SECRET"`
	AdminTokenTTL time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"24h"`
}

type StorageConfig struct {
	Backend      string        `env:"STORAGE_BACKEND" envDefault:"memory"`
	SignedURLTTL time.Duration `env:"SIGNED_URL_TTL" envDefault:"315360000s"`
	SQLitePath   string        `env:"SQLITE_PATH" envDefault:"learnvoice.db"`

	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"learnvoice"`
	MongoBucket   string `env:"MONGODB_BUCKET" envDefault:"audio_cache"`

	S3Bucket          string `env:"S3_BUCKET" envDefault:"audio_cache"`
	S3Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	S3PublicBaseURL   string `env:"S3_PUBLIC_BASE_URL"`
}

type TTSConfig struct {
	Provider string `env:"TTS_PROVIDER" envDefault:"google"`

	GoogleAPIKey       string `env:"GOOGLE_TTS_API_KEY"`
	LegacyGoogleAPIKey string `env:"VITE_GOOGLE_CLOUD_API_KEY"`
	GoogleUseADC       bool   `env:"GOOGLE_TTS_USE_ADC" envDefault:"false"`
	GoogleLanguage     string `env:"GOOGLE_TTS_LANGUAGE" envDefault:"en-US"`

	// passed through to the provider untouched
	GoogleVolumeGainDb float64 `env:"GOOGLE_TTS_VOLUME_GAIN_DB" envDefault:"6.0"`

	ElevenLabsAPIKey  string `env:"ELEVENLABS_API_KEY"`
	ElevenLabsVoiceID string `env:"ELEVENLABS_VOICE_ID"`
	ElevenLabsModelID string `env:"ELEVENLABS_MODEL_ID"`
}

type DictionaryConfig struct {
	Enabled   bool          `env:"DICTIONARY_ENABLED" envDefault:"true"`
	BaseURL   string        `env:"DICTIONARY_BASE_URL" envDefault:"https://dictionary.cambridge.org"`
	Region    string        `env:"DICTIONARY_REGION" envDefault:"us"`
	UserAgent string        `env:"DICTIONARY_USER_AGENT"`
	RateLimit float64       `env:"DICTIONARY_RPS" envDefault:"2"`
	Timeout   time.Duration `env:"DICTIONARY_TIMEOUT" envDefault:"10s"`
}

type ResolverConfig struct {
	Dedupe            bool          `env:"RESOLVER_DEDUPE" envDefault:"true"`
	ExistsTimeout     time.Duration `env:"RESOLVER_EXISTS_TIMEOUT" envDefault:"5s"`
	GetTimeout        time.Duration `env:"RESOLVER_GET_TIMEOUT" envDefault:"10s"`
	LookupTimeout     time.Duration `env:"RESOLVER_LOOKUP_TIMEOUT" envDefault:"5s"`
	FetchTimeout      time.Duration `env:"RESOLVER_FETCH_TIMEOUT" envDefault:"10s"`
	SynthesizeTimeout time.Duration `env:"RESOLVER_SYNTHESIZE_TIMEOUT" envDefault:"15s"`
	PutTimeout        time.Duration `env:"RESOLVER_PUT_TIMEOUT" envDefault:"15s"`
	SignTimeout       time.Duration `env:"RESOLVER_SIGN_TIMEOUT" envDefault:"5s"`
}

type WarmerConfig struct {
	Interval time.Duration `env:"WARM_INTERVAL" envDefault:"500ms"`
}

type PreloadConfig struct {
	Concurrency int `env:"PRELOAD_CONCURRENCY" envDefault:"4"`
}

// Load reads .env when present and parses the environment into a validated Config
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.Auth.JWTSecret == "" && cfg.Development() {
		cfg.Auth.JWTSecret = devJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !c.Development() && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == devJWTSecret) {
		errs = append(errs, errors.New("JWT_SECRET must be set to a non-default value outside development"))
	}
	if c.Storage.SignedURLTTL <= 0 {
		errs = append(errs, errors.New("SIGNED_URL_TTL must be positive"))
	}
	switch c.Storage.Backend {
	case StorageMemory, StorageSQLite, StorageMongo, StorageS3, StorageNone:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}
	switch c.TTS.Provider {
	case ProviderGoogle, ProviderElevenLabs, ProviderMock, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("unknown TTS_PROVIDER %q", c.TTS.Provider))
	}
	if c.Dictionary.RateLimit <= 0 {
		errs = append(errs, errors.New("DICTIONARY_RPS must be positive"))
	}
	if c.Preload.Concurrency <= 0 {
		errs = append(errs, errors.New("PRELOAD_CONCURRENCY must be positive"))
	}
	if c.Warmer.Interval < 0 {
		errs = append(errs, errors.New("WARM_INTERVAL must not be negative"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}

	return errors.Join(errs...)
}

// Development reports whether APP_ENV selects development mode
func (c *Config) Development() bool {
	return strings.EqualFold(c.Env, "development")
}

// GoogleKey returns the TTS API key, falling back to the key name the web front end used
func (c TTSConfig) GoogleKey() string {
	if c.GoogleAPIKey != "" {
		return c.GoogleAPIKey
	}
	return c.LegacyGoogleAPIKey
}

// NewLogger builds a production JSON logger or a development console logger
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.Development() {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}
