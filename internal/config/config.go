package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string
	AppEnv   string // development | production

	// Storage
	DatabaseURL   string
	RunMigrations bool
	MediaLedger   string // postgres | supabase | memory

	// Redis (role/permission cache); empty uses the in-process cache
	RedisURL     string
	RoleCacheTTL time.Duration

	// HTTP client (media ledger)
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Observability
	OTLPEndpoint string
	ServiceName  string

	// Supabase
	SupabaseURL        string
	SupabaseServiceKey string

	// OTP / registration sessions
	OtpMode        string // fixed | random
	OtpTTL         time.Duration
	OtpMaxAttempts int
	SessionTTL     time.Duration

	// JWT / Auth
	JWTSecret    string
	JWTIssuer    string
	JWTAccessTTL time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		AppEnv:   getEnv("APP_ENV", "development"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),
		MediaLedger:   getEnv("MEDIA_LEDGER", "postgres"),

		RedisURL:     getEnv("REDIS_URL", ""),
		RoleCacheTTL: getEnvDuration("ROLE_CACHE_TTL", 5*time.Minute),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "bonds-kyc-engine"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		OtpMode:        getEnv("OTP_MODE", "fixed"),
		OtpTTL:         getEnvDuration("OTP_TTL", 5*time.Minute),
		OtpMaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 3),
		SessionTTL:     getEnvDuration("SESSION_TTL", 30*time.Minute),

		JWTSecret:    getEnv("JWT_SECRET", "kyc-default-dev-secret-change-me"),
		JWTIssuer:    getEnv("JWT_ISSUER", "bonds-kyc-api"),
		JWTAccessTTL: getEnvDuration("JWT_ACCESS_TTL", 24*time.Hour),
	}
}

// IsDevelopment reports whether detailed error messages may be returned to
// clients.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv != "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
