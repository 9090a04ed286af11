package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	TablePrefix string
	CORSOrigins string
	// Auth: JWKSURL takes precedence over JWTSecret when both are set
	JWKSURL   string
	JWTSecret string
	// Library behaviour
	RevisionLimit  int
	MaxUploadBytes int64
	// Metadata lookup circuit breaker
	LookupBreakerTimeout     time.Duration
	LookupBreakerMinRequests uint32
	LookupBreakerFailureRate float64
	// Observability
	MetricsEnabled bool
	LogDir         string
	LogMaxFiles    int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		TablePrefix: getTablePrefix(env),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		JWKSURL:     getEnv("JWKS_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		RevisionLimit:  getEnvInt("REVISION_LIMIT", DefaultRevisionLimit),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),

		LookupBreakerTimeout:     getEnvDuration("LOOKUP_BREAKER_TIMEOUT", 60*time.Second),
		LookupBreakerMinRequests: uint32(getEnvInt("LOOKUP_BREAKER_MIN_REQUESTS", 5)),
		LookupBreakerFailureRate: getEnvFloat("LOOKUP_BREAKER_FAILURE_RATE", 0.8),

		MetricsEnabled: getEnv("METRICS_ENABLED", "true") == "true",
		LogDir:         getEnv("LOG_DIR", ""),
		LogMaxFiles:    getEnvInt("LOG_MAX_FILES", 10),
	}
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return d
}
