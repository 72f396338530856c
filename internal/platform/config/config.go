// Package config centralizes the environment variables used by the binaries.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config aggregates every parameter the api and recount binaries need.
type Config struct {
	HTTPAddress string
	LogLevel    string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// memory keeps limiter state in-process; redis shares it between replicas.
	RateLimitBackend   string
	RateLimitKeyPrefix string

	VoteLimitMax              int
	VoteLimitWindowSeconds    int
	CreatePollLimitMax        int
	CreatePollLimitWindowSecs int

	SessionSecret string
	CSRFSecret    string
	CSRFRequired  bool

	AutoMigrate bool
}

func Load() (Config, error) {
	// A local .env is convenient in development; absence is not an error.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddress:               getEnv("HTTP_ADDRESS", ":8080"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		PostgresHost:              getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:              getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:              getEnv("POSTGRES_USER", "polls"),
		PostgresPassword:          getEnv("POSTGRES_PASSWORD", "polls"),
		PostgresDB:                getEnv("POSTGRES_DB", "polls"),
		PostgresSSLMode:           getEnv("POSTGRES_SSLMODE", "disable"),
		RedisAddr:                 getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RateLimitBackend:          getEnv("RATE_LIMIT_BACKEND", "memory"),
		RateLimitKeyPrefix:        getEnv("RATE_LIMIT_PREFIX", "ratelimit"),
		VoteLimitMax:              getEnvAsInt("RATE_LIMIT_VOTE_MAX", 5),
		VoteLimitWindowSeconds:    getEnvAsInt("RATE_LIMIT_VOTE_WINDOW", 60),
		CreatePollLimitMax:        getEnvAsInt("RATE_LIMIT_CREATE_POLL_MAX", 3),
		CreatePollLimitWindowSecs: getEnvAsInt("RATE_LIMIT_CREATE_POLL_WINDOW", 60),
		SessionSecret:             getEnv("SESSION_SECRET", "dev-session-secret"),
		CSRFSecret:                getEnv("CSRF_SECRET", "dev-csrf-secret"),
		CSRFRequired:              getEnvAsBool("CSRF_REQUIRED", false),
		AutoMigrate:               getEnvAsBool("DB_AUTO_MIGRATE", true),
	}

	dbStr := getEnv("REDIS_DB", "0")
	dbInt, err := strconv.Atoi(dbStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = dbInt

	if cfg.RateLimitBackend != "memory" && cfg.RateLimitBackend != "redis" {
		return Config{}, fmt.Errorf("config: unknown RATE_LIMIT_BACKEND %q", cfg.RateLimitBackend)
	}

	return cfg, nil
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}
