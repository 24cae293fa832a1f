// internal/config/config.go
// Centralized configuration management
// Loads from environment variables with sensible defaults

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string
	RedisURL    string

	// Caching
	CacheTTL        time.Duration
	ProfileCacheTTL time.Duration
	JanitorInterval time.Duration

	// Ranking
	WorkerCount     int
	PoolMultiplier  int
	MLBlendWeight   float64
	DefaultMinScore float64
	ScoringTimeout  time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/onetime?sslmode=disable"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		CacheTTL:        getEnvDuration("CACHE_TTL", "5m"),
		ProfileCacheTTL: getEnvDuration("PROFILE_CACHE_TTL", "5m"),
		JanitorInterval: getEnvDuration("JANITOR_INTERVAL", "1m"),

		WorkerCount:     getEnvInt("WORKER_COUNT", 0), // 0 means GOMAXPROCS
		PoolMultiplier:  getEnvInt("POOL_MULTIPLIER", 3),
		MLBlendWeight:   getEnvFloat("ML_BLEND_WEIGHT", 0.6),
		DefaultMinScore: getEnvFloat("DEFAULT_MIN_SCORE", 0.3),
		ScoringTimeout:  getEnvDuration("SCORING_TIMEOUT", "2s"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.MLBlendWeight < 0 || c.MLBlendWeight > 1 {
		return fmt.Errorf("ML blend weight must be between 0 and 1")
	}

	if c.DefaultMinScore < 0 || c.DefaultMinScore > 1 {
		return fmt.Errorf("default min score must be between 0 and 1")
	}

	if c.ScoringTimeout <= 0 {
		return fmt.Errorf("scoring timeout must be positive")
	}

	if c.PoolMultiplier < 1 {
		return fmt.Errorf("pool multiplier must be at least 1")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
