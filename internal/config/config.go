// Package config reads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port           int
	LogLevel       string
	StorageDriver  string // "postgres" or "memory"
	DBConnStr      string
	QuoteBaseURL   string
	QuoteTimeout   time.Duration
	QuoteCacheTTL  time.Duration
	OpeningBalance decimal.Decimal
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnvAsInt("PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		StorageDriver:  getEnv("STORAGE_DRIVER", "postgres"),
		DBConnStr:      buildDBConnStr(),
		QuoteBaseURL:   getEnv("QUOTE_SERVICE_URL", "http://localhost:9100"),
		QuoteTimeout:   getEnvAsDuration("QUOTE_TIMEOUT", 3*time.Second),
		QuoteCacheTTL:  getEnvAsDuration("QUOTE_CACHE_TTL", 15*time.Second),
		OpeningBalance: getEnvAsDecimal("OPENING_BALANCE", decimal.NewFromInt(100000)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.StorageDriver != "postgres" && c.StorageDriver != "memory" {
		return fmt.Errorf("STORAGE_DRIVER must be postgres or memory, got %q", c.StorageDriver)
	}
	if c.StorageDriver == "postgres" && c.DBConnStr == "" {
		return fmt.Errorf("DB_CONN_STR is required for the postgres driver")
	}
	if c.OpeningBalance.IsNegative() {
		return fmt.Errorf("OPENING_BALANCE must not be negative")
	}
	return nil
}

// buildDBConnStr prefers an explicit DB_CONN_STR, falling back to
// individual vars (Docker friendly).
func buildDBConnStr() string {
	if conn := os.Getenv("DB_CONN_STR"); conn != "" {
		return conn
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "paperfolio")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

// Helper functions
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
