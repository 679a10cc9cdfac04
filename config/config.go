package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cryptoPaperTrader/internal/adapters/logger"
)

// Store driver selection.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	// Binance API (optional; the ticker-price endpoint is public)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Store
	DBDriver    string // sqlite | postgres
	DBPath      string // sqlite file path
	DatabaseURL string // postgres connection string

	// Engine
	PriceTimeout    time.Duration // Upper bound per price oracle call
	RefreshInterval time.Duration // Mark-to-market loop period

	// Metrics
	SharpeAnnualizationDays float64

	// Logging
	LogLevel logger.LogLevel
}

// Load reads configuration from environment variables (.env file
// supported). Endpoint and driver choices are explicit config values
// handed to the adapters at construction; core code never reads the
// environment.
func Load() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist.
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string

	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	cfg.DBDriver = strings.ToLower(getEnv("DB_DRIVER", DriverSQLite))
	switch cfg.DBDriver {
	case DriverSQLite:
		cfg.DBPath = getEnv("DB_PATH", "./data/paper_trading.db")
		if cfg.DBPath == "" {
			errs = append(errs, "DB_PATH must be set for the sqlite driver")
		}
	case DriverPostgres:
		cfg.DatabaseURL = getEnv("DATABASE_URL", "")
		if cfg.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL must be set for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown DB_DRIVER %q (want sqlite or postgres)", cfg.DBDriver))
	}

	priceTimeoutSeconds, err := getEnvAsIntRequired("PRICE_TIMEOUT_SECONDS", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PRICE_TIMEOUT_SECONDS: %v", err))
	} else if priceTimeoutSeconds <= 0 {
		errs = append(errs, "PRICE_TIMEOUT_SECONDS must be positive")
	}
	cfg.PriceTimeout = time.Duration(priceTimeoutSeconds) * time.Second

	refreshIntervalSeconds, err := getEnvAsIntRequired("REFRESH_INTERVAL_SECONDS", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid REFRESH_INTERVAL_SECONDS: %v", err))
	} else if refreshIntervalSeconds <= 0 {
		errs = append(errs, "REFRESH_INTERVAL_SECONDS must be positive")
	}
	cfg.RefreshInterval = time.Duration(refreshIntervalSeconds) * time.Second

	cfg.SharpeAnnualizationDays, err = getEnvAsFloatRequired("SHARPE_ANNUALIZATION_DAYS", 365)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SHARPE_ANNUALIZATION_DAYS: %v", err))
	} else if cfg.SharpeAnnualizationDays <= 0 {
		errs = append(errs, "SHARPE_ANNUALIZATION_DAYS must be positive")
	}

	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

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
