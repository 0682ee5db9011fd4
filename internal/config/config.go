// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	DevMode  bool
	LogLevel string

	// External market-data collaborators
	FinnhubAPIKey    string
	CoinGeckoBaseURL string
	FinnhubBaseURL   string
	ExchangeRateURL  string

	// API auth token expected on incoming requests (empty disables auth)
	APIToken string

	Backup *BackupConfig
}

// BackupConfig holds nightly backup configuration
type BackupConfig struct {
	Enabled       bool
	Bucket        string
	Endpoint      string // S3-compatible endpoint, empty for AWS
	Region        string
	AccessKey     string
	SecretKey     string
	RetentionDays int // days to retain remote backups
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("MONEY_MASTER_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("PORT", 8080),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		FinnhubAPIKey:    getEnv("FINNHUB_API_KEY", ""),
		FinnhubBaseURL:   getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		CoinGeckoBaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		ExchangeRateURL:  getEnv("EXCHANGE_RATE_BASE_URL", "https://api.exchangerate-api.com/v4/latest"),
		APIToken:         getEnv("API_TOKEN", ""),
		Backup:           loadBackupConfig(),
	}

	return cfg, nil
}

// loadBackupConfig loads backup configuration; disabled unless a bucket is set.
func loadBackupConfig() *BackupConfig {
	bucket := getEnv("BACKUP_S3_BUCKET", "")
	return &BackupConfig{
		Enabled:       bucket != "",
		Bucket:        bucket,
		Endpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:        getEnv("BACKUP_S3_REGION", "auto"),
		AccessKey:     getEnv("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey:     getEnv("BACKUP_S3_SECRET_KEY", ""),
		RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 7),
	}
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
