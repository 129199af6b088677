package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Prediction service configuration
	Prediction PredictionConfig

	// Expiration sweep configuration
	Sweep SweepConfig

	// Security configuration
	Security SecurityConfig

	// CORS configuration
	CORS CORSConfig

	// Call queue scoring configuration
	CallQueue CallQueueConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// PredictionConfig holds upstream prediction service configuration
type PredictionConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SweepConfig holds expiration sweep configuration
type SweepConfig struct {
	// CronSpec uses 6-field cron syntax (with seconds)
	CronSpec string
	// WindowDays is the grace window from a route's base date before force-close
	WindowDays int
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	MaxFailedLogins  int
	EnableRequestLog bool
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// CallQueueConfig holds CRM call-priority scoring weights
type CallQueueConfig struct {
	OverdueWeight   float64
	TierABonus      float64
	TierBBonus      float64
	TierCBonus      float64
	RepurchaseBonus float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		Prediction: PredictionConfig{
			BaseURL: getEnv("PREDICTION_SERVICE_URL", ""),
			Timeout: time.Duration(getEnvAsInt("PREDICTION_SERVICE_TIMEOUT", 30)) * time.Second,
		},
		Sweep: SweepConfig{
			// Every 30 minutes by default
			CronSpec:   getEnv("SWEEP_CRON_SPEC", "0 */30 * * * *"),
			WindowDays: getEnvAsInt("SWEEP_WINDOW_DAYS", 7),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			MaxFailedLogins:  getEnvAsInt("MAX_FAILED_LOGINS", 5),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		CallQueue: CallQueueConfig{
			OverdueWeight:   getEnvAsFloat("CALLQUEUE_OVERDUE_WEIGHT", 1.5),
			TierABonus:      getEnvAsFloat("CALLQUEUE_TIER_A_BONUS", 30),
			TierBBonus:      getEnvAsFloat("CALLQUEUE_TIER_B_BONUS", 15),
			TierCBonus:      getEnvAsFloat("CALLQUEUE_TIER_C_BONUS", 5),
			RepurchaseBonus: getEnvAsFloat("CALLQUEUE_REPURCHASE_BONUS", 25),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	if c.Prediction.BaseURL == "" {
		return fmt.Errorf("PREDICTION_SERVICE_URL is required")
	}

	if c.Sweep.WindowDays <= 0 {
		return fmt.Errorf("SWEEP_WINDOW_DAYS must be positive")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s, using default: %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
