package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/DukeRupert/pakipark/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `validate:"required,oneof=development production test"`
	Port     int    `validate:"min=1,max=65535"`
	LogLevel string `validate:"oneof=debug info warn error"`

	// Optional log file, rotated by size. Logs always go to stdout too.
	LogFile      string
	LogMaxSizeMB int `validate:"min=1"`

	// Application base URL (for absolute links printed by the terminal client)
	BaseURL string `validate:"required,url"`

	// Login form defaults
	DefaultCountryCode string `validate:"required,startswith=+,max=4"`

	// Authentication collaborator. An AuthTimeout of 0 disables the timeout.
	AuthSimulatedDelay   time.Duration
	AuthSimulatedOutcome string `validate:"oneof=success failure"`
	AuthTimeout          time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

var validate = validator.New()

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		LogFile:      getEnv("LOG_FILE", ""),
		LogMaxSizeMB: getEnvInt("LOG_MAX_SIZE_MB", 50),

		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "+63"),

		AuthSimulatedDelay:   getEnvDuration("AUTH_SIMULATED_DELAY", service.DefaultSimulatedDelay),
		AuthSimulatedOutcome: getEnv("AUTH_SIMULATED_OUTCOME", "success"),
		AuthTimeout:          getEnvDuration("AUTH_TIMEOUT", 10*time.Second),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return nil, fmt.Errorf("invalid configuration: %s failed %q check (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.AuthSimulatedDelay < 0 {
		return nil, fmt.Errorf("AUTH_SIMULATED_DELAY must not be negative, got: %s", cfg.AuthSimulatedDelay)
	}
	if cfg.AuthTimeout < 0 {
		return nil, fmt.Errorf("AUTH_TIMEOUT must not be negative, got: %s", cfg.AuthTimeout)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
