package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	DatabaseURL       string
	ServerPort        string
	BaseURL           string
	AllowedOrigin     string
	EnableHSTS        bool
	RedisURL          string
	RabbitMQURL       string
	RabbitMQPrefetch  int
	AlertGatewayURL   string
	AlertGatewayToken string
	HorizonDays       int
	NotificationCap   int
	JWKSURL           string
	JWTIssuer         string
	WorkerDebugMode   bool
	ServerDebugMode   bool
	OTELEnabled       bool
	OTELEndpoint      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
		AllowedOrigin:     getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
		EnableHSTS:        getEnvBool("ENABLE_HSTS", false),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:  getEnvInt("RABBITMQ_PREFETCH", 1),
		AlertGatewayURL:   getEnv("ALERT_GATEWAY_URL", ""),
		AlertGatewayToken: getEnv("ALERT_GATEWAY_TOKEN", ""),
		HorizonDays:       getEnvInt("EXPANSION_HORIZON_DAYS", 90),
		NotificationCap:   getEnvInt("NOTIFICATION_CAP", 64),
		JWKSURL:           getEnv("JWKS_URL", ""),
		JWTIssuer:         getEnv("JWT_ISSUER", ""),
		WorkerDebugMode:   getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:   getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:       getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing")
	}

	if cfg.HorizonDays <= 0 {
		return nil, fmt.Errorf("EXPANSION_HORIZON_DAYS must be positive")
	}

	if cfg.NotificationCap <= 0 {
		return nil, fmt.Errorf("NOTIFICATION_CAP must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
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
