package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string `yaml:"database_url"`
	ServerPort       string `yaml:"server_port"`
	BaseURL          string `yaml:"base_url"`
	FrontendURL      string `yaml:"frontend_url"`
	EnableHSTS       bool   `yaml:"enable_hsts"`
	RedisURL         string `yaml:"redis_url"`
	RabbitMQURL      string `yaml:"rabbitmq_url"`
	RabbitMQPrefetch int    `yaml:"rabbitmq_prefetch"`
	Timezone         string `yaml:"timezone"`
	RescanInterval   string `yaml:"rescan_interval"`
	WorkerDebugMode  bool   `yaml:"worker_debug_mode"`
	ServerDebugMode  bool   `yaml:"server_debug_mode"`
	OTELEnabled      bool   `yaml:"otel_enabled"`
	OTELEndpoint     string `yaml:"otel_endpoint"`
}

// Load loads configuration from an optional YAML file (STREAKD_CONFIG_FILE)
// and then from environment variables. Environment variables win.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:       "8080",
		BaseURL:          "http://localhost:8080",
		FrontendURL:      "http://localhost:3000",
		RedisURL:         "redis://localhost:6379/0",
		RabbitMQPrefetch: 1,
		Timezone:         "UTC",
		RescanInterval:   "12h",
	}

	if path := os.Getenv("STREAKD_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path is operator-supplied
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.BaseURL = getEnv("BASE_URL", cfg.BaseURL)
	cfg.FrontendURL = getEnv("FRONTEND_URL", cfg.FrontendURL)
	cfg.EnableHSTS = getEnvBool("ENABLE_HSTS", cfg.EnableHSTS)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.RabbitMQPrefetch = getEnvInt("RABBITMQ_PREFETCH", cfg.RabbitMQPrefetch)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)
	cfg.RescanInterval = getEnv("RESCAN_INTERVAL", cfg.RescanInterval)
	cfg.WorkerDebugMode = getEnvBool("WORKER_DEBUG_MODE", cfg.WorkerDebugMode)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing")
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if _, err := cfg.RescanEvery(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location resolves the configured timezone. All calendar-day boundaries are
// computed in this location.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RescanEvery resolves how often the rescanner schedules recompute jobs.
func (c *Config) RescanEvery() (time.Duration, error) {
	d, err := time.ParseDuration(c.RescanInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid RESCAN_INTERVAL %q: %w", c.RescanInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("RESCAN_INTERVAL must be positive, got %q", c.RescanInterval)
	}
	return d, nil
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
