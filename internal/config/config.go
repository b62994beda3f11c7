package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environments recognised by APP_ENV
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all configuration for the monitoring service
type Config struct {
	Environment string        `json:"environment"`
	Version     string        `json:"version"`
	Server      ServerConfig  `json:"server"`
	Metrics     MetricsConfig `json:"metrics"`
	Logging     LoggingConfig `json:"logging"`
	Loki        LokiConfig    `json:"loki"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `json:"port"`
	Host            string        `json:"host"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Path           string        `json:"path"`
	SampleInterval time.Duration `json:"sample_interval"`
	GoRuntime      bool          `json:"go_runtime"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json or console
}

// LokiConfig holds log shipping configuration. An empty Host disables shipping.
type LokiConfig struct {
	Host          string        `json:"host"`
	AppLabel      string        `json:"app_label"`
	BatchSize     int           `json:"batch_size"`
	BufferSize    int           `json:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval"`
	Timeout       time.Duration `json:"timeout"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Environment: getEnv("APP_ENV", EnvProduction),
		Version:     getEnv("VERSION", "1.0.0"),
		Server: ServerConfig{
			Port:            getEnvAsInt("PORT", 3000),
			Host:            getEnv("SERVER_HOST", ""),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", "30s"),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", "30s"),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", "10s"),
		},
		Metrics: MetricsConfig{
			Path:           getEnv("METRICS_PATH", "/metrics"),
			SampleInterval: getEnvAsDuration("METRICS_SAMPLE_INTERVAL", "5s"),
			GoRuntime:      getEnvAsBool("METRICS_GO_RUNTIME", true),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Loki: LokiConfig{
			Host:          strings.TrimRight(getEnv("LOKI_HOST", ""), "/"),
			AppLabel:      getEnv("LOKI_APP_LABEL", "loki-backend-monitoring"),
			BatchSize:     getEnvAsInt("LOKI_BATCH_SIZE", 100),
			BufferSize:    getEnvAsInt("LOKI_BUFFER_SIZE", 10000),
			FlushInterval: getEnvAsDuration("LOKI_FLUSH_INTERVAL", "2s"),
			Timeout:       getEnvAsDuration("LOKI_TIMEOUT", "5s"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /: %s", c.Metrics.Path)
	}

	if c.Metrics.SampleInterval <= 0 {
		return fmt.Errorf("metrics sample interval must be positive")
	}

	if c.Server.WriteTimeout <= 0 || c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	if c.Loki.Enabled() {
		if !strings.HasPrefix(c.Loki.Host, "http://") && !strings.HasPrefix(c.Loki.Host, "https://") {
			return fmt.Errorf("LOKI_HOST must be an http(s) URL: %s", c.Loki.Host)
		}
		if c.Loki.BatchSize <= 0 || c.Loki.BufferSize <= 0 {
			return fmt.Errorf("loki batch and buffer sizes must be positive")
		}
		if c.Loki.FlushInterval <= 0 {
			return fmt.Errorf("loki flush interval must be positive")
		}
	}

	return nil
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Enabled reports whether log shipping is configured
func (l LokiConfig) Enabled() bool {
	return l.Host != ""
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
