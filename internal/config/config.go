package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"invoicing-backend/internal/logger"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=invoicing port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	// Numara servisi için önek (INV-2026-0001 gibi)
	InvoiceNumberPrefix string

	EventRelayInterval time.Duration
	EventRelayBatch    int

	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string

	// Load sırasında oluşan uyarılar; logger kurulduktan sonra yazılır
	Warnings []string
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:         getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		CORSOrigins:         getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		InvoiceNumberPrefix: getEnv("INVOICE_NUMBER_PREFIX", "INV"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:       getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:           getEnv("LOG_OUTPUT", "stdout"),
	}

	interval, err := time.ParseDuration(getEnv("EVENT_RELAY_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("EVENT_RELAY_INTERVAL geçersiz: %w", err)
	}
	cfg.EventRelayInterval = interval

	batch, err := strconv.Atoi(getEnv("EVENT_RELAY_BATCH", "100"))
	if err != nil {
		return nil, fmt.Errorf("EVENT_RELAY_BATCH geçersiz: %w", err)
	}
	cfg.EventRelayBatch = batch

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.DatabaseDSN == defaultDSN {
		cfg.Warnings = append(cfg.Warnings, "DATABASE_DSN varsayılan değer kullanılıyor, production için kendi Postgres bağlantı bilgisini tanımla")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		cfg.Warnings = append(cfg.Warnings, "CORS_ALLOWED_ORIGINS varsayılan değer kullanılıyor, production için kendi domain'ini tanımla")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment değişkeni tanımlanmamış")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET en az 32 karakter olmalıdır")
	}
	if c.EventRelayInterval <= 0 {
		return fmt.Errorf("EVENT_RELAY_INTERVAL pozitif olmalı")
	}
	if c.EventRelayBatch <= 0 {
		return fmt.Errorf("EVENT_RELAY_BATCH pozitif olmalı")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
