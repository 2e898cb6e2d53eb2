package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN            string
	Environment      string
	HTTPAddr         string
	MigrationsPath   string
	ReminderWindow   time.Duration
	ReminderInterval time.Duration
}

// Load reads configuration from a .env file when present, then from the
// environment. DB_DSN is required.
func Load() (*Config, error) {
	// Missing .env is fine; the environment wins anyway.
	_ = godotenv.Load(".env")

	cfg := &Config{
		DBDSN:            os.Getenv("DB_DSN"),
		Environment:      os.Getenv("ENV"),
		HTTPAddr:         os.Getenv("HTTP_ADDR"),
		MigrationsPath:   os.Getenv("MIGRATIONS_PATH"),
		ReminderWindow:   24 * time.Hour,
		ReminderInterval: time.Hour,
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "migrations"
	}
	if v := os.Getenv("REMINDER_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse REMINDER_WINDOW: %w", err)
		}
		cfg.ReminderWindow = d
	}
	if v := os.Getenv("REMINDER_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse REMINDER_INTERVAL: %w", err)
		}
		cfg.ReminderInterval = d
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}
