// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMemory    = "memory"
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
)

// Config holds every setting the server reads at start-up.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	JWTSecret string
	JWTTTL    time.Duration

	StoreDriver        string
	DatabaseDSN        string
	SQLitePath         string
	FirestoreProjectID string
	FirestoreEmulator  string
	RabbitMQURL        string
	RequestTimeout     time.Duration
	SeedData           bool
}

// IsDevelopment reports whether internal error detail may be exposed.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load reads a .env file when present, then the environment. Environment
// variables win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("STORE_DRIVER", DriverMemory)
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("SQLITE_PATH", "feira.db")
	v.SetDefault("FIRESTORE_PROJECT_ID", "")
	v.SetDefault("FIRESTORE_EMULATOR_HOST", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("SEED_DATA", false)
	v.AutomaticEnv()

	cfg := Config{
		AppPort:            v.GetString("APP_PORT"),
		AppEnv:             strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:           v.GetString("LOG_LEVEL"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTTTL:             v.GetDuration("JWT_TTL"),
		StoreDriver:        strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		SQLitePath:         v.GetString("SQLITE_PATH"),
		FirestoreProjectID: v.GetString("FIRESTORE_PROJECT_ID"),
		FirestoreEmulator:  v.GetString("FIRESTORE_EMULATOR_HOST"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		RequestTimeout:     v.GetDuration("REQUEST_TIMEOUT"),
		SeedData:           v.GetBool("SEED_DATA"),
	}
	if !strings.HasPrefix(cfg.AppPort, ":") && !strings.Contains(cfg.AppPort, ":") {
		cfg.AppPort = ":" + cfg.AppPort
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN is required for the postgres store")
		}
	case DriverFirestore:
		if c.FirestoreProjectID == "" {
			return errors.New("FIRESTORE_PROJECT_ID is required for the firestore store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}
