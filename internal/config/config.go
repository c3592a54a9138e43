// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPebble   = "pebble"
	DriverPostgres = "postgres"
)

// Config holds every setting the bot and the admin CLI need.
type Config struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN"`
	BotDebug bool   `env:"BOT_DEBUG" envDefault:"false"`

	// OperatorID is the single operator id of older deployments; it is
	// merged in front of OperatorIDs.
	OperatorID  int64   `env:"ADMIN_ID"`
	OperatorIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// MaintenanceDefault applies until the flag is first persisted.
	MaintenanceDefault bool   `env:"BOT_MAINTENANCE_MODE" envDefault:"false"`
	Language           string `env:"BOT_LANGUAGE" envDefault:"ru"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"pebble"`
	PebblePath  string `env:"PEBBLE_PATH" envDefault:"data/anonrelay"`
	DatabaseDSN string `env:"DATABASE_DSN"`

	// Sessions live in memory unless RedisAddr is set.
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	HTTPAddr    string        `env:"HTTP_ADDR" envDefault:":8080"`
	JWTSecret   string        `env:"JWT_SECRET"`
	SendTimeout time.Duration `env:"SEND_TIMEOUT" envDefault:"15s"`
}

// Load reads .env (if present) and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("WARN: Error loading .env file")
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.OperatorIDs = cfg.Operators()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Operators returns the operator set with the legacy single id first,
// zero ids dropped and duplicates removed.
func (c *Config) Operators() []int64 {
	var ids []int64
	if c.OperatorID != 0 {
		ids = append(ids, c.OperatorID)
	}
	for _, id := range c.OperatorIDs {
		if id != 0 && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Validate checks the storage selection.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPebble:
		if c.PebblePath == "" {
			return errors.New("config: PEBBLE_PATH is empty")
		}
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return errors.New("config: DATABASE_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}
