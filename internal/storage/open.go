package storage

import (
	"anonrelay/backend/internal/config"
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects the backend selected by cfg.StoreDriver.
func Open(cfg *config.Config) (Storage, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s, err := NewStorageService(db)
		if err != nil {
			return nil, err
		}
		log.Println("INFO: PostgreSQL storage ready, migrations complete.")
		return s, nil
	case config.DriverPebble:
		return OpenPebble(cfg.PebblePath, nil)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
