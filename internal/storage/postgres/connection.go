// Package postgres provides the GORM-backed repository implementations for
// every ports repository interface, grounded on the teacher's (now
// replaced) internal/adapter/storage/postgres package: Open+pool-tuning in
// one connection.go, one repository struct per aggregate holding a shared
// *gorm.DB.
package postgres

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

// Config holds the connection-pool tuning knobs, mirroring the teacher's
// connection.go.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

func Open(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres: underlying sql.DB: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)

	return db, nil
}

// AutoMigrate creates/updates every table this module owns. Used by
// cmd/server on startup when database.auto_migrate is set.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Site{},
		&domain.ChargePoint{},
		&domain.EVSE{},
		&domain.EVSEStatus{},
		&domain.Device{},
		&domain.ChargingSession{},
		&domain.MeterValue{},
		&domain.Tariff{},
		&domain.Order{},
		&domain.DeviceEvent{},
	)
}
