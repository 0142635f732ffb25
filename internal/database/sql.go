package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"echo-gateway/internal/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLConnection opens a gorm handle for the given driver (postgres or mysql).
func NewSQLConnection(driver string, cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for store driver %q", driver)
	}

	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.URI)
	case "mysql":
		dialector = mysql.Open(cfg.URI)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("Database connection established", "driver", driver, "uri", config.MaskURI(cfg.URI))
	return db, nil
}

// CloseSQL releases the pool behind a gorm handle.
func CloseSQL(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
