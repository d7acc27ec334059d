package db

import (
	"fmt"           // Error wrapping
	"os"            // Directory creation for SQLite
	"path/filepath" // SQLite parent directory

	"cert_registry/internal/config" // Application configuration
	"cert_registry/internal/domain" // Importing domain models

	"github.com/glebarez/sqlite" // Pure Go SQLite driver for GORM
	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM log levels
)

// Open connects to the database selected by cfg.StoreDriver
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)} // Keep GORM quiet unless something is wrong
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		db, err := gorm.Open(mysql.Open(cfg.MySQLDSN()), gormCfg) // Open a connection to MySQL
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		return db, nil
	case config.StoreSQLite:
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("store driver %q has no database", cfg.StoreDriver)
	}
}

// OpenSQLite opens (creating if needed) a SQLite database file
func OpenSQLite(path string) (*gorm.DB, error) {
	if path != ":memory:" {
		// Make sure the parent directory exists
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	return db, nil
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(&domain.Student{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
