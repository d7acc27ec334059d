package main

import (
	"cert_registry/internal/config" // Custom import path (Config)
	"cert_registry/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Structured logging
)

// Main entry point for migration of the SQL record store
func main() {
	cfg := config.LoadConfig() // Load configuration
	if cfg.StoreDriver == config.StoreJSON {
		logrus.Info("STORE_DRIVER is json, nothing to migrate") // The JSON document needs no schema
		return
	}
	conn, err := db.Open(cfg) // Connect to the configured database
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	if err := db.Migrate(conn); err != nil {
		logrus.Fatalf("%v", err) // Log fatal error if migration fails
	}
}
