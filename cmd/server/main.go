package main

import (
	"context"   // Startup and shutdown deadlines
	"errors"    // Server closed check
	"net/http"  // HTTP server
	"os"        // Process signals
	"os/signal" // Signal handling
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"cert_registry/internal/api"       // Custom package for API handlers
	"cert_registry/internal/cache"     // Lookup cache
	"cert_registry/internal/certstore" // Certificate file store
	"cert_registry/internal/config"    // Custom package for configuration
	"cert_registry/internal/db"        // Database plumbing for the SQL store
	"cert_registry/internal/registry"  // Registry operations
	"cert_registry/internal/store"     // Record stores

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine readable logs in production
		gin.SetMode(gin.ReleaseMode)                 // Set Mode to Release if in production
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Record store selected by STORE_DRIVER
	records, closeRecords, err := openRecordStore(cfg)
	if err != nil {
		logrus.Fatalf("failed to open record store: %v", err)
	}
	defer closeRecords()

	// Certificate files live under the certificates directory
	certs, err := certstore.NewLocalStore(cfg.CertificatesDir, "/certificates")
	if err != nil {
		logrus.Fatalf("failed to prepare certificate store: %v", err)
	}

	// Setup Redis cache, disabled when REDIS_ADDR is empty
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	lookupCache, closeCache, err := cache.Connect(pingCtx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pingCancel()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}
	defer closeCache()

	svc := registry.NewService(records, certs, registry.WithCache(lookupCache, cfg.CacheTTL)) // Registry service
	r := api.NewRouter(cfg, svc)                                                              // Gin router instance

	if cfg.AdminAddress == "" {
		logrus.Warn("ADMIN_ADDRESS is not set, every wallet will be treated as a student")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort, // Listen address
		Handler:           r,                 // Gin router
		ReadHeaderTimeout: 10 * time.Second,  // Slow header protection
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":         cfg.AppPort,         // Listen port
			"store":        cfg.StoreDriver,     // Record store backend
			"certificates": cfg.CertificatesDir, // Certificate root
			"cache":        cfg.RedisAddr != "", // Redis enabled
		}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done() // Wait for a shutdown signal
	logrus.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("server shutdown error: %v", err)
	}
}

// openRecordStore returns the configured record store and a function releasing it
func openRecordStore(cfg *config.Config) (store.RecordStore, func() error, error) {
	if cfg.StoreDriver == config.StoreJSON {
		records, err := store.NewJSONStore(cfg.StudentsFile) // Single JSON document
		return records, func() error { return nil }, err
	}
	conn, err := db.Open(cfg) // Connect to MySQL or SQLite
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(conn); err != nil {
		return nil, nil, err
	}
	sqlDB, err := conn.DB() // Underlying pool for closing
	if err != nil {
		return nil, nil, err
	}
	return store.NewSQLStore(conn), sqlDB.Close, nil
}
