package api

import (
	"net/http"      // HTTP status codes
	"os"            // Static file checks
	"path"          // URL path cleaning
	"path/filepath" // Static file paths
	"strings"       // Prefix checks
	"time"          // CORS preflight cache

	"cert_registry/internal/config"     // Application configuration
	"cert_registry/internal/middleware" // Custom middleware
	"cert_registry/internal/registry"   // Registry operations
	"cert_registry/web"                 // Embedded app shell

	"github.com/gin-contrib/cors" // CORS middleware
	"github.com/gin-gonic/gin"    // Gin web framework
	"github.com/sirupsen/logrus"  // Logging library
)

// NewRouter builds the HTTP surface of the registry
func NewRouter(cfg *config.Config, svc *registry.Service) *gin.Engine {
	r := gin.New() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	r.Use(middleware.RequestID())     // Tag every request
	r.Use(middleware.RequestLogger()) // One log line per request
	r.Use(gin.Recovery())             // Turn panics into 500s
	r.Use(cors.New(corsConfig(cfg)))  // Allow the frontend origin

	// Write routes optionally require the admin wallet header
	var guard []gin.HandlerFunc
	if cfg.AdminGuard {
		guard = append(guard, middleware.AdminWalletMiddleware(cfg.AdminAddress))
	}
	withGuard := func(h gin.HandlerFunc) []gin.HandlerFunc {
		handlers := make([]gin.HandlerFunc, 0, len(guard)+1) // Fresh slice per route
		handlers = append(handlers, guard...)
		return append(handlers, h)
	}

	// Student routes
	students := r.Group("/api/students")
	students.POST("", withGuard(CreateStudentHandler(svc))...)                             // Register student endpoint
	students.GET("", ListStudentsHandler(svc))                                             // List students endpoint
	students.GET("/:rollNumber", GetStudentHandler(svc))                                   // Lookup by roll number endpoint
	students.POST("/:rollNumber/certificate", withGuard(UploadCertificateHandler(svc))...) // Upload certificate endpoint
	students.GET("/wallet/:address", GetStudentByWalletHandler(svc))                       // Lookup by wallet endpoint
	r.GET("/api/identity/:address", IdentityHandler(cfg.AdminAddress))                     // Role lookup endpoint
	r.Static("/certificates", cfg.CertificatesDir)                                         // Stored certificate files
	r.NoRoute(appShellHandler(cfg.StaticDir))                                              // Frontend fallback

	return r
}

// corsConfig allows the configured origin; "*" allows any origin without credentials
func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},                           // Used methods
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.WalletHeader, middleware.RequestIDHeader}, // Accepted headers
		ExposeHeaders:    []string{middleware.RequestIDHeader},                                                    // Readable by the browser
		AllowCredentials: true,                                                                                    // Cookies and auth headers
		MaxAge:           12 * time.Hour,                                                                          // Preflight cache
	}
	if cfg.CORSOrigin == "*" {
		c.AllowAllOrigins = true   // Any origin
		c.AllowCredentials = false // Not allowed together with a wildcard
		return c
	}
	c.AllowOrigins = []string{cfg.CORSOrigin} // Single frontend origin
	return c
}

// appShellHandler serves the frontend for unknown paths. Unknown API and
// certificate paths get a JSON 404 instead.
func appShellHandler(staticDir string) gin.HandlerFunc {
	shell := web.IndexHTML() // Embedded fallback page
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		// API and certificate misses are never answered with HTML
		if p == "/api" || strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/certificates/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		// Only reads fall back to the app shell
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		if staticDir != "" {
			file := filepath.Join(staticDir, filepath.FromSlash(path.Clean("/"+p))) // Stay inside the build dir
			if info, err := os.Stat(file); err == nil && !info.IsDir() {
				c.File(file) // Serve a built asset
				return
			}
			index := filepath.Join(staticDir, "index.html")
			if _, err := os.Stat(index); err == nil {
				c.File(index) // Serve the built app shell
				return
			}
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", shell) // Serve the embedded shell
	}
}
