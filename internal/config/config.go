package config

import (
	"os"            // For environment variables
	"path/filepath" // For default data paths
	"strconv"       // For string to int conversion
	"strings"       // For boolean parsing
	"time"          // For cache TTL

	"github.com/joho/godotenv" // For loading .env files
)

// Store drivers understood by the registry
const (
	StoreJSON   = "json"   // Single JSON document (default)
	StoreMySQL  = "mysql"  // MySQL table through GORM
	StoreSQLite = "sqlite" // SQLite file through GORM
)

// Config holds the application configuration
type Config struct {
	AppPort         string        // Application port
	DataDir         string        // Root directory for persisted state
	StudentsFile    string        // JSON document holding every student record
	CertificatesDir string        // Root of the certificate file tree
	StaticDir       string        // Built frontend served as the app shell
	CORSOrigin      string        // Allowed browser origin
	AdminAddress    string        // Wallet address treated as admin
	AdminGuard      bool          // Require the admin wallet header on write routes
	StoreDriver     string        // json, mysql or sqlite
	DBUser          string        // Database user
	DBPassword      string        // Database password
	DBHost          string        // Database host
	DBPort          string        // Database port
	DBName          string        // Database name
	SQLitePath      string        // SQLite database file
	RedisAddr       string        // Redis server address, empty disables the cache
	RedisPass       string        // Redis password
	RedisDB         int           // Redis database number
	CacheTTL        time.Duration // Lifetime of cached lookups
	IsProd          bool          // Is production environment
	WalletRPCURL    string        // JSON-RPC endpoint of the wallet used by walletctl
	APIBaseURL      string        // Registry API used by walletctl
	WalletSettings  string        // Local settings file for the admin override
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	dataDir := getEnv("DATA_DIR", "./data")
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "60s"))
	if err != nil {
		cacheTTL = 60 * time.Second // Fall back to the default TTL
	}
	return &Config{
		AppPort:         getEnv("APP_PORT", "3000"),                                         // Application port
		DataDir:         dataDir,                                                            // Data directory
		StudentsFile:    getEnv("STUDENTS_FILE", filepath.Join(dataDir, "students.json")),   // Student document
		CertificatesDir: getEnv("CERTIFICATES_DIR", filepath.Join(dataDir, "certificates")), // Certificate root
		StaticDir:       getEnv("STATIC_DIR", "./dist"),                                     // Frontend build
		CORSOrigin:      getEnv("CORS_ORIGIN", "http://localhost:5173"),                     // Frontend dev origin
		AdminAddress:    strings.TrimSpace(os.Getenv("ADMIN_ADDRESS")),                      // Admin wallet
		AdminGuard:      parseBool(os.Getenv("ADMIN_GUARD")),                                // Admin guard switch
		StoreDriver:     strings.ToLower(getEnv("STORE_DRIVER", StoreJSON)),                 // Record store backend
		DBUser:          os.Getenv("DB_USER"),                                               // Database user
		DBPassword:      os.Getenv("DB_PASSWORD"),                                           // Database password
		DBHost:          getEnv("DB_HOST", "127.0.0.1"),                                     // Database host
		DBPort:          getEnv("DB_PORT", "3306"),                                          // Database port
		DBName:          os.Getenv("DB_NAME"),                                               // Database name
		SQLitePath:      getEnv("SQLITE_PATH", filepath.Join(dataDir, "students.db")),       // SQLite file
		RedisAddr:       os.Getenv("REDIS_ADDR"),                                            // Redis server address
		RedisPass:       os.Getenv("REDIS_PASS"),                                            // Redis password
		RedisDB:         redisDB,                                                            // Redis database number
		CacheTTL:        cacheTTL,                                                           // Cache lifetime
		IsProd:          os.Getenv("IS_PROD") == "true",                                     // Is production environment
		WalletRPCURL:    getEnv("WALLET_RPC_URL", "http://127.0.0.1:8545"),                  // Wallet endpoint
		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:3000"),                    // Registry API
		WalletSettings:  getEnv("WALLET_SETTINGS", defaultSettingsPath()),                   // Override file
	}
}

// MySQLDSN builds the Data Source Name for the MySQL driver
func (c *Config) MySQLDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// getEnv returns the variable or a fallback when it is unset or empty
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".walletctl.yaml"
	}
	return filepath.Join(home, ".walletctl.yaml")
}
