package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir) // keep godotenv away from any .env in the repo
	t.Setenv("DATA_DIR", "")
	t.Setenv("STUDENTS_FILE", "")
	t.Setenv("CERTIFICATES_DIR", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("CACHE_TTL", "")
	t.Setenv("ADMIN_GUARD", "")

	cfg := LoadConfig()

	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, filepath.Join("./data", "students.json"), cfg.StudentsFile)
	assert.Equal(t, filepath.Join("./data", "certificates"), cfg.CertificatesDir)
	assert.Equal(t, StoreJSON, cfg.StoreDriver)
	assert.Equal(t, 60*time.Second, cfg.CacheTTL)
	assert.False(t, cfg.AdminGuard)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATA_DIR", "/srv/registry")
	t.Setenv("STUDENTS_FILE", "")
	t.Setenv("ADMIN_ADDRESS", "  0xAbC  ")
	t.Setenv("ADMIN_GUARD", "yes")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("REDIS_DB", "2")

	cfg := LoadConfig()

	assert.Equal(t, filepath.Join("/srv/registry", "students.json"), cfg.StudentsFile)
	assert.Equal(t, "0xAbC", cfg.AdminAddress)
	assert.True(t, cfg.AdminGuard)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 2, cfg.RedisDB)
}

func TestMySQLDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "3306", DBName: "registry"}
	assert.Equal(t, "u:p@tcp(db:3306)/registry?parseTime=true", cfg.MySQLDSN())
}
