package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// AdminAddressKey is the storage key of the local admin override.
const AdminAddressKey = "adminAddress"

// Storage is a small persistent key/value store on the client.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// LoadAdminAddress returns the stored override when it holds a valid
// address, otherwise configured.
func LoadAdminAddress(configured string, st Storage) string {
	if st == nil {
		return configured
	}
	stored, ok, err := st.Get(AdminAddressKey)
	if err != nil {
		logrus.WithError(err).Warn("Could not read admin override")
		return configured
	}
	if ok && common.IsHexAddress(stored) { // Ignore garbage overrides
		return stored
	}
	return configured
}

// MemoryStorage keeps values for the life of the process.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// FileStorage keeps values in a YAML mapping on disk.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (f *FileStorage) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileStorage) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value // Update the mapping
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil { // Ensure settings directory exists
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil { // Owner-only permissions
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func (f *FileStorage) load() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil // Missing file means no settings yet
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", f.path, err)
	}
	if values == nil {
		values = map[string]string{} // Empty YAML document
	}
	return values, nil
}
