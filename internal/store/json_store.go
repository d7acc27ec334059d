package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cert_registry/internal/domain"

	"github.com/sirupsen/logrus"
)

// JSONStore keeps all records in one JSON array document that is
// rewritten wholesale on every mutation. It does no locking of its own.
type JSONStore struct {
	path string
}

// NewJSONStore opens the document at path, creating it as an empty
// array (and its parent directory) when it does not exist yet.
func NewJSONStore(path string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { // Ensure data directory exists
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &JSONStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.write([]domain.Student{}); err != nil { // Seed an empty array
			return nil, err
		}
		logrus.WithField("path", path).Info("Initialised empty student document")
	} else if err != nil {
		return nil, fmt.Errorf("stat student document: %w", err)
	}
	return s, nil
}

func (s *JSONStore) List(ctx context.Context) ([]domain.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path) // Read the whole document
	if err != nil {
		return nil, fmt.Errorf("read student document: %w", err)
	}
	students := []domain.Student{} // Never nil, so an empty file lists as []
	if err := json.Unmarshal(data, &students); err != nil {
		return nil, fmt.Errorf("decode student document: %w", err)
	}
	return students, nil
}

func (s *JSONStore) Append(ctx context.Context, student domain.Student) error {
	students, err := s.List(ctx)
	if err != nil {
		return err
	}
	return s.write(append(students, student)) // Rewrite with the new record last
}

func (s *JSONStore) ReplaceAll(ctx context.Context, students []domain.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if students == nil {
		students = []domain.Student{} // Encode as [] rather than null
	}
	return s.write(students)
}

// write serialises the full collection to a sibling temp file and renames
// it over the document so readers never observe a half-written array.
func (s *JSONStore) write(students []domain.Student) error {
	data, err := json.MarshalIndent(students, "", "  ") // Two-space indent
	if err != nil {
		return fmt.Errorf("encode student document: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".students-*.json") // Same directory so rename stays atomic
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp document: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil { // Swap in the new document
		os.Remove(tmpName)
		return fmt.Errorf("replace student document: %w", err)
	}
	return nil
}
