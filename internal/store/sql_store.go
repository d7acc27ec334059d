package store

import (
	"context"
	"fmt"

	"cert_registry/internal/domain"

	"gorm.io/gorm"
)

// SQLStore keeps records in the students table through GORM.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore wraps an open (and migrated) database handle.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) List(ctx context.Context) ([]domain.Student, error) {
	var students []domain.Student
	if err := s.db.WithContext(ctx).Order("id asc").Find(&students).Error; err != nil { // Insertion order
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

func (s *SQLStore) Append(ctx context.Context, student domain.Student) error {
	student.ID = 0 // let the database assign the key
	if err := s.db.WithContext(ctx).Create(&student).Error; err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// ReplaceAll clears the table and reinserts students in one transaction.
func (s *SQLStore) ReplaceAll(ctx context.Context, students []domain.Student) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.Student{}).Error; err != nil { // Clear all rows
			return fmt.Errorf("clear students: %w", err) // Return error to rollback
		}
		if len(students) == 0 {
			return nil
		}
		rows := make([]domain.Student, len(students))
		copy(rows, students)                           // Keep the caller's slice untouched
		if err := tx.Create(&rows).Error; err != nil { // Batch insert
			return fmt.Errorf("insert students: %w", err) // Return error to rollback
		}
		return nil // Commit transaction
	})
}
