// Package store persists student records. Every backend exposes the same
// three primitives; callers do their own read-modify-write on top of them.
package store

import (
	"context"

	"cert_registry/internal/domain"
)

// RecordStore is the persistence contract for student records.
type RecordStore interface {
	// List returns every record in storage order.
	List(ctx context.Context) ([]domain.Student, error)
	// Append adds one record at the end.
	Append(ctx context.Context, student domain.Student) error
	// ReplaceAll swaps the stored collection for students.
	ReplaceAll(ctx context.Context, students []domain.Student) error
}
