// Package registry implements the student certificate operations on top of
// a record store and a certificate file store.
package registry

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"cert_registry/internal/cache"
	"cert_registry/internal/certstore"
	"cert_registry/internal/domain"
	"cert_registry/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// CertificateStore is the part of the certificate file store the service uses.
type CertificateStore interface {
	EnsureWalletDir(wallet string) error
	Save(wallet, roll string, r io.Reader) (string, error)
}

// NewStudent is the payload of the create operation.
type NewStudent struct {
	Name          string `json:"name" validate:"required"`
	RollNumber    string `json:"rollNumber" validate:"required"`
	Department    string `json:"department" validate:"required"`
	AdmissionYear int    `json:"admissionYear" validate:"required"`
	WalletAddress string `json:"walletAddress" validate:"required"`
}

func (n *NewStudent) trim() {
	n.Name = strings.TrimSpace(n.Name)
	n.RollNumber = strings.TrimSpace(n.RollNumber)
	n.Department = strings.TrimSpace(n.Department)
	n.WalletAddress = strings.TrimSpace(n.WalletAddress)
}

// Service runs every read-modify-write cycle under a single mutex so
// concurrent requests cannot drop each other's updates.
type Service struct {
	mu       sync.Mutex
	records  store.RecordStore
	certs    CertificateStore
	cache    cache.Cache
	cacheTTL time.Duration
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables read-through caching of lookups.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the service to its stores.
func NewService(records store.RecordStore, certs CertificateStore, opts ...Option) *Service {
	s := &Service{
		records:  records,
		certs:    certs,
		cache:    cache.NopCache{},
		cacheTTL: time.Minute,
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new student with no certificate.
func (s *Service) Create(ctx context.Context, in NewStudent) (*domain.Student, error) {
	in.trim() // Normalise whitespace before validation
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(MsgMissingFields, err)
	}
	if certstore.ValidateComponent(in.RollNumber) != nil || certstore.ValidateComponent(in.WalletAddress) != nil {
		return nil, validationError(MsgInvalidIdentifier, nil)
	}

	s.mu.Lock() // Serialise the read-modify-write cycle
	defer s.mu.Unlock()

	students, err := s.records.List(ctx) // Load all records
	if err != nil {
		return nil, unexpected(err)
	}
	for _, existing := range students {
		if existing.RollNumber == in.RollNumber { // Roll numbers are unique
			return nil, conflictError(MsgStudentExists)
		}
		if existing.OwnedBy(in.WalletAddress) { // One student per wallet
			return nil, conflictError(MsgWalletRegistered)
		}
	}

	student := domain.Student{
		Name:          in.Name,
		RollNumber:    in.RollNumber,
		Department:    in.Department,
		AdmissionYear: in.AdmissionYear,
		WalletAddress: in.WalletAddress,
		CreatedAt:     s.now().UTC().Truncate(time.Millisecond), // Stored with millisecond precision
	}
	if err := s.records.Append(ctx, student); err != nil { // Persist the new record
		return nil, unexpected(err)
	}
	if err := s.certs.EnsureWalletDir(student.WalletAddress); err != nil { // Prepare the certificate folder
		return nil, unexpected(err)
	}
	s.invalidate(ctx, student) // Drop stale lookups

	logrus.WithFields(logrus.Fields{
		"roll_number": student.RollNumber,
		"wallet":      student.WalletAddress,
		"department":  student.Department,
	}).Info("Student created")
	return &student, nil
}

// List returns every student in store order.
func (s *Service) List(ctx context.Context) ([]domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.records.List(ctx)
	if err != nil {
		return nil, unexpected(err)
	}
	return students, nil
}

// GetByRollNumber finds the student with exactly this roll number.
func (s *Service) GetByRollNumber(ctx context.Context, roll string) (*domain.Student, error) {
	return s.lookup(ctx, rollKey(roll), func(st domain.Student) bool {
		return st.RollNumber == roll
	})
}

// GetByWallet finds the first student whose wallet address matches,
// ignoring case.
func (s *Service) GetByWallet(ctx context.Context, address string) (*domain.Student, error) {
	return s.lookup(ctx, walletKey(address), func(st domain.Student) bool {
		return st.OwnedBy(address)
	})
}

func (s *Service) lookup(ctx context.Context, key string, match func(domain.Student) bool) (*domain.Student, error) {
	var cached domain.Student
	if found, err := s.cache.Get(ctx, key, &cached); err != nil { // Try cache first
		logrus.WithError(err).WithField("key", key).Warn("Cache read failed")
	} else if found {
		return &cached, nil // Cache hit
	}

	// Held through the cache write so a concurrent attach cannot be
	// followed by a stale Set.
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.records.List(ctx)
	if err != nil {
		return nil, unexpected(err)
	}
	for _, st := range students {
		if match(st) {
			found := st
			if err := s.cache.Set(ctx, key, found, s.cacheTTL); err != nil {
				logrus.WithError(err).WithField("key", key).Warn("Cache write failed")
			}
			return &found, nil
		}
	}
	return nil, notFoundError(MsgStudentNotFound) // No match in store
}

// AttachCertificate stores file as the certificate of the student with
// this roll number and records its public path. Nothing is written when
// the student does not exist.
func (s *Service) AttachCertificate(ctx context.Context, roll string, file io.Reader) (*domain.Student, error) {
	if file == nil {
		return nil, NewBadRequestError(MsgNoCertificateFile) // Nothing to store
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.records.List(ctx)
	if err != nil {
		return nil, unexpected(err)
	}
	idx := -1
	for i := range students {
		if students[i].RollNumber == roll {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, notFoundError(MsgStudentNotFound)
	}
	student := &students[idx] // Update in place

	url, err := s.certs.Save(student.WalletAddress, student.RollNumber, file) // Write the PDF first
	if err != nil {
		if errors.Is(err, certstore.ErrInvalidPathComponent) {
			return nil, validationError(MsgInvalidIdentifier, err)
		}
		return nil, unexpected(err)
	}
	student.CertificateURL = &url                               // Record the public path
	if err := s.records.ReplaceAll(ctx, students); err != nil { // Rewrite the collection
		// The file is already in place; the two stores now disagree.
		logrus.WithError(err).WithFields(logrus.Fields{
			"roll_number": student.RollNumber,
			"path":        url,
		}).Error("Certificate stored but record update failed")
		return nil, unexpected(err)
	}
	s.invalidate(ctx, *student) // Next lookup sees the certificate

	logrus.WithFields(logrus.Fields{
		"roll_number":     student.RollNumber,
		"wallet":          student.WalletAddress,
		"certificate_url": url,
	}).Info("Certificate attached")
	updated := *student // Copy so callers never alias the slice
	return &updated, nil
}

func (s *Service) invalidate(ctx context.Context, st domain.Student) {
	if err := s.cache.Delete(ctx, rollKey(st.RollNumber), walletKey(st.WalletAddress)); err != nil {
		logrus.WithError(err).WithField("roll_number", st.RollNumber).Warn("Cache invalidation failed")
	}
}

func rollKey(roll string) string { return "student:roll:" + roll }

func walletKey(address string) string { return "student:wallet:" + strings.ToLower(address) }
