package domain

import (
	"encoding/json" // Timestamp formatting
	"strings"       // Case folding for wallet comparison
	"time"          // Creation timestamps
)

// Student Model
type Student struct {
	ID             uint      `gorm:"primaryKey" json:"-"`                             // Primary key (SQL store only)
	Name           string    `gorm:"not null" json:"name"`                            // Full name
	RollNumber     string    `gorm:"size:191;uniqueIndex;not null" json:"rollNumber"` // Unique enrollment identifier
	Department     string    `gorm:"not null" json:"department"`                      // Department name
	AdmissionYear  int       `gorm:"not null" json:"admissionYear"`                   // Year of admission
	WalletAddress  string    `gorm:"size:191;index;not null" json:"walletAddress"`    // Student wallet address
	CertificateURL *string   `json:"certificateUrl"`                                  // Public path of the certificate, nil until uploaded
	CreatedAt      time.Time `json:"createdAt"`                                       // Creation time (UTC, millisecond precision)
}

// TimestampLayout is ISO 8601 in UTC with exactly three fractional digits
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// MarshalJSON writes createdAt with a fixed millisecond fraction
func (s Student) MarshalJSON() ([]byte, error) {
	type record Student // Drops this method to avoid recursion
	return json.Marshal(struct {
		record
		CreatedAt string `json:"createdAt"` // Shadows the embedded time value
	}{
		record:    record(s),
		CreatedAt: s.CreatedAt.UTC().Format(TimestampLayout),
	})
}

// HasCertificate reports whether a certificate has been attached
func (s Student) HasCertificate() bool {
	return s.CertificateURL != nil && *s.CertificateURL != ""
}

// OwnedBy reports whether the record belongs to the given wallet address
func (s Student) OwnedBy(address string) bool {
	return strings.EqualFold(s.WalletAddress, address)
}
