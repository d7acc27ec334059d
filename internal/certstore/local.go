// Package certstore keeps uploaded certificate PDFs on the local
// filesystem, one directory per wallet address.
package certstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrInvalidPathComponent is returned for a wallet address or roll number
// that cannot be used as a single directory or file name.
var ErrInvalidPathComponent = errors.New("invalid path component")

// LocalStore stores certificates under <root>/<wallet>/<roll>.pdf and
// exposes them under urlPrefix.
type LocalStore struct {
	root      string // Directory holding one subdirectory per wallet
	urlPrefix string // Public path the root is served under
}

// NewLocalStore ensures root exists and returns a store serving it under urlPrefix.
func NewLocalStore(root, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create certificate directory %s: %w", root, err)
	}
	logrus.WithField("path", root).Info("Certificate directory ensured")
	return &LocalStore{
		root:      root,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}, nil
}

// Root returns the directory served as static content.
func (s *LocalStore) Root() string { return s.root }

// URLPrefix returns the public path prefix, without trailing slash.
func (s *LocalStore) URLPrefix() string { return s.urlPrefix }

// ValidateComponent checks that name can be used as one path segment.
func ValidateComponent(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidPathComponent, name)
	}
	return nil
}

// EnsureWalletDir creates the wallet directory if it is missing.
func (s *LocalStore) EnsureWalletDir(wallet string) error {
	if err := ValidateComponent(wallet); err != nil {
		return err
	}
	dir := filepath.Join(s.root, wallet)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create wallet directory: %w", err)
	}
	return nil
}

// Path returns the filesystem location of a certificate.
func (s *LocalStore) Path(wallet, roll string) string {
	return filepath.Join(s.root, wallet, roll+".pdf")
}

// URL returns the public path of a certificate.
func (s *LocalStore) URL(wallet, roll string) string {
	return s.urlPrefix + "/" + wallet + "/" + roll + ".pdf"
}

// Save writes the content of r as the certificate for (wallet, roll),
// replacing any earlier file, and returns its public path.
func (s *LocalStore) Save(wallet, roll string, r io.Reader) (string, error) {
	if err := ValidateComponent(roll); err != nil {
		return "", err
	}
	if err := s.EnsureWalletDir(wallet); err != nil {
		return "", err
	}
	dst := s.Path(wallet, roll)
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+roll+"-*.upload")
	if err != nil {
		return "", fmt.Errorf("create temp certificate: %w", err)
	}
	tmpName := tmp.Name()
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// Remove the partial upload
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("save certificate content: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("move certificate into place: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"wallet": wallet,
		"roll":   roll,
		"bytes":  n,
		"path":   dst,
	}).Info("Certificate saved")
	return s.URL(wallet, roll), nil
}
