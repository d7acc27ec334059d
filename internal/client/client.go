// Package client talks to the registry HTTP API on behalf of the CLI panels.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cert_registry/internal/domain"
	"cert_registry/internal/middleware"
	"cert_registry/internal/registry"
)

// APIError is a non-2xx answer from the registry.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registry returned %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the registry.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Identity is the role the registry assigns to an address.
type Identity struct {
	Address         string `json:"address"`
	Role            string `json:"role"`
	AdminConfigured bool   `json:"adminConfigured"`
}

type Client struct {
	baseURL    string
	wallet     string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second, // Uploads can be slow
		},
	}
}

// WithWallet returns a copy sending address in the wallet header, which the
// server checks on write routes when its admin guard is on.
func (c *Client) WithWallet(address string) *Client {
	cp := *c
	cp.wallet = address // Original client is left unchanged
	return &cp
}

func (c *Client) CreateStudent(ctx context.Context, in registry.NewStudent) (*domain.Student, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode student: %w", err)
	}
	var out domain.Student
	if err := c.do(ctx, http.MethodPost, "/api/students", "application/json", bytes.NewReader(body), http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListStudents(ctx context.Context) ([]domain.Student, error) {
	var out []domain.Student
	if err := c.do(ctx, http.MethodGet, "/api/students", "", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStudent(ctx context.Context, roll string) (*domain.Student, error) {
	var out domain.Student
	if err := c.do(ctx, http.MethodGet, "/api/students/"+url.PathEscape(roll), "", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetStudentByWallet(ctx context.Context, address string) (*domain.Student, error) {
	var out domain.Student
	if err := c.do(ctx, http.MethodGet, "/api/students/wallet/"+url.PathEscape(address), "", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadCertificate sends r as the certificate of roll.
func (c *Client) UploadCertificate(ctx context.Context, roll, filename string, r io.Reader) (*domain.Student, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)                         // Build the multipart body in memory
	part, err := mw.CreateFormFile("certificate", filename) // Field name the server reads
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out domain.Student
	path := "/api/students/" + url.PathEscape(roll) + "/certificate"
	if err := c.do(ctx, http.MethodPost, path, mw.FormDataContentType(), &buf, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Identity(ctx context.Context, address string) (*Identity, error) {
	var out Identity
	if err := c.do(ctx, http.MethodGet, "/api/identity/"+url.PathEscape(address), "", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CertificateURL resolves a record's certificate path against the API.
func (c *Client) CertificateURL(s *domain.Student) string {
	if !s.HasCertificate() {
		return ""
	}
	return c.baseURL + (&url.URL{Path: *s.CertificateURL}).EscapedPath() // Escape the stored path
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, want int, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.wallet != "" {
		req.Header.Set(middleware.WalletHeader, c.wallet) // Checked by the admin guard
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("registry unavailable: %w", err)
	}
	defer resp.Body.Close() // Close response body

	if resp.StatusCode != want {
		return decodeError(resp) // Map non-2xx answers to APIError
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from registry: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) // Cap error bodies
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		msg = payload.Error // Prefer the server's JSON message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
