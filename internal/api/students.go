package api

import (
	"bytes"    // JSON literal checks
	"errors"   // Error inspection
	"io"       // Empty body detection
	"net/http" // HTTP status codes
	"strconv"  // Numeric string conversion

	"cert_registry/internal/domain"   // Student records
	"cert_registry/internal/registry" // Registry operations

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// admissionYear accepts either a JSON number or a numeric string, as form
// inputs usually send the year as text
type admissionYear int

// UnmarshalJSON decodes a number, a numeric string or null
func (y *admissionYear) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*y = 0 // Treated as missing
		return nil
	}
	if len(data) > 1 && data[0] == '"' {
		s, err := strconv.Unquote(string(data)) // Strip quotes
		if err != nil {
			return err
		}
		if s == "" {
			*y = 0 // Empty input is a missing field
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("admissionYear must be a number")
		}
		*y = admissionYear(n)
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return errors.New("admissionYear must be a number")
	}
	*y = admissionYear(n)
	return nil
}

// CreateStudentRequest represents a student registration request
type CreateStudentRequest struct {
	Name          string        `json:"name"`          // Student name
	RollNumber    string        `json:"rollNumber"`    // Unique roll number
	Department    string        `json:"department"`    // Department
	AdmissionYear admissionYear `json:"admissionYear"` // Year of admission
	WalletAddress string        `json:"walletAddress"` // Student wallet address
}

// CreateStudentHandler registers a new student
func CreateStudentHandler(svc *registry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateStudentRequest // Bind JSON request to struct
		// Decode the request body
		if err := c.ShouldBindJSON(&req); err != nil {
			// An empty body is reported like any other missing field
			if errors.Is(err, io.EOF) {
				respondError(c, registry.NewBadRequestError(registry.MsgMissingFields))
				return
			}
			respondError(c, registry.NewBadRequestError("Invalid request body"))
			return
		}
		student, err := svc.Create(c.Request.Context(), registry.NewStudent{
			Name:          req.Name,               // Student name
			RollNumber:    req.RollNumber,         // Roll number
			Department:    req.Department,         // Department
			AdmissionYear: int(req.AdmissionYear), // Admission year
			WalletAddress: req.WalletAddress,      // Wallet address
		})
		// Handle registry errors
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, student) // Return the created record
	}
}

// ListStudentsHandler returns every student record
func ListStudentsHandler(svc *registry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		students, err := svc.List(c.Request.Context()) // Load all records
		if err != nil {
			respondError(c, err)
			return
		}
		if students == nil {
			students = []domain.Student{} // Encode an empty registry as []
		}
		c.JSON(http.StatusOK, students) // Return the list
	}
}

// GetStudentHandler returns the student with the given roll number
func GetStudentHandler(svc *registry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		student, err := svc.GetByRollNumber(c.Request.Context(), c.Param("rollNumber")) // Exact roll lookup
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, student) // Return the record
	}
}

// GetStudentByWalletHandler returns the student owning a wallet address
func GetStudentByWalletHandler(svc *registry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		student, err := svc.GetByWallet(c.Request.Context(), c.Param("address")) // Case-insensitive lookup
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, student) // Return the record
	}
}

// UploadCertificateHandler stores the uploaded certificate of a student
func UploadCertificateHandler(svc *registry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("certificate") // Multipart field holding the PDF
		// Check a file was sent before looking up the student
		if err != nil {
			respondError(c, registry.NewBadRequestError(registry.MsgNoCertificateFile))
			return
		}
		file, err := fileHeader.Open() // Open the uploaded part
		if err != nil {
			respondError(c, err)
			return
		}
		defer file.Close() // Release the temp upload

		student, err := svc.AttachCertificate(c.Request.Context(), c.Param("rollNumber"), file)
		if err != nil {
			respondError(c, err)
			return
		}
		// Log the upload
		logrus.WithFields(logrus.Fields{
			"request_id":  c.GetString("requestID"), // Request identifier
			"roll_number": student.RollNumber,       // Student roll number
			"filename":    fileHeader.Filename,      // Client file name
			"size":        fileHeader.Size,          // Upload size in bytes
		}).Info("Certificate uploaded")
		c.JSON(http.StatusOK, student) // Return the updated record
	}
}

// respondError writes {"error": message} with the status of the error kind
func respondError(c *gin.Context, err error) {
	status := registry.StatusOf(err) // Map error kind to status
	if status >= http.StatusInternalServerError {
		// Log server side failures with context
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("requestID"), // Request identifier
			"path":       c.Request.URL.Path,       // Request path
			"error":      err.Error(),              // Error message
		}).Error("Registry operation failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
