package registry

import (
	"errors"
	"net/http"
)

// Kind sentinels, matched with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrUnexpected = errors.New("unexpected error")
)

// Error is a registry failure carrying a client-facing message.
type Error struct {
	Kind    error  // One of the sentinels above
	Message string // Message returned to the client
	Err     error  // Underlying cause, if any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

// Is matches the error against its kind sentinel.
func (e *Error) Is(target error) bool { return target == e.Kind }

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case ErrValidation, ErrBadRequest:
		return http.StatusBadRequest
	case ErrConflict:
		return http.StatusConflict
	case ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func validationError(message string, err error) error {
	return &Error{Kind: ErrValidation, Message: message, Err: err}
}

func conflictError(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}

func notFoundError(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// unexpected wraps a persistence or filesystem failure; its message is
// passed through to the client.
func unexpected(err error) error {
	return &Error{Kind: ErrUnexpected, Message: err.Error(), Err: err}
}

// NewBadRequestError reports a malformed request the service never saw.
func NewBadRequestError(message string) error {
	return &Error{Kind: ErrBadRequest, Message: message}
}

// StatusOf returns the HTTP status for any error: registry errors map by
// kind, everything else is 500.
func StatusOf(err error) int {
	var regErr *Error
	if errors.As(err, &regErr) {
		return regErr.Status()
	}
	return http.StatusInternalServerError
}

// Messages surfaced to clients.
const (
	MsgMissingFields     = "Missing required fields"
	MsgStudentExists     = "Student already exists"
	MsgWalletRegistered  = "Wallet address already registered"
	MsgStudentNotFound   = "Student not found"
	MsgNoCertificateFile = "No certificate file uploaded"
	MsgInvalidIdentifier = "Roll number and wallet address must not contain path separators"
)
