package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Folio error code.
type ErrorCode string

const (
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"        // 400
	ErrNotFound              ErrorCode = "NOT_FOUND"              // 404
	ErrConflict              ErrorCode = "CONFLICT"               // 409
	ErrInternal              ErrorCode = "INTERNAL"               // 500
	ErrCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE" // 501
	ErrUpstream              ErrorCode = "UPSTREAM"               // 502
)

// FolioError represents a structured error with code, status, and details.
type FolioError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *FolioError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *FolioError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *FolioError {
	return &FolioError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a note or article that does not exist
// in the given locale.
func NewNotFound(id, locale string) *FolioError {
	return &FolioError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s (locale %s)", id, locale),
		Details: map[string]any{"id": id, "locale": locale},
	}
}

// NewAlreadyExists creates a 409 error when an id is already taken in a locale.
func NewAlreadyExists(id, locale string) *FolioError {
	return &FolioError{
		Code:    ErrConflict,
		Status:  409,
		Message: fmt.Sprintf("note %q already exists in locale %q", id, locale),
		Details: map[string]any{"id": id, "locale": locale},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *FolioError {
	return &FolioError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewCapabilityUnavailable creates a 501 error for write operations the
// current deployment does not allow.
func NewCapabilityUnavailable(op string) *FolioError {
	return &FolioError{
		Code:    ErrCapabilityUnavailable,
		Status:  501,
		Message: fmt.Sprintf("%s is unavailable: content is served read-only", op),
		Details: map[string]any{"operation": op},
	}
}

// NewUpstream creates a 502 error for a failed call to an external API.
func NewUpstream(service string, err error) *FolioError {
	msg := "upstream error"
	if err != nil {
		msg = err.Error()
	}
	return &FolioError{
		Code:    ErrUpstream,
		Status:  502,
		Message: msg,
		Details: map[string]any{"service": service},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message is generic; the original error is kept in Details for logging.
func NewInternal(err error) *FolioError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &FolioError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		cause:   err,
	}
}

// Is checks if an error is (or wraps) a FolioError with the given code.
func Is(err error, code ErrorCode) bool {
	var fErr *FolioError
	if stderrors.As(err, &fErr) {
		return fErr.Code == code
	}
	return false
}

// As returns the FolioError in err's chain, wrapping anything else as internal.
func As(err error) *FolioError {
	var fErr *FolioError
	if stderrors.As(err, &fErr) {
		return fErr
	}
	return NewInternal(err)
}
