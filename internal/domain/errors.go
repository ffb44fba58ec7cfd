package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeUpstream         = "UPSTREAM_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidSourceType    = NewDomainError(ErrCodeValidation, "invalid knowledge source type")
	ErrInvalidSourceStatus  = NewDomainError(ErrCodeValidation, "invalid knowledge source status")
	ErrInvalidScope         = NewDomainError(ErrCodeValidation, "invalid knowledge scope")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query text is required")
	ErrEmptyContent         = NewDomainError(ErrCodeValidation, "extracted content is empty")
	ErrNoDirectContent      = NewDomainError(ErrCodeValidation, "no content supplied for markdown source")
	ErrFileNotImplemented   = NewDomainError(ErrCodeValidation, "File content extraction not yet implemented")
)

// Not found errors
var (
	ErrSourceNotFound = NewDomainError(ErrCodeNotFound, "knowledge source not found")
	ErrPageNotFound   = NewDomainError(ErrCodeNotFound, "page not found")
	ErrMemoryNotFound = NewDomainError(ErrCodeNotFound, "memory not found")
)

// Operation errors
var (
	ErrIngestionInFlight = NewDomainError(ErrCodeAlreadyExists, "ingestion already in progress for this source")
	ErrQueueStopped      = NewDomainError(ErrCodeInvalidOperation, "ingestion queue is not running")
	ErrQueueFull         = NewDomainError(ErrCodeInvalidOperation, "ingestion queue is full")
)

// Upstream errors
var (
	ErrEmbeddingUnavailable = NewDomainError(ErrCodeUpstream, "embedding provider unavailable")
	ErrFetchFailed          = NewDomainError(ErrCodeUpstream, "source fetch failed")
)
