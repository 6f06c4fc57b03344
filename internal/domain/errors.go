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
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodePersistence   = "PERSISTENCE_ERROR"
	ErrCodeUnavailable   = "DATA_UNAVAILABLE"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidCandidate     = NewDomainError(ErrCodeValidation, "invalid candidate video")
	ErrInvalidProfile       = NewDomainError(ErrCodeValidation, "invalid preference profile")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrProfileNotFound  = NewDomainError(ErrCodeNotFound, "preference profile not found")
	ErrSnapshotNotFound = NewDomainError(ErrCodeNotFound, "profile snapshot not found")
)

// Configuration errors, fatal at startup validation
var (
	ErrWeightsInvalid   = NewDomainError(ErrCodeConfiguration, "scoring weights must sum to 1.0")
	ErrUnknownCategory  = NewDomainError(ErrCodeConfiguration, "category not present in category table")
	ErrEmptyCategoryMap = NewDomainError(ErrCodeConfiguration, "category table is empty")
)

// Persistence errors
var (
	ErrProfileStoreFailed = NewDomainError(ErrCodePersistence, "profile load/save failed")
)

// Authorization errors
var (
	ErrInvalidToken = NewDomainError(ErrCodeUnauthorized, "invalid api token")
)
