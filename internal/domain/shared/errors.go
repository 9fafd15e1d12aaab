package shared

import "errors"

// Error codes for business-rule violations. All of them are recoverable by
// the caller; infrastructure failures are returned as plain wrapped errors
// and are safe to retry.
const (
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeStaleState          = "STALE_STATE"
	CodeOverConsumption     = "OVER_CONSUMPTION"
	CodeUnderConsumption    = "UNDER_CONSUMPTION"
	CodeOverPayment         = "OVER_PAYMENT"
	CodeGenerationExhausted = "GENERATION_EXHAUSTED"
	CodeNothingToConvert    = "NOTHING_TO_CONVERT"
	CodeNotFound            = "NOT_FOUND"
	CodeValidationFailed    = "VALIDATION_FAILED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// IsDomainError reports whether err is (or wraps) a DomainError
func IsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err is a DomainError with the given code
func HasCode(err error, code string) bool {
	de, ok := IsDomainError(err)
	return ok && de.Code == code
}

// Common domain errors
var (
	ErrNotFound   = NewDomainError(CodeNotFound, "Resource not found")
	ErrStaleState = NewDomainError(CodeStaleState, "Document was modified by another process")
)
