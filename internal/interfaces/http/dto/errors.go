package dto

import (
	"net/http"

	"github.com/erp/backoffice/internal/domain/shared"
)

// Transport-level error codes. Domain error codes from the shared package
// pass through to clients unchanged; these cover everything that never
// reaches the domain.
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
)

// errorCodeHTTPStatus maps error codes to HTTP status codes. Rule-violation
// codes map to 422: the request was well-formed but the document's state
// forbids it.
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,

	shared.CodeValidationFailed: http.StatusBadRequest,
	shared.CodeNotFound:         http.StatusNotFound,
	shared.CodeStaleState:       http.StatusConflict,

	shared.CodeInvalidTransition:   http.StatusUnprocessableEntity,
	shared.CodeOverConsumption:     http.StatusUnprocessableEntity,
	shared.CodeUnderConsumption:    http.StatusUnprocessableEntity,
	shared.CodeOverPayment:         http.StatusUnprocessableEntity,
	shared.CodeNothingToConvert:    http.StatusUnprocessableEntity,
	shared.CodeGenerationExhausted: http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
