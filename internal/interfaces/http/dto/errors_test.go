package dto

import (
	"net/http"
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{shared.CodeValidationFailed, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeStaleState, http.StatusConflict},
		{shared.CodeInvalidTransition, http.StatusUnprocessableEntity},
		{shared.CodeOverConsumption, http.StatusUnprocessableEntity},
		{shared.CodeUnderConsumption, http.StatusUnprocessableEntity},
		{shared.CodeOverPayment, http.StatusUnprocessableEntity},
		{shared.CodeNothingToConvert, http.StatusUnprocessableEntity},
		{shared.CodeGenerationExhausted, http.StatusUnprocessableEntity},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}
