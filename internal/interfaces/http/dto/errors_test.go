package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeRequiredField, http.StatusBadRequest},
		{ErrCodeIndexOutOfRange, http.StatusUnprocessableEntity},
		{ErrCodeInvalidPrefix, http.StatusUnprocessableEntity},
		{ErrCodeBatchNotFound, http.StatusNotFound},
		{ErrCodeSyncAlreadyRunning, http.StatusConflict},
		{ErrCodeBatchConflict, http.StatusConflict},
		{ErrCodePlatformAuthFailed, http.StatusUnauthorized},
		{ErrCodePlatformUnavailable, http.StatusBadGateway},
		{ErrCodeExtractionTimeout, http.StatusGatewayTimeout},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{"SOMETHING_NEW", http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestResponse_WithRequest(t *testing.T) {
	resp := NewErrorResponse(ErrCodeBatchNotFound, "Batch not found").WithRequest("req-1", "trace-1").WithField("batch_id")

	assert.False(t, resp.Success)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Equal(t, "trace-1", resp.Error.TraceID)
	assert.Equal(t, "batch_id", resp.Error.Field)

	ok := NewSuccessResponse("data").WithRequest("req-1", "trace-1")
	assert.Nil(t, ok.Error)
	assert.Equal(t, "data", ok.Data)
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", []ValidationDetail{{Field: "prefix", Message: "Invalid value"}})

	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "prefix", resp.Error.Details[0].Field)
}
