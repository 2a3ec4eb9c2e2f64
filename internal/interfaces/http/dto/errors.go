package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal = "INTERNAL_ERROR"
	ErrCodeNotFound = "NOT_FOUND"
)

// Validation error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeRequiredField   = "REQUIRED_FIELD"
	ErrCodeIndexOutOfRange = "INDEX_OUT_OF_RANGE"
	ErrCodeInvalidPrefix   = "INVALID_PREFIX"
	ErrCodeInvalidMarkup   = "INVALID_MARKUP"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "INVALID_TOKEN"
)

// Resource error codes
const (
	ErrCodeBatchNotFound      = "BATCH_NOT_FOUND"
	ErrCodeBatchConflict      = "BATCH_CONFLICT"
	ErrCodeMarkupNotFound     = "MARKUP_NOT_FOUND"
	ErrCodeRefreshNotFound    = "REFRESH_NOT_FOUND"
	ErrCodeSyncAlreadyRunning = "SYNC_ALREADY_RUNNING"
	ErrCodeInvalidState       = "INVALID_STATE"
)

// Upstream error codes
const (
	ErrCodePlatformUnavailable     = "PLATFORM_UNAVAILABLE"
	ErrCodePlatformRequestFailed   = "PLATFORM_REQUEST_FAILED"
	ErrCodePlatformAuthFailed      = "PLATFORM_AUTH_FAILED"
	ErrCodePlatformInvalidResponse = "PLATFORM_INVALID_RESPONSE"
	ErrCodePlatformNotConfigured   = "PLATFORM_NOT_CONFIGURED"
	ErrCodeMissingDefaults         = "ERP_MISSING_DEFAULTS"
	ErrCodeNoLocation              = "SHOP_NO_LOCATION"
	ErrCodeExtractionFailed        = "EXTRACTION_FAILED"
	ErrCodeExtractionTimeout       = "EXTRACTION_TIMEOUT"
	ErrCodeExtractionUnavailable   = "EXTRACTION_UNAVAILABLE"
	ErrCodeRequestTooLarge         = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,
	ErrCodeNotFound: http.StatusNotFound,

	// Validation errors
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeRequiredField:   http.StatusBadRequest,
	ErrCodeIndexOutOfRange: http.StatusUnprocessableEntity,
	ErrCodeInvalidPrefix:   http.StatusUnprocessableEntity,
	ErrCodeInvalidMarkup:   http.StatusUnprocessableEntity,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeBatchNotFound:      http.StatusNotFound,
	ErrCodeBatchConflict:      http.StatusConflict,
	ErrCodeMarkupNotFound:     http.StatusNotFound,
	ErrCodeRefreshNotFound:    http.StatusNotFound,
	ErrCodeSyncAlreadyRunning: http.StatusConflict,
	ErrCodeInvalidState:       http.StatusConflict,

	// Upstream errors
	ErrCodePlatformUnavailable:     http.StatusBadGateway,
	ErrCodePlatformRequestFailed:   http.StatusBadGateway,
	ErrCodePlatformAuthFailed:      http.StatusUnauthorized,
	ErrCodePlatformInvalidResponse: http.StatusBadGateway,
	ErrCodePlatformNotConfigured:   http.StatusServiceUnavailable,
	ErrCodeMissingDefaults:         http.StatusUnprocessableEntity,
	ErrCodeNoLocation:              http.StatusUnprocessableEntity,
	ErrCodeExtractionFailed:        http.StatusUnprocessableEntity,
	ErrCodeExtractionTimeout:       http.StatusGatewayTimeout,
	ErrCodeExtractionUnavailable:   http.StatusBadGateway,
	ErrCodeRequestTooLarge:         http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
