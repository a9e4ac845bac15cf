package errors

import "net/http"

// Error code constants for the JSON API surface.
// Callback endpoints never use these: OAuth failures resolve to a redirect
// with a short query-parameter code instead (see internal/api/handlers).

// Integration error codes.
const (
	CodeIntegrationNotFound     = "INTEGRATION_NOT_FOUND"
	CodeIntegrationCreateFailed = "INTEGRATION_CREATION_FAILED"
	CodeUnknownProvider         = "UNKNOWN_PROVIDER"
	CodeSyncEnqueueFailed       = "SYNC_ENQUEUE_FAILED"
	CodeTokenExpired            = "TOKEN_EXPIRED"
)

// Employee/Group error codes.
const (
	CodeEmployeeNotFound     = "EMPLOYEE_NOT_FOUND"
	CodeEmployeeCreateFailed = "EMPLOYEE_CREATION_FAILED"
	CodeGroupNotFound        = "GROUP_NOT_FOUND"
	CodeGroupCreateFailed    = "GROUP_CREATION_FAILED"
)

// Auth error codes.
const (
	CodeAuthFailed   = "AUTH_FAILED"
	CodeTokenInvalid = "TOKEN_INVALID"
)

// Validation error codes.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeCSVParseFailed   = "CSV_PARSE_FAILED"
)

// ErrUnknownProvider creates a bad request error for an unrecognized
// integration type.
func ErrUnknownProvider(provider string) *AppError {
	return &AppError{
		Code:       CodeUnknownProvider,
		Message:    "unknown integration provider: " + provider,
		HTTPStatus: http.StatusBadRequest,
	}
}

// ErrIntegrationNotFound creates a not-found error for an integration id.
func ErrIntegrationNotFound(id string) *AppError {
	return &AppError{
		Code:       CodeIntegrationNotFound,
		Message:    "integration not found: " + id,
		HTTPStatus: http.StatusNotFound,
	}
}

// ErrValidation creates a field-level validation error.
func ErrValidation(field, reason string) *AppError {
	return (&AppError{
		Code:       CodeValidationFailed,
		Message:    "request validation failed",
		HTTPStatus: http.StatusBadRequest,
	}).WithFieldErrors([]FieldError{{Field: field, Code: "REQUIRED", Message: reason}})
}
