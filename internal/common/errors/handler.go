// internal/common/errors/handler.go
package errors

import (
	"net/http"
	"time"
)

// HTTPStatusMapping maps internal error codes to HTTP status codes.
var HTTPStatusMapping = map[ErrorCode]int{
	ErrCodeNotFound:                 http.StatusNotFound,
	ErrCodeInvalidStateTransition:   http.StatusConflict,
	ErrCodeInvalidArgument:          http.StatusBadRequest,
	ErrCodeValidationFailed:         http.StatusUnprocessableEntity,
	ErrCodeDatabaseConnectionFailed: http.StatusServiceUnavailable,
	ErrCodeQueryExecutionFailed:     http.StatusServiceUnavailable,
	ErrCodeDatabaseInsertFailed:     http.StatusServiceUnavailable,
	ErrCodeDirectoryLookupFailed:    http.StatusServiceUnavailable,
	ErrCodeNotificationSendFailed:   http.StatusServiceUnavailable,
	ErrCodeSearchUnavailable:        http.StatusServiceUnavailable,
	ErrCodeSearchQueryFailed:        http.StatusBadGateway,
	ErrCodeAuthenticationFailed:     http.StatusUnauthorized,
}

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HTTPStatus returns the HTTP status for err. Unknown codes map to 500.
func HTTPStatus(err error) int {
	stdErr := Normalize(err)
	if status, ok := HTTPStatusMapping[stdErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ToResponse converts err to a client-facing JSON body. Upstream failure
// details stay in the logs, the client only needs the code and message.
func ToResponse(err error) ErrorResponse {
	stdErr := Normalize(err)
	resp := ErrorResponse{
		Code:    string(stdErr.Code),
		Message: stdErr.Message,
	}
	if !stdErr.Retryable {
		resp.Details = stdErr.Details
	}
	return resp
}
