package errors

import "net/http"

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound           = "not_found"
	ErrCodeQuizNotFound       = "quiz_not_found"
	ErrCodeResultNotFound     = "result_not_found"
	ErrCodeSubmissionNotFound = "submission_not_found"

	// Submission errors
	ErrCodeSubmitFailed  = "submit_failed"
	ErrCodeEnqueueFailed = "enqueue_failed"

	// Result and leaderboard errors
	ErrCodeResultsFetchFailed     = "results_fetch_failed"
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)

var statusByCode = map[string]int{
	ErrCodeUnauthorized:           http.StatusUnauthorized,
	ErrCodeInvalidToken:           http.StatusUnauthorized,
	ErrCodeTokenExpired:           http.StatusUnauthorized,
	ErrCodeAuthenticationRequired: http.StatusUnauthorized,
	ErrCodeForbidden:              http.StatusForbidden,

	ErrCodeInvalidRequest:   http.StatusBadRequest,
	ErrCodeValidationFailed: http.StatusBadRequest,
	ErrCodeMissingField:     http.StatusBadRequest,

	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeQuizNotFound:       http.StatusNotFound,
	ErrCodeResultNotFound:     http.StatusNotFound,
	ErrCodeSubmissionNotFound: http.StatusNotFound,

	ErrCodeSubmitFailed:       http.StatusServiceUnavailable,
	ErrCodeEnqueueFailed:      http.StatusServiceUnavailable,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeUpstreamError:      http.StatusBadGateway,
}
