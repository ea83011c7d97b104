package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeInvalidSessionID = "invalid_session_id"

	// Practice session errors
	ErrCodeLimitReached      = "limit_reached"
	ErrCodeSessionNotFound   = "session_not_found"
	ErrCodeAlreadyAnswered   = "already_answered"
	ErrCodeEmptySubmission   = "empty_submission"
	ErrCodeIncompleteAnswers = "incomplete_answers"
	ErrCodeVersionConflict   = "version_conflict"
	ErrCodeSessionNotActive  = "session_not_active"
	ErrCodeSessionBusy       = "session_busy"
	ErrCodeNoQuestions       = "no_questions"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
)
