package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal      = "INTERNAL_ERROR"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeDatabase      = "DATABASE_ERROR"

	// Monitoring error taxonomy. A transient fetch ends the cycle early but
	// keeps the agent running; a classification error skips one record; a
	// dispatch error is recorded per channel; a configuration error is fatal
	// for that agent's start.
	ErrCodeTransientFetch = "TRANSIENT_FETCH_ERROR"
	ErrCodeClassification = "CLASSIFICATION_ERROR"
	ErrCodeDispatch       = "DISPATCH_ERROR"
	ErrCodeConfiguration  = "CONFIGURATION_ERROR"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// RateLimited creates a rate limited error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// DatabaseError creates a database error
func DatabaseError(message string, err error) *AppError {
	return Wrap(err, ErrCodeDatabase, message, http.StatusInternalServerError)
}

// TransientFetch wraps an upstream fetch failure that should be retried on
// the next agent cycle.
func TransientFetch(source string, err error) *AppError {
	return Wrap(err, ErrCodeTransientFetch,
		fmt.Sprintf("failed to fetch from %s", source),
		http.StatusBadGateway)
}

// Classification marks a single malformed record; the record is skipped and
// the rest of the cycle proceeds.
func Classification(recordID string, err error) *AppError {
	return Wrap(err, ErrCodeClassification,
		fmt.Sprintf("failed to classify record %s", recordID),
		http.StatusUnprocessableEntity)
}

// Dispatch marks a delivery failure on a single notification channel.
func Dispatch(channel string, err error) *AppError {
	return Wrap(err, ErrCodeDispatch,
		fmt.Sprintf("failed to deliver alert on channel %s", channel),
		http.StatusBadGateway)
}

// Configuration marks an invalid threshold, interval or rule set. Fatal for
// the agent being started; the orchestrator continues with the others.
func Configuration(message string) *AppError {
	return New(ErrCodeConfiguration, message, http.StatusInternalServerError)
}

// AsAppError unwraps err into target when it carries an AppError.
func AsAppError(err error, target **AppError) bool {
	return stderrors.As(err, target)
}

func hasCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsTransientFetch reports whether err is a transient fetch error.
func IsTransientFetch(err error) bool {
	return hasCode(err, ErrCodeTransientFetch)
}

// IsClassification reports whether err is a classification error.
func IsClassification(err error) bool {
	return hasCode(err, ErrCodeClassification)
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}
