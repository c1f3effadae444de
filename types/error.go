package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the router.
type ErrorCode string

// Routing error codes
const (
	ErrClassification  ErrorCode = "CLASSIFICATION"
	ErrNoWorkers       ErrorCode = "NO_WORKERS"
	ErrScoringFailed   ErrorCode = "SCORING_FAILED"
	ErrWorkerNotFound  ErrorCode = "WORKER_NOT_FOUND"
	ErrDuplicateWorker ErrorCode = "DUPLICATE_WORKER"
	ErrInvalidProfile  ErrorCode = "INVALID_PROFILE"
	ErrInvalidConfig   ErrorCode = "INVALID_CONFIG"
	ErrInvalidPlan     ErrorCode = "INVALID_PLAN"
	ErrJobCancelled    ErrorCode = "JOB_CANCELLED"
)

// Execution error codes
const (
	ErrAssignmentFailed  ErrorCode = "ASSIGNMENT_FAILED"
	ErrAssignmentTimeout ErrorCode = "ASSIGNMENT_TIMEOUT"
	ErrFallbackExhausted ErrorCode = "FALLBACK_EXHAUSTED"
	ErrStatsRecording    ErrorCode = "STATS_RECORDING"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	WorkerID  string    `json:"worker_id,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.WorkerID != "" {
		msg = fmt.Sprintf("%s (worker=%s)", msg, e.WorkerID)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithWorker sets the worker the error relates to.
func (e *Error) WithWorker(workerID string) *Error {
	e.WorkerID = workerID
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err (or anything it wraps) carries code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && GetErrorCode(err) == code
}
