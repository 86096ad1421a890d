package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound               = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation             = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInvalidTransition      = New("INVALID_TRANSITION", http.StatusConflict, "illegal status transition")
	ErrNoActiveLease          = New("NO_ACTIVE_LEASE", http.StatusConflict, "no active lease held by this worker")
	ErrLeaseConflict          = New("LEASE_CONFLICT", http.StatusConflict, "case is leased by another worker")
	ErrIdempotencyKeyRequired = New("IDEMPOTENCY_KEY_REQUIRED", http.StatusBadRequest, "Idempotency-Key header is required")
	ErrIdempotencyInFlight    = New("IDEMPOTENCY_IN_FLIGHT", http.StatusConflict, "a request with this idempotency key is still executing")
	ErrInvalidCredentials     = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid worker id or secret")
	ErrInactiveWorker         = New("WORKER_INACTIVE", http.StatusForbidden, "worker is deactivated")
	ErrUnauthorized           = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden              = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrConflict               = New("CONFLICT", http.StatusConflict, "conflict")
	ErrInternal               = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Retryable reports whether the caller may safely retry the failed request.
// Lease conflicts resolve once the lease expires; in-flight idempotency slots
// resolve once the first request finishes; plain conflicts mean a concurrent
// write won and the caller should re-read and retry.
func Retryable(err error) bool {
	e := FromError(err)
	if e == nil {
		return false
	}
	switch e.Code {
	case ErrLeaseConflict.Code, ErrIdempotencyInFlight.Code, ErrConflict.Code, ErrInternal.Code:
		return true
	}
	return false
}
