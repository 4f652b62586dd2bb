// Package apperr defines a tagged result type used at module boundaries
// instead of transport-specific errors. Domain packages return *Error;
// only the HTTP adapter layer maps a Code to a status.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Code identifies the behavioral category of a failure, independent of
// any transport.
type Code string

const (
	CodeValidation             Code = "validation_error"
	CodeEmailAlreadyRegistered Code = "email_already_registered"
	CodeRegistrationExpired    Code = "registration_expired"
	CodeOTPInvalid             Code = "otp_invalid"
	CodeOTPExpired             Code = "otp_expired"
	CodeRateLimited            Code = "rate_limited"
	CodeNotFound               Code = "not_found"
	CodeAlreadyCheckedIn       Code = "already_checked_in"
	CodeInvalidPayload         Code = "invalid_payload"
	CodeUnconfigured           Code = "unconfigured"
	CodeTransportFailure       Code = "transport_failure"
	CodeInternal               Code = "internal"
)

// FieldError names one field-level validation failure.
type FieldError struct {
	Field   string
	Message string
}

// Error is the tagged result type domain packages return instead of a
// plain error, so callers can branch on Code without type assertions on
// transport-specific error values.
type Error struct {
	Code          Code
	Message       string
	Fields        []FieldError
	RetryAfter    time.Duration
	CorrelationID string
	Data          map[string]any
	cause         error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

// New builds an *Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an *Error that carries an underlying cause, for logging.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithFields attaches field-level validation errors.
func (e *Error) WithFields(fields ...FieldError) *Error {
	e.Fields = fields
	return e
}

// WithRetryAfter attaches a retry hint, used for rate-limit responses.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// WithCorrelationID attaches the correlation id returned to the client
// alongside a 500-class error.
func (e *Error) WithCorrelationID(id string) *Error {
	e.CorrelationID = id
	return e
}

// WithData attaches a single key/value of response-shaping context, e.g.
// the existing check_in_time on an AlreadyCheckedIn error.
func (e *Error) WithData(key string, value any) *Error {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code Code) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
