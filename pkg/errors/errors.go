package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable, wire-visible classification of an error. HTTP
// status and public messaging derive from it, never the other way
// around.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// MetadataFor never fails; unknown codes collapse to CodeInternal so a
// bad code cannot leak a 200 or an unmapped status.
func MetadataFor(code Code) Metadata {
	switch code {
	case CodeValidation:
		return Metadata{http.StatusBadRequest, false, "validation failed", true}
	case CodeUnauthorized:
		return Metadata{http.StatusUnauthorized, false, "authentication required", false}
	case CodeForbidden:
		return Metadata{http.StatusForbidden, false, "access denied", false}
	case CodeNotFound:
		return Metadata{http.StatusNotFound, false, "resource not found", false}
	case CodeConflict:
		return Metadata{http.StatusConflict, true, "conflict detected", false}
	case CodeStateConflict:
		return Metadata{http.StatusUnprocessableEntity, false, "state transition disallowed", true}
	case CodeIdempotency:
		return Metadata{http.StatusConflict, false, "idempotency key reused", true}
	case CodeDependency:
		return Metadata{http.StatusServiceUnavailable, true, "dependency unavailable", true}
	default:
		return Metadata{http.StatusInternalServerError, true, "internal server error", false}
	}
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap keeps the cause reachable through Unwrap while stamping the
// chain with a code the transport layer can map.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As pulls the innermost typed error out of a wrapped chain, or nil
// when the chain carries none.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
