package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failure so callers can branch without matching messages.
type ErrorCode string

const (
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInvalidState  ErrorCode = "INVALID_STATE"

	// The REST backend could not be reached or answered with an unexpected status.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"

	// A dialog draft or a request body was rejected.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingRequired  ErrorCode = "MISSING_REQUIRED"
)

var httpStatusByCode = map[ErrorCode]int{
	ErrCodeInvalidInput:     http.StatusBadRequest,
	ErrCodeValidationFailed: http.StatusBadRequest,
	ErrCodeMissingRequired:  http.StatusBadRequest,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeConflict:         http.StatusConflict,
	ErrCodeAlreadyExists:    http.StatusConflict,
	ErrCodeInvalidState:     http.StatusConflict,
	ErrCodeTransport:        http.StatusBadGateway,
}

// Error is the structured failure passed between the resource client, the screens and the backend.
type Error struct {
	Code    ErrorCode
	Message string
	// Details holds per-field validation messages or backend response metadata.
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail records key on the error and returns it for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// HTTPStatusCode is the status the backend answers with for this error.
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err stays nil.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Is and As mirror the standard library so this package can shadow it.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func find(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsCode reports whether the first structured error in err's chain has code.
func IsCode(err error, code ErrorCode) bool {
	e, ok := find(err)
	return ok && e.Code == code
}

// GetCode returns the code of err, or ErrCodeInternal for unstructured errors.
func GetCode(err error) ErrorCode {
	if e, ok := find(err); ok {
		return e.Code
	}
	return ErrCodeInternal
}

// GetDetails returns the details of err, or nil for unstructured errors.
func GetDetails(err error) map[string]interface{} {
	if e, ok := find(err); ok {
		return e.Details
	}
	return nil
}

// MapErrorCodeToHTTPStatus defaults to 500 for codes without a mapping.
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// MapHTTPStatusToErrorCode classifies a non-success response from the REST backend.
// Anything that is not a recognised client error is a transport failure.
func MapHTTPStatusToErrorCode(status int) ErrorCode {
	switch status {
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrCodeValidationFailed
	case http.StatusConflict:
		return ErrCodeConflict
	default:
		return ErrCodeTransport
	}
}

// NotFound reports a missing record, e.g. NotFound("role", "3").
func NotFound(kind, id string) *Error {
	return Newf(ErrCodeNotFound, "%s not found: %s", kind, id)
}

func AlreadyExists(kind, id string) *Error {
	return Newf(ErrCodeAlreadyExists, "%s already exists: %s", kind, id)
}

func InvalidInput(field, reason string) *Error {
	return Newf(ErrCodeInvalidInput, "invalid %s: %s", field, reason)
}

func Conflict(message string) *Error {
	return New(ErrCodeConflict, message)
}

// Transport reports a failed exchange with the REST backend. err may be nil
// when the backend answered but the answer was unusable.
func Transport(err error, message string) *Error {
	if err == nil {
		return New(ErrCodeTransport, message)
	}
	return Wrap(err, ErrCodeTransport, message)
}

func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

// ValidationFailed carries one entry per offending field.
func ValidationFailed(fields map[string]interface{}) *Error {
	e := New(ErrCodeValidationFailed, "validation failed")
	for field, problem := range fields {
		e.WithDetail(field, problem)
	}
	return e
}
