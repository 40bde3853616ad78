package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidPath     = errors.New("invalid path")
	ErrNotFound        = errors.New("not found")
	ErrNotADirectory   = errors.New("not a directory")
	ErrConflict        = errors.New("conflict")
	ErrAccessDenied    = errors.New("access denied")
	ErrInternal        = errors.New("internal error")
	ErrTooLarge        = errors.New("payload too large")
	ErrUnsupportedType = errors.New("unsupported type")
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`

	kind  error
	cause error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is/As.
func (e *APIError) Unwrap() []error {
	if e == nil {
		return nil
	}

	out := make([]error, 0, 2)
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.cause != nil {
		out = append(out, e.cause)
	}

	return out
}

func InvalidInput(message string, details string) *APIError {
	return &APIError{Code: "INVALID_INPUT", Message: message, Details: details, HTTPStatus: http.StatusBadRequest, kind: ErrInvalidInput}
}

func InvalidPath(message string, details string) *APIError {
	return &APIError{Code: "INVALID_PATH", Message: message, Details: details, HTTPStatus: http.StatusBadRequest, kind: ErrInvalidPath}
}

func NotFound(message string, details string) *APIError {
	return &APIError{Code: "NOT_FOUND", Message: message, Details: details, HTTPStatus: http.StatusNotFound, kind: ErrNotFound}
}

func NotADirectory(message string, details string) *APIError {
	return &APIError{Code: "NOT_A_DIRECTORY", Message: message, Details: details, HTTPStatus: http.StatusBadRequest, kind: ErrNotADirectory}
}

func Conflict(message string, details string) *APIError {
	return &APIError{Code: "CONFLICT", Message: message, Details: details, HTTPStatus: http.StatusConflict, kind: ErrConflict}
}

func TooLarge(message string, details string) *APIError {
	return &APIError{Code: "PAYLOAD_TOO_LARGE", Message: message, Details: details, HTTPStatus: http.StatusRequestEntityTooLarge, kind: ErrTooLarge}
}

func UnsupportedType(message string, details string) *APIError {
	return &APIError{Code: "UNSUPPORTED_TYPE", Message: message, Details: details, HTTPStatus: http.StatusUnsupportedMediaType, kind: ErrUnsupportedType}
}

// AccessDenied never carries the filesystem path of the cause in Details.
func AccessDenied(cause error) *APIError {
	return &APIError{Code: "ACCESS_DENIED", Message: "permission denied", HTTPStatus: http.StatusForbidden, kind: ErrAccessDenied, cause: cause}
}

// Internal hides cause from clients; it stays reachable for logging via errors.Unwrap.
func Internal(cause error) *APIError {
	return &APIError{Code: "INTERNAL_ERROR", Message: "unexpected server error", HTTPStatus: http.StatusInternalServerError, kind: ErrInternal, cause: cause}
}

// Cause returns the wrapped low-level error, if any.
func (e *APIError) Cause() error {
	if e == nil {
		return nil
	}
	return e.cause
}
