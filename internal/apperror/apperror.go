// Package apperror provides the application error taxonomy shared by
// services and handlers.  Handlers render an *AppError with its Code;
// anything else is treated as an internal failure.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Type classifies an AppError.
type Type string

const (
	TypeValidation   Type = "validation_error"
	TypeNotFound     Type = "not_found"
	TypeConflict     Type = "conflict"
	TypeUnauthorized Type = "unauthorized"
	TypeForbidden    Type = "forbidden"
	TypeInternal     Type = "internal_error"
	TypeBadRequest   Type = "bad_request"
)

// AppError is an error carrying an HTTP status and optional per-field
// details.
type AppError struct {
	Type    Type     `json:"type"`
	Message string   `json:"message"`
	Code    int      `json:"code"`
	Details []string `json:"details,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// WithCause attaches the underlying error for logging.
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

func newErr(t Type, code int, msg string, details []string) *AppError {
	return &AppError{Type: t, Message: msg, Code: code, Details: details}
}

func NewValidation(msg string, details ...string) *AppError {
	return newErr(TypeValidation, http.StatusBadRequest, msg, details)
}

func NewNotFound(msg string, details ...string) *AppError {
	return newErr(TypeNotFound, http.StatusNotFound, msg, details)
}

func NewConflict(msg string, details ...string) *AppError {
	return newErr(TypeConflict, http.StatusConflict, msg, details)
}

func NewUnauthorized(msg string, details ...string) *AppError {
	return newErr(TypeUnauthorized, http.StatusUnauthorized, msg, details)
}

func NewForbidden(msg string, details ...string) *AppError {
	return newErr(TypeForbidden, http.StatusForbidden, msg, details)
}

func NewInternal(msg string, details ...string) *AppError {
	return newErr(TypeInternal, http.StatusInternalServerError, msg, details)
}

func NewBadRequest(msg string, details ...string) *AppError {
	return newErr(TypeBadRequest, http.StatusBadRequest, msg, details)
}

// Get extracts an AppError from err's chain.
func Get(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func Is(err error, t Type) bool {
	e := Get(err)
	return e != nil && e.Type == t
}

func IsNotFound(err error) bool   { return Is(err, TypeNotFound) }
func IsValidation(err error) bool { return Is(err, TypeValidation) }
func IsConflict(err error) bool   { return Is(err, TypeConflict) }

// IsDuplicateError reports whether err is a MySQL duplicate key error (1062).
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "1062") || strings.Contains(s, "Duplicate entry")
}
