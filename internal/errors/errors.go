// Package errors defines Lucy's typed error taxonomy and the gin
// middleware that maps it onto HTTP responses. Handlers never write
// raw status codes themselves; they attach an *AppError via c.Error
// and let Middleware() render it.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an AppError into one of a small set of buckets that
// every caller (HTTP handler, task runtime, CLI) maps consistently.
type Code string

const (
	CodeInvalidInput        Code = "invalid_input"
	CodeNotFound            Code = "not_found"
	CodeConflict            Code = "conflict"
	CodeExternalUnavailable Code = "external_unavailable"
	CodeRateLimited         Code = "rate_limited"
	CodeInternal            Code = "internal"
)

// httpStatus is the fixed Code -> HTTP status mapping.
var httpStatus = map[Code]int{
	CodeInvalidInput:        http.StatusBadRequest,
	CodeNotFound:            http.StatusNotFound,
	CodeConflict:            http.StatusConflict,
	CodeExternalUnavailable: http.StatusServiceUnavailable,
	CodeRateLimited:         http.StatusTooManyRequests,
	CodeInternal:            http.StatusInternalServerError,
}

// AppError is the single error type every layer of Lucy returns
// across its own boundaries (handler, pipeline stage, task handler).
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// Status returns the HTTP status code this error renders as.
func (e *AppError) Status() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func newErr(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

func NewBadRequestError(msg string) *AppError        { return newErr(CodeInvalidInput, msg) }
func NewNotFoundError(msg string) *AppError           { return newErr(CodeNotFound, msg) }
func NewConflictError(msg string) *AppError           { return newErr(CodeConflict, msg) }
func NewRateLimitedError(msg string) *AppError        { return newErr(CodeRateLimited, msg) }
func NewExternalUnavailableError(msg string) *AppError { return newErr(CodeExternalUnavailable, msg) }
func NewInternalServerError(msg string) *AppError     { return newErr(CodeInternal, msg) }

// Wrap annotates an existing error with a Code without losing the
// original error for %w-style unwrapping.
func Wrap(code Code, msg string, cause error) *AppError {
	return &AppError{Code: code, Message: msg, cause: cause}
}

// As reports whether err (or anything it wraps) is an *AppError, and
// returns it.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// FromError coerces any error into an *AppError, defaulting to
// CodeInternal for errors that weren't raised as one.
func FromError(err error) *AppError {
	if ae, ok := As(err); ok {
		return ae
	}
	return Wrap(CodeInternal, "internal error", err)
}
