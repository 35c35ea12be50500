// Package errors provides structured error types for the GeoAI console.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout      = errors.New("operation timed out")
	ErrUnauthorized = errors.New("not authenticated")
	ErrForbidden    = errors.New("access denied")
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("service unavailable")
	ErrTaskFailed   = errors.New("background task failed")
	ErrStale        = errors.New("response superseded by a newer request")
)

// APIError represents an error response from the GeoAI REST API.
// Code and Message come from the server's {"detail": {"code", "message"}} body.
type APIError struct {
	Service    string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, msg, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, msg)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error. Well-known status codes are linked to
// the matching sentinel so errors.Is works on them.
func NewAPIError(service string, statusCode int, code, message string) *APIError {
	e := &APIError{Service: service, StatusCode: statusCode, Code: code, Message: message}
	switch statusCode {
	case http.StatusUnauthorized:
		e.Err = ErrUnauthorized
	case http.StatusForbidden:
		e.Err = ErrForbidden
	case http.StatusNotFound:
		e.Err = ErrNotFound
	case http.StatusServiceUnavailable:
		e.Err = ErrUnavailable
	}
	return e
}

// NewValidationError reports input rejected before it reached the server.
// code uses the server's error code vocabulary so it renders the same way.
func NewValidationError(code string) *APIError {
	return &APIError{
		Service:    "geoai",
		StatusCode: http.StatusUnprocessableEntity,
		Code:       code,
		Err:        ErrInvalidInput,
	}
}

// CodeOf returns the server error code carried by err, or "".
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// MessageOf returns the server-supplied message carried by err, or "".
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)
}
