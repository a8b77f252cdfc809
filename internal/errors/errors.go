// Package errors provides structured error types for the purge job.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes of a run.
var (
	ErrMissingCredentials = errors.New("PORT_CLIENT_ID and PORT_CLIENT_SECRET must be set")
	ErrAuthRejected       = errors.New("authentication rejected")
	ErrMalformedResponse  = errors.New("unexpected response format")
	ErrInvalidRequest     = errors.New("invalid request format")
)

// APIError represents a failed call to the Port API. Endpoint is the full
// request URL.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("port API error (%s, status %d): %v: %s", e.Endpoint, e.StatusCode, e.Err, e.Body)
	}
	return fmt.Sprintf("port API error (%s, status %d): %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates an APIError from a response.
func NewAPIError(endpoint string, statusCode int, body string) *APIError {
	return &APIError{Endpoint: endpoint, StatusCode: statusCode, Body: body}
}

// WrapAPIError creates an APIError that unwraps to sentinel.
func WrapAPIError(sentinel error, endpoint string, statusCode int, body string) *APIError {
	return &APIError{Endpoint: endpoint, StatusCode: statusCode, Body: body, Err: sentinel}
}
