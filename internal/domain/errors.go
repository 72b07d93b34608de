package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput marks bad caller input: a malformed dataset, a
	// missing grouping field, an empty search.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a missing paper, image or workflow.
	ErrNotFound = errors.New("not found")

	// ErrNotConfigured marks an optional provider without credentials.
	ErrNotConfigured = errors.New("not configured")

	// ErrRateLimited, ErrUnauthorized and ErrServiceUnavailable classify
	// upstream HTTP failures (PubMed, the oracle, image providers).
	ErrRateLimited        = errors.New("rate limited")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// ValidationError names the offending request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap lets errors.Is match ErrNotFound.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// UpstreamError is a non-success answer from a remote service. Unwrap
// classifies it by status: 429 is ErrRateLimited, 401 and 403 are
// ErrUnauthorized, 5xx is ErrServiceUnavailable.
type UpstreamError struct {
	Service string
	Status  int
	// Body is a prefix of the response body, for logs only.
	Body string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: upstream status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.Service, e.Status, e.Body)
}

// Unwrap returns the sentinel for the status, or nil.
func (e *UpstreamError) Unwrap() error {
	switch {
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status >= 500:
		return ErrServiceUnavailable
	default:
		return nil
	}
}

// NewUpstreamError creates an UpstreamError. Body is cut to 512 bytes.
func NewUpstreamError(service string, status int, body string) *UpstreamError {
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &UpstreamError{Service: service, Status: status, Body: body}
}
