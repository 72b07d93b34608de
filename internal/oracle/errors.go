package oracle

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is an error response returned by an oracle provider.
type APIError struct {
	// Provider is the provider name ("dashscope", "openai", "gemini").
	Provider string
	// StatusCode is the HTTP status code, or 0 when no response was received.
	StatusCode int
	Message    string
	Type       string
	Code       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: API error (status %d, type %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsTransient reports whether a retry could succeed: rate limiting, server
// errors, and missing responses.
func (e *APIError) IsTransient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// ErrEmptyAnswer is returned when a provider responds without any text.
var ErrEmptyAnswer = errors.New("oracle: empty answer")

func isTransientError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsTransient()
	}
	return false
}
