package ranking

import (
	"github.com/helixir/paper-ranking-service/internal/domain"
)

// InvalidInputError reports a dataset that cannot be ranked.
type InvalidInputError struct {
	Reason string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	return "invalid ranking input: " + e.Reason
}

// Unwrap returns domain.ErrInvalidInput for use with errors.Is.
func (e *InvalidInputError) Unwrap() error {
	return domain.ErrInvalidInput
}

func newInvalidInputError(reason string) *InvalidInputError {
	return &InvalidInputError{Reason: reason}
}
