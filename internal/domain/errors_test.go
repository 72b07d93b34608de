package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpstreamError_Classification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{429, ErrRateLimited},
		{401, ErrUnauthorized},
		{403, ErrUnauthorized},
		{500, ErrServiceUnavailable},
		{503, ErrServiceUnavailable},
		{400, nil},
		{404, nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := fmt.Errorf("esearch: %w", NewUpstreamError("pubmed", tt.status, "boom"))

			var up *UpstreamError
			assert.True(t, errors.As(err, &up))
			assert.Equal(t, tt.status, up.Status)
			if tt.want == nil {
				for _, s := range []error{ErrRateLimited, ErrUnauthorized, ErrServiceUnavailable} {
					assert.False(t, errors.Is(err, s))
				}
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpstreamError_Message(t *testing.T) {
	assert.Equal(t, "pubmed: upstream status 502", NewUpstreamError("pubmed", 502, "").Error())
	assert.Equal(t, "oracle: upstream status 400: bad", NewUpstreamError("oracle", 400, "bad").Error())

	long := NewUpstreamError("pubmed", 500, strings.Repeat("x", 2000))
	assert.Len(t, long.Body, 512)
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("image", "Ai_1.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "image not found: Ai_1.jpg", err.Error())
}
