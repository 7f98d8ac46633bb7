package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypes_Unwrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{
			name:     "missing field",
			err:      NewMissingFieldError("title"),
			sentinel: ErrMissingField,
			message:  `record is missing required field "title"`,
		},
		{
			name:     "invalid credential",
			err:      NewInvalidCredentialError(401, "Unauthorized"),
			sentinel: ErrInvalidCredential,
			message:  "search API rejected credentials (status 401): Unauthorized",
		},
		{
			name:     "empty input",
			err:      NewEmptyInputError("no abstracts"),
			sentinel: ErrEmptyInput,
			message:  "nothing to summarize: no abstracts",
		},
		{
			name:     "validation",
			err:      NewValidationError("MaxResults", "must be at most 100"),
			sentinel: ErrInvalidInput,
			message:  "validation error: MaxResults: must be at most 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			assert.True(t, errors.Is(tt.err, tt.sentinel))

			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
		})
	}
}

func TestTransportError(t *testing.T) {
	t.Run("matches sentinel and cause", func(t *testing.T) {
		err := NewTransportError("http://example.com", 0, context.DeadlineExceeded)

		assert.True(t, errors.Is(err, ErrTransport))
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Contains(t, err.Error(), "http://example.com")
	})

	t.Run("status only", func(t *testing.T) {
		err := NewTransportError("http://example.com/x", 503, nil)

		assert.True(t, errors.Is(err, ErrTransport))
		assert.Equal(t, "request to http://example.com/x failed with status 503", err.Error())
	})

	t.Run("status and cause", func(t *testing.T) {
		err := NewTransportError("http://example.com", 500, errors.New("boom"))
		assert.Equal(t, "request to http://example.com failed (status 500): boom", err.Error())
	})

	t.Run("empty input without reason", func(t *testing.T) {
		assert.Equal(t, "nothing to summarize", NewEmptyInputError("").Error())
	})
}
