package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndWrap(t *testing.T) {
	t.Run("new carries code and message", func(t *testing.T) {
		err := New(CodeNotFound, "entity not found")
		require.Error(t, err)
		assert.True(t, HasCode(err, CodeNotFound))
		assert.Equal(t, "not_found: entity not found", err.Error())
	})

	t.Run("wrap preserves cause for errors.Is", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeUnavailable, "ledger unreachable")
		require.Error(t, err)
		assert.True(t, HasCode(err, CodeUnavailable))
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("wrap of nil is nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "should vanish"))
		assert.NoError(t, Wrapf(nil, CodeInternal, "should %s", "vanish"))
	})

	t.Run("code survives further wrapping", func(t *testing.T) {
		err := New(CodeDenied, "not permitted")
		outer := fmt.Errorf("transition status: %w", err)
		assert.True(t, HasCode(outer, CodeDenied))
		assert.Equal(t, CodeDenied, CodeOf(outer))
	})
}

func TestCodeOf(t *testing.T) {
	t.Run("uncoded errors map to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	})

	t.Run("innermost coded error wins through plain wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeConflict, "duplicate record"))
		assert.Equal(t, CodeConflict, CodeOf(err))
	})
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeBadRequest, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeDenied, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeInvalidTransition, http.StatusConflict},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeInternal, http.StatusInternalServerError},
		{CodeInvariantViolation, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeUnavailable, "store down")))
	assert.True(t, IsRetryable(New(CodeTimeout, "deadline exceeded")))
	assert.False(t, IsRetryable(New(CodeValidation, "empty title")))
	assert.False(t, IsRetryable(New(CodeDenied, "not permitted")))
	assert.False(t, IsRetryable(New(CodeNotFound, "gone")))
	assert.False(t, IsRetryable(errors.New("uncoded")))
}

func TestOpaque(t *testing.T) {
	assert.True(t, CodeInternal.Opaque())
	assert.True(t, CodeInvariantViolation.Opaque())
	assert.False(t, CodeValidation.Opaque())
	assert.False(t, CodeDenied.Opaque())
}
