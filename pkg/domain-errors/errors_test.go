package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeNotFound, "client not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeUnauthorized))
	})

	t.Run("matches code through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("load: %w", New(CodeMalformedKey, "bad key"))
		assert.True(t, HasCode(err, CodeMalformedKey))
	})

	t.Run("matches inner code of nested coded errors", func(t *testing.T) {
		inner := New(CodeConflict, "id already allocated")
		err := Wrap(inner, CodeInternal, "failed to register client")
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeConflict))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, Is(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, CodeInternal, "commit failed")
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "commit failed: disk full", err.Error())
	assert.Equal(t, "commit failed", MessageOf(err))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidInput:    http.StatusBadRequest,
		CodeMalformedKey:    http.StatusBadRequest,
		CodeNotFound:        http.StatusNotFound,
		CodeUnauthenticated: http.StatusUnauthorized,
		CodeUnauthorized:    http.StatusForbidden,
		CodeConflict:        http.StatusConflict,
		CodeInternal:        http.StatusInternalServerError,
		Code("unknown"):     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
