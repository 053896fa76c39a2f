package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	t.Run("Message only", func(t *testing.T) {
		err := New(KindMissingToken, "missing token: %s", "grading in edX will not be possible")
		assert.Equal(t, "missing token: grading in edX will not be possible", err.Error())
	})

	t.Run("Message with cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(KindStoreUnavailable, cause, "could not store launch")
		assert.Equal(t, "could not store launch: connection refused", err.Error())
		assert.ErrorIs(t, err, cause)
	})
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid token", err: New(KindInvalidToken, "x"), want: http.StatusNotFound},
		{name: "missing token", err: New(KindMissingToken, "x"), want: http.StatusBadRequest},
		{name: "unauthorized", err: New(KindUnauthorized, "x"), want: http.StatusUnauthorized},
		{name: "store", err: Wrap(KindStoreUnavailable, errors.New("io"), "x"), want: http.StatusInternalServerError},
		{name: "explicit code", err: New(KindDispatchFailed, "x").WithCode(http.StatusServiceUnavailable), want: http.StatusServiceUnavailable},
		{name: "unclassified", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), New(KindUnknownUser, "no such user"))
	assert.Equal(t, KindUnknownUser, KindOf(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.True(t, Is(wrapped, KindUnknownUser))
	assert.False(t, Is(wrapped, KindUnknownAssignment))
}

func TestBatchError(t *testing.T) {
	t.Run("Nil when no failures", func(t *testing.T) {
		assert.NoError(t, NewBatchError("grading", nil))
		assert.NoError(t, NewBatchError("grading", map[string]error{}))
	})

	t.Run("Most severe status wins", func(t *testing.T) {
		err := NewBatchError("grading", map[string]error{
			"u2": New(KindUnknownSubAssignment, "q2 was never submitted"),
			"u1": Wrap(KindStoreUnavailable, errors.New("disk full"), "could not save"),
		})
		require.Error(t, err)

		assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
		assert.Equal(t, KindStoreUnavailable, KindOf(err))
		assert.True(t, Is(err, KindUnknownSubAssignment))

		var batchErr *BatchError
		require.ErrorAs(t, err, &batchErr)
		assert.Equal(t, []string{"u1", "u2"}, batchErr.Users())
		assert.Contains(t, err.Error(), "grading failed for 2 user(s)")
		assert.Contains(t, err.Error(), "u2: q2 was never submitted")
	})
}
