package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesSentinelByCode(t *testing.T) {
	err := New(ErrInsufficientStock, "product %d: requested %d, available %d", 7, 4, 2)

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrDuplicateLineItem))
	assert.Equal(t, Conflict, KindOf(err))
	assert.Contains(t, err.Error(), "requested 4")
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := New(ErrInvalidOrderState, "order 1 is not pending")
	wrapped := fmt.Errorf("update detail: %w", base)

	assert.Equal(t, InvalidState, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, InvalidState))
	assert.True(t, errors.Is(wrapped, ErrInvalidOrderState))
}

func TestKindOfUnknownErrorIsInternal(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, Internal))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("row missing")
	err := Wrap(ErrNotFound, cause, "order %d", 3)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "order 3: row missing", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict))
	assert.Equal(t, http.StatusConflict, HTTPStatus(InvalidState))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Internal))
}
