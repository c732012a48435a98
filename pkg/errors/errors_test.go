package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentityByCode(t *testing.T) {
	clone := Clone(ErrInvalidState, "request already completed")
	assert.Equal(t, "request already completed", clone.Message)
	assert.True(t, errors.Is(clone, ErrInvalidState))
	assert.False(t, errors.Is(clone, ErrInvalidTransition))
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	appErr := FromError(fmt.Errorf("pq: connection refused"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Message, appErr.Message)
}

func TestFromErrorUnwrapsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("advance: %w", Clone(ErrForbidden, ""))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrForbidden.Code, appErr.Code)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}
