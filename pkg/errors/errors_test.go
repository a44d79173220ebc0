package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestCloneMatchesSentinel(t *testing.T) {
	cloned := Clone(ErrNotFound, "inquiry not found")
	wrapped := fmt.Errorf("load: %w", cloned)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, "inquiry not found", FromError(wrapped).Message)
}

func TestWrapAsKeepsRetryable(t *testing.T) {
	err := WrapAs(errors.New("dial tcp: refused"), ErrStoreUnavailable, "failed to count login prefix")
	assert.True(t, IsRetryable(err))
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.False(t, IsRetryable(Clone(ErrNotFound, "")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
