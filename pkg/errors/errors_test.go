package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorIncludesCause(t *testing.T) {
	err := NewInternalError("failed to list venues", fmt.Errorf("connection refused"))
	assert.Equal(t, "INTERNAL: failed to list venues: connection refused", err.Error())

	plain := NewInvalidArgumentError("coordinates are required")
	assert.Equal(t, "INVALID_ARGUMENT: coordinates are required", plain.Error())
}

func TestIsType_FollowsWrapping(t *testing.T) {
	base := NewInvalidArgumentError("coordinates are required")
	wrapped := fmt.Errorf("search near: %w", base)

	assert.True(t, IsType(wrapped, ErrorTypeInvalidArgument))
	assert.False(t, IsType(wrapped, ErrorTypeNotFound))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeInternal))
}
