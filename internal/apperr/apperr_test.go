package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := Validation("title", "must be at most %d characters", 100)

	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "title: must be at most 100 characters", err.Error())

	wrapped := fmt.Errorf("create habit: %w", err)
	var ve *ValidationError
	assert.True(t, errors.As(wrapped, &ve))
	assert.Equal(t, "title", ve.Field)
}

func TestSentinelWrappers(t *testing.T) {
	assert.True(t, errors.Is(NotFound("habit"), ErrNotFound))
	assert.Equal(t, "habit not found", NotFound("habit").Error())
	assert.True(t, errors.Is(Conflict("group is full"), ErrConflict))
	assert.True(t, errors.Is(Forbidden("not a member"), ErrForbidden))
	assert.False(t, errors.Is(Forbidden("not a member"), ErrNotFound))
}
