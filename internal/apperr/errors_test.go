package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFound(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("customer", int64(7)))

	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.Contains(t, err.Error(), "customer with id 7 not found")
}

func TestValidationUnwrap(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := WrapValidation(cause, "email already taken")

	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "email already taken", err.Error())
}
