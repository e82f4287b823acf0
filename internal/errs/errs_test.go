package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"feira/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		err := errs.NotFound("product", "p-1")
		assert.Equal(t, "product p-1 not found", err.Error())
		assert.ErrorIs(t, err, errs.ErrNotFound)
		assert.NotErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("InsufficientStock", func(t *testing.T) {
		err := errs.InsufficientStock("Tomate", 10, 5)
		assert.Equal(t, "insufficient stock for Tomate: requested 10, available 5", err.Error())
		assert.ErrorIs(t, err, errs.ErrInsufficientStock)
	})

	t.Run("ConcurrentModification is an invalid state", func(t *testing.T) {
		err := errs.ConcurrentModification("order", "o-1")
		assert.ErrorIs(t, err, errs.ErrConcurrentModification)
		assert.ErrorIs(t, err, errs.ErrInvalidState)
	})

	t.Run("Wrap keeps kind and cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := errs.Wrap(errs.ErrConflict, "email already registered", cause)
		assert.ErrorIs(t, err, errs.ErrConflict)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "email already registered (cause: connection reset)", err.Error())
	})

	t.Run("kind survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("create order: %w", errs.Unavailable("Alface"))
		assert.ErrorIs(t, err, errs.ErrUnavailable)
	})
}

func TestValidationFields(t *testing.T) {
	err := errs.Validation("invalid order", "items is required", "deliveryAddress.street is required")
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, []string{"items is required", "deliveryAddress.street is required"}, errs.FieldsOf(err))
	assert.Nil(t, errs.FieldsOf(errors.New("plain")))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.Len(t, errs.FieldsOf(wrapped), 2)
}
