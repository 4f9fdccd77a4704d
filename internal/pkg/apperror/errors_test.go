package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsufficientStockErrorMatchesKind(t *testing.T) {
	err := fmt.Errorf("checkout: %w", &InsufficientStockError{
		ProductID: 2, ProductName: "Product B", VariantID: 7, VariantName: "Large", Available: 0, Requested: 1,
	})

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrNotFound))

	var stockErr *InsufficientStockError
	assert.True(t, errors.As(err, &stockErr))
	assert.Equal(t, uint(7), stockErr.VariantID)
	assert.Contains(t, err.Error(), "Product B (Large)")
	assert.Contains(t, err.Error(), "available 0, requested 1")
}

func TestNotFoundErrors(t *testing.T) {
	assert.True(t, errors.Is(NotFound("order", 3), ErrNotFound))
	assert.Equal(t, "order 3 not found", NotFound("order", 3).Error())
	assert.Equal(t, "product 9 is not available", Unavailable("product", 9).Error())
}

func TestWrappedKinds(t *testing.T) {
	assert.True(t, errors.Is(Invalid("bad %s", "thing"), ErrInvalidInput))
	assert.True(t, errors.Is(InvalidQuantity(-1), ErrInvalidQuantity))
}
