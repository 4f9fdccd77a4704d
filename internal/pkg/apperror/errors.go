// internal/pkg/apperror/errors.go
package apperror

import (
	"errors"
	"fmt"
)

// Error kinds shared by every domain service. Match them with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrVariantRequired    = errors.New("variant required")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrConflict           = errors.New("concurrent modification")
	ErrDuplicate          = errors.New("duplicate record")
	ErrTransactionAborted = errors.New("transaction aborted")
	ErrUnauthorized       = errors.New("unauthorized")
)

// NotFoundError names the missing entity
type NotFoundError struct {
	Entity string
	ID     any
	Reason string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %v %s", e.Entity, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError
func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// Unavailable reports an entity that exists but cannot be sold
func Unavailable(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id, Reason: "is not available"}
}

// InsufficientStockError identifies the line that could not be satisfied
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	VariantID   uint
	VariantName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}
	if e.VariantName != "" {
		name = fmt.Sprintf("%s (%s)", name, e.VariantName)
	}
	return fmt.Sprintf("insufficient stock for %s, variant %d: available %d, requested %d",
		name, e.VariantID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Details returns the structured fields for API responses
func (e *InsufficientStockError) Details() map[string]any {
	return map[string]any{
		"product_id":   e.ProductID,
		"product_name": e.ProductName,
		"variant_id":   e.VariantID,
		"variant_name": e.VariantName,
		"available":    e.Available,
		"requested":    e.Requested,
	}
}

// Invalid wraps ErrInvalidInput with a message
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// InvalidQuantity wraps ErrInvalidQuantity with the rejected value
func InvalidQuantity(quantity int) error {
	return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
}
