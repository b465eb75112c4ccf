// Package errors provides the error kinds reported by the inventory store and service.
package errors

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateSKU    = errors.New("a product with this SKU already exists")
	ErrValidation      = errors.New("validation failed")
	ErrPersistence     = errors.New("failed to persist inventory")
)
