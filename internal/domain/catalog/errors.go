package catalog

import (
	"fmt"

	"github.com/sechic/backend/internal/domain/shared"
)

// Validation error codes raised by batch mutations
const (
	ErrCodeIndexOutOfRange = "INDEX_OUT_OF_RANGE"
	ErrCodeInvalidPrefix   = "INVALID_PREFIX"
	ErrCodeRequiredField   = "REQUIRED_FIELD"
)

// ErrInvalidPrefix is returned when a barcode prefix is not exactly two digits
var ErrInvalidPrefix = shared.NewFieldError(ErrCodeInvalidPrefix, "prefix", "Barcode prefix must contain exactly 2 digits")

func productIndexError(index, count int) *shared.DomainError {
	return shared.NewFieldError(ErrCodeIndexOutOfRange, "product_index",
		fmt.Sprintf("Product index %d out of range (batch has %d products)", index, count))
}

func variantIndexError(index, count int) *shared.DomainError {
	return shared.NewFieldError(ErrCodeIndexOutOfRange, "variant_index",
		fmt.Sprintf("Variant index %d out of range (product has %d variants)", index, count))
}

func requiredFieldError(field string) *shared.DomainError {
	return shared.NewFieldError(ErrCodeRequiredField, field, fmt.Sprintf("%s is required", field))
}

// ErrBatchNotFound is returned when a batch id is unknown or expired
var ErrBatchNotFound = shared.NewDomainError("BATCH_NOT_FOUND", "Batch not found or expired")

// ErrBatchConflict is returned when a batch was saved by someone else since it was loaded
var ErrBatchConflict = shared.NewDomainError("BATCH_CONFLICT", "Batch was modified concurrently, reload and retry")
