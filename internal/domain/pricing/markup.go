// Package pricing holds the per-supplier markup history and the engine that
// derives sale prices from supplier cost.
package pricing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sechic/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Markup error codes
const (
	ErrCodeInvalidMarkup  = "INVALID_MARKUP"
	ErrCodeMarkupNotFound = "MARKUP_NOT_FOUND"
)

// MarkupScale is the number of decimal places kept for a stored markup
const MarkupScale = 4

// maxMarkup is the first value the markup column cannot hold
var maxMarkup = decimal.New(1, 6)

var (
	// ErrInvalidMarkup is returned for non-positive multipliers
	ErrInvalidMarkup = shared.NewFieldError(ErrCodeInvalidMarkup, "markup", "Markup must be greater than zero")
	// ErrMarkupPrecision is returned for multipliers the history cannot store exactly
	ErrMarkupPrecision = shared.NewFieldError(ErrCodeInvalidMarkup, "markup",
		"Markup must have at most 4 decimal places and be lower than 1000000")
	// ErrSupplierRequired is returned when a markup names no supplier
	ErrSupplierRequired = shared.NewFieldError("REQUIRED_FIELD", "supplier", "supplier is required")
	// ErrMarkupNotFound is returned when a supplier has no markup history
	ErrMarkupNotFound = shared.NewDomainError(ErrCodeMarkupNotFound, "No markup registered for supplier")
)

// DefaultMarkup is used for suppliers without any markup history
var DefaultMarkup = decimal.NewFromInt(1)

// SupplierMarkup is one entry in a supplier's markup history
type SupplierMarkup struct {
	ID        uuid.UUID       `json:"id"`
	Supplier  string          `json:"supplier"`
	Markup    decimal.Decimal `json:"markup"`
	CreatedAt time.Time       `json:"created_at"`
	CreatedBy string          `json:"created_by"`
	IsActive  bool            `json:"is_active"`
}

// NewSupplierMarkup creates an active history entry
func NewSupplierMarkup(supplier string, markup decimal.Decimal, createdBy string) (*SupplierMarkup, error) {
	if err := ValidateMarkup(supplier, markup); err != nil {
		return nil, err
	}
	return &SupplierMarkup{
		ID:        uuid.New(),
		Supplier:  strings.TrimSpace(supplier),
		Markup:    markup,
		CreatedAt: time.Now(),
		CreatedBy: createdBy,
		IsActive:  true,
	}, nil
}

// ValidateMultiplier checks that markup is positive and survives storage unchanged
func ValidateMultiplier(markup decimal.Decimal) error {
	if !markup.IsPositive() {
		return ErrInvalidMarkup
	}
	if !markup.Equal(markup.Round(MarkupScale)) || markup.GreaterThanOrEqual(maxMarkup) {
		return ErrMarkupPrecision
	}
	return nil
}

// ValidateMarkup checks the supplier name and the multiplier
func ValidateMarkup(supplier string, markup decimal.Decimal) error {
	if strings.TrimSpace(supplier) == "" {
		return ErrSupplierRequired
	}
	return ValidateMultiplier(markup)
}

// MarkupRepository stores markup history.
// Implementations guarantee at most one active row per supplier: every write that
// activates a row deactivates its siblings atomically.
type MarkupRepository interface {
	// GetActive returns the active markup, or the most recent one when none is
	// active. ErrMarkupNotFound is returned for suppliers without history.
	GetActive(ctx context.Context, supplier string) (*SupplierMarkup, error)

	// SetActive activates an existing history row and deactivates its siblings
	SetActive(ctx context.Context, supplier string, markupID uuid.UUID) error

	// Activate reactivates the row holding the same value, or appends a new active row
	Activate(ctx context.Context, supplier string, markup decimal.Decimal, createdBy string) (*SupplierMarkup, error)

	// History lists the supplier's rows, newest first
	History(ctx context.Context, supplier string) ([]SupplierMarkup, error)
}

// CurrentMarkup returns the multiplier to apply for a supplier, falling back
// to DefaultMarkup when the supplier has no history
func CurrentMarkup(ctx context.Context, repo MarkupRepository, supplier string) (decimal.Decimal, error) {
	if strings.TrimSpace(supplier) == "" {
		return DefaultMarkup, nil
	}
	m, err := repo.GetActive(ctx, supplier)
	if err != nil {
		if errors.Is(err, ErrMarkupNotFound) {
			return DefaultMarkup, nil
		}
		return decimal.Zero, err
	}
	return m.Markup, nil
}
