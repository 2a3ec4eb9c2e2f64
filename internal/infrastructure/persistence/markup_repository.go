package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sechic/backend/internal/domain/pricing"
	"github.com/sechic/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormMarkupRepository implements pricing.MarkupRepository using GORM
type GormMarkupRepository struct {
	db *gorm.DB
}

// NewGormMarkupRepository creates a new GormMarkupRepository
func NewGormMarkupRepository(db *gorm.DB) *GormMarkupRepository {
	return &GormMarkupRepository{db: db}
}

// supplierScope matches rows of a supplier regardless of case
func supplierScope(supplier string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(supplier) = LOWER(?)", strings.TrimSpace(supplier))
	}
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// GetActive returns the active markup, falling back to the most recent row
func (r *GormMarkupRepository) GetActive(ctx context.Context, supplier string) (*pricing.SupplierMarkup, error) {
	var model models.SupplierMarkupModel
	err := r.db.WithContext(ctx).
		Scopes(supplierScope(supplier)).
		Order("is_active DESC").
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pricing.ErrMarkupNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// History lists the supplier's rows, newest first
func (r *GormMarkupRepository) History(ctx context.Context, supplier string) ([]pricing.SupplierMarkup, error) {
	var rows []models.SupplierMarkupModel
	if err := r.db.WithContext(ctx).
		Scopes(supplierScope(supplier)).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	history := make([]pricing.SupplierMarkup, len(rows))
	for i := range rows {
		history[i] = *rows[i].ToDomain()
	}
	return history, nil
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// SetActive activates an existing history row and deactivates its siblings
func (r *GormMarkupRepository) SetActive(ctx context.Context, supplier string, markupID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.SupplierMarkupModel
		if err := tx.Scopes(supplierScope(supplier)).First(&model, "id = ?", markupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pricing.ErrMarkupNotFound
			}
			return err
		}
		if err := deactivateSiblings(tx, supplier); err != nil {
			return err
		}
		return tx.Model(&models.SupplierMarkupModel{}).
			Where("id = ?", model.ID).
			Update("is_active", true).Error
	})
}

// Activate reactivates the row holding the same value, or appends a new active row
func (r *GormMarkupRepository) Activate(ctx context.Context, supplier string, markup decimal.Decimal, createdBy string) (*pricing.SupplierMarkup, error) {
	if err := pricing.ValidateMarkup(supplier, markup); err != nil {
		return nil, err
	}

	var activated *pricing.SupplierMarkup
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.SupplierMarkupModel
		if err := tx.Scopes(supplierScope(supplier)).Order("created_at DESC").Find(&rows).Error; err != nil {
			return err
		}
		if err := deactivateSiblings(tx, supplier); err != nil {
			return err
		}

		for i := range rows {
			if rows[i].Markup.Equal(markup) {
				if err := tx.Model(&models.SupplierMarkupModel{}).
					Where("id = ?", rows[i].ID).
					Update("is_active", true).Error; err != nil {
					return err
				}
				rows[i].IsActive = true
				activated = rows[i].ToDomain()
				return nil
			}
		}

		entry, err := pricing.NewSupplierMarkup(supplier, markup, createdBy)
		if err != nil {
			return err
		}
		var model models.SupplierMarkupModel
		model.FromDomain(entry)
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		activated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activated, nil
}

func deactivateSiblings(tx *gorm.DB, supplier string) error {
	return tx.Model(&models.SupplierMarkupModel{}).
		Scopes(supplierScope(supplier)).
		Where("is_active = ?", true).
		Update("is_active", false).Error
}

// Ensure GormMarkupRepository implements MarkupRepository
var _ pricing.MarkupRepository = (*GormMarkupRepository)(nil)
