package persistence

import (
	"context"

	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/sechic/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReferenceRepository implements catalog.ReferenceRepository using GORM
type GormReferenceRepository struct {
	db *gorm.DB
}

// NewGormReferenceRepository creates a new GormReferenceRepository
func NewGormReferenceRepository(db *gorm.DB) *GormReferenceRepository {
	return &GormReferenceRepository{db: db}
}

// Tables loads the color, size and supplier code tables of a company
func (r *GormReferenceRepository) Tables(ctx context.Context, companyID string) (*catalog.ReferenceTables, error) {
	db := r.db.WithContext(ctx)

	var colorRows []models.ColorModel
	if err := db.Where("company_id = ?", companyID).Order("code ASC").Find(&colorRows).Error; err != nil {
		return nil, err
	}
	var sizeRows []models.SizeModel
	if err := db.Where("company_id = ?", companyID).Order("code ASC").Find(&sizeRows).Error; err != nil {
		return nil, err
	}
	var supplierRows []models.SupplierCodeModel
	if err := db.Where("company_id = ?", companyID).Order("name ASC").Find(&supplierRows).Error; err != nil {
		return nil, err
	}

	colors := make([]catalog.Color, len(colorRows))
	for i := range colorRows {
		colors[i] = colorRows[i].ToDomain()
	}
	sizes := make([]catalog.Size, len(sizeRows))
	for i := range sizeRows {
		sizes[i] = sizeRows[i].ToDomain()
	}
	suppliers := make([]catalog.SupplierCode, len(supplierRows))
	for i := range supplierRows {
		suppliers[i] = supplierRows[i].ToDomain()
	}

	return catalog.NewReferenceTables(colors, sizes, suppliers), nil
}

// Ensure GormReferenceRepository implements ReferenceRepository
var _ catalog.ReferenceRepository = (*GormReferenceRepository)(nil)
