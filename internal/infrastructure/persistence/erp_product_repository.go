package persistence

import (
	"context"
	"errors"

	"github.com/sechic/backend/internal/domain/integration"
	"github.com/sechic/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// deleteChunkSize bounds the id list of one DELETE statement
const deleteChunkSize = 1000

// GormERPProductRepository implements integration.ERPCatalogMirror using GORM
type GormERPProductRepository struct {
	db *gorm.DB
}

// NewGormERPProductRepository creates a new GormERPProductRepository
func NewGormERPProductRepository(db *gorm.DB) *GormERPProductRepository {
	return &GormERPProductRepository{db: db}
}

// All returns every mirrored product ordered by remote id
func (r *GormERPProductRepository) All(ctx context.Context) ([]integration.ERPProduct, error) {
	var rows []models.ERPProductModel
	if err := r.db.WithContext(ctx).Order("product_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	products := make([]integration.ERPProduct, len(rows))
	for i := range rows {
		products[i] = rows[i].ToDomain()
	}
	return products, nil
}

// Upsert stores a product keyed by its remote id and reports whether it was newly added
func (r *GormERPProductRepository) Upsert(ctx context.Context, product integration.ERPProduct) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ERPProductModel
		err := tx.First(&existing, "product_id = ?", product.ProductID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			var model models.ERPProductModel
			model.FromDomain(product)
			created = true
			return tx.Create(&model).Error
		case err != nil:
			return err
		}

		existing.FromDomain(product)
		return tx.Save(&existing).Error
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// DeleteMissing removes rows whose id is not in keep; an empty keep removes everything
func (r *GormERPProductRepository) DeleteMissing(ctx context.Context, keep []int64) (int64, error) {
	db := r.db.WithContext(ctx)
	if len(keep) == 0 {
		result := db.Where("1 = 1").Delete(&models.ERPProductModel{})
		return result.RowsAffected, result.Error
	}

	var stored []int64
	if err := db.Model(&models.ERPProductModel{}).Pluck("product_id", &stored).Error; err != nil {
		return 0, err
	}

	kept := make(map[int64]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	obsolete := make([]int64, 0)
	for _, id := range stored {
		if _, ok := kept[id]; !ok {
			obsolete = append(obsolete, id)
		}
	}

	var deleted int64
	for start := 0; start < len(obsolete); start += deleteChunkSize {
		end := min(start+deleteChunkSize, len(obsolete))
		result := db.Where("product_id IN ?", obsolete[start:end]).Delete(&models.ERPProductModel{})
		if result.Error != nil {
			return deleted, result.Error
		}
		deleted += result.RowsAffected
	}
	return deleted, nil
}

// Ensure GormERPProductRepository implements ERPCatalogMirror
var _ integration.ERPCatalogMirror = (*GormERPProductRepository)(nil)
