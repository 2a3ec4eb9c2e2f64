package models

import (
	"time"

	"github.com/sechic/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// ERPProductModel is the local mirror row of one ERP catalog product
type ERPProductModel struct {
	ProductID  int64           `gorm:"primaryKey;autoIncrement:false"`
	CategoryID int64           `gorm:"not null;index:idx_erp_products_category"`
	Name       string          `gorm:"type:varchar(255);not null"`
	Reference  string          `gorm:"type:varchar(100);not null;index:idx_erp_products_reference"`
	EAN        string          `gorm:"column:ean;type:varchar(50);index:idx_erp_products_ean"`
	Price      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ERPProductModel) TableName() string {
	return "erp_products"
}

// ToDomain converts the persistence model to a domain ERPProduct
func (m *ERPProductModel) ToDomain() integration.ERPProduct {
	return integration.ERPProduct{
		ProductID:  m.ProductID,
		CategoryID: m.CategoryID,
		Name:       m.Name,
		Reference:  m.Reference,
		EAN:        m.EAN,
		Price:      m.Price,
	}
}

// FromDomain populates the persistence model from a domain ERPProduct
func (m *ERPProductModel) FromDomain(p integration.ERPProduct) {
	m.ProductID = p.ProductID
	m.CategoryID = p.CategoryID
	m.Name = p.Name
	m.Reference = p.Reference
	m.EAN = p.EAN
	m.Price = p.Price
}
