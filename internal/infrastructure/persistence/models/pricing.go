package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sechic/backend/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

// SupplierMarkupModel is one row of a supplier's markup history
type SupplierMarkupModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	Supplier  string          `gorm:"type:varchar(255);not null;index:idx_supplier_markups_supplier"`
	Markup    decimal.Decimal `gorm:"type:numeric(10,4);not null"`
	IsActive  bool            `gorm:"not null;default:false"`
	CreatedBy string          `gorm:"type:varchar(100)"`
	CreatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SupplierMarkupModel) TableName() string {
	return "supplier_markups"
}

// ToDomain converts the persistence model to a domain SupplierMarkup
func (m *SupplierMarkupModel) ToDomain() *pricing.SupplierMarkup {
	return &pricing.SupplierMarkup{
		ID:        m.ID,
		Supplier:  m.Supplier,
		Markup:    m.Markup,
		CreatedAt: m.CreatedAt,
		CreatedBy: m.CreatedBy,
		IsActive:  m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain SupplierMarkup
func (m *SupplierMarkupModel) FromDomain(s *pricing.SupplierMarkup) {
	m.ID = s.ID
	m.Supplier = s.Supplier
	m.Markup = s.Markup
	m.IsActive = s.IsActive
	m.CreatedBy = s.CreatedBy
	m.CreatedAt = s.CreatedAt
}
