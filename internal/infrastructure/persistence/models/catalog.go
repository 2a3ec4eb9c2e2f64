package models

import "github.com/sechic/backend/internal/domain/catalog"

// ColorModel maps a company color name to its barcode color code
type ColorModel struct {
	ID        uint   `gorm:"primaryKey"`
	CompanyID string `gorm:"type:varchar(50);not null;uniqueIndex:idx_colors_company_code,priority:1"`
	Code      string `gorm:"type:varchar(3);not null;uniqueIndex:idx_colors_company_code,priority:2"`
	Name      string `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (ColorModel) TableName() string {
	return "colors"
}

// ToDomain converts the persistence model to a domain Color
func (m *ColorModel) ToDomain() catalog.Color {
	return catalog.Color{Code: m.Code, Name: m.Name}
}

// SizeModel maps a company display size to its barcode size code
type SizeModel struct {
	ID        uint   `gorm:"primaryKey"`
	CompanyID string `gorm:"type:varchar(50);not null;uniqueIndex:idx_sizes_company_value,priority:1"`
	Value     string `gorm:"type:varchar(50);not null;uniqueIndex:idx_sizes_company_value,priority:2"`
	Code      string `gorm:"type:varchar(3);not null"`
}

// TableName returns the table name for GORM
func (SizeModel) TableName() string {
	return "sizes"
}

// ToDomain converts the persistence model to a domain Size
func (m *SizeModel) ToDomain() catalog.Size {
	return catalog.Size{Value: m.Value, Code: m.Code}
}

// SupplierCodeModel maps a supplier name to its barcode supplier code
type SupplierCodeModel struct {
	ID        uint   `gorm:"primaryKey"`
	CompanyID string `gorm:"type:varchar(50);not null;uniqueIndex:idx_supplier_codes_company_name,priority:1"`
	Name      string `gorm:"type:varchar(255);not null;uniqueIndex:idx_supplier_codes_company_name,priority:2"`
	Code      string `gorm:"type:varchar(2);not null"`
}

// TableName returns the table name for GORM
func (SupplierCodeModel) TableName() string {
	return "supplier_codes"
}

// ToDomain converts the persistence model to a domain SupplierCode
func (m *SupplierCodeModel) ToDomain() catalog.SupplierCode {
	return catalog.SupplierCode{Name: m.Name, Code: m.Code}
}
