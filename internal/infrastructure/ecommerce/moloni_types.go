package ecommerce

import (
	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/sechic/backend/internal/domain/integration"
)

// Moloni API methods
const (
	moloniMethodCategories = "productCategories/getAll"
	moloniMethodSuppliers  = "suppliers/getAll"
	moloniMethodUnits      = "measurementUnits/getAll"
	moloniMethodTaxes      = "taxes/getAll"
	moloniMethodCount      = "products/count"
	moloniMethodList       = "products/getAll"
	moloniMethodInsert     = "products/insert"
)

// Moloni product property ids, as configured for the company
const (
	moloniPropertyComposition = 1
	moloniPropertyColor       = 2
	moloniPropertySize        = 3
	moloniPropertyGender      = 4
)

const (
	// moloniProductTypeGoods marks a product as physical goods
	moloniProductTypeGoods = "1"
	// moloniStockCategoryGoods is the AT stock category for merchandise
	moloniStockCategoryGoods = "M"
)

// MoloniCategory is an entry of productCategories/getAll
type MoloniCategory struct {
	CategoryID int64              `json:"category_id"`
	Name       catalog.FlexString `json:"name"`
}

// MoloniSupplier is an entry of suppliers/getAll
type MoloniSupplier struct {
	SupplierID int64              `json:"supplier_id"`
	Number     catalog.FlexString `json:"number"`
	Name       catalog.FlexString `json:"name"`
}

// MoloniUnit is an entry of measurementUnits/getAll
type MoloniUnit struct {
	UnitID    int64              `json:"unit_id"`
	Name      catalog.FlexString `json:"name"`
	ShortName catalog.FlexString `json:"short_name"`
}

// MoloniTax is an entry of taxes/getAll
type MoloniTax struct {
	TaxID int64               `json:"tax_id"`
	Name  catalog.FlexString  `json:"name"`
	Value catalog.FlexDecimal `json:"value"`
}

// MoloniProduct is an entry of products/getAll
type MoloniProduct struct {
	ProductID  int64               `json:"product_id"`
	CategoryID int64               `json:"category_id"`
	Name       catalog.FlexString  `json:"name"`
	Reference  catalog.FlexString  `json:"reference"`
	EAN        catalog.FlexString  `json:"ean"`
	Price      catalog.FlexDecimal `json:"price"`
}

// MoloniCountResponse is the products/count result
type MoloniCountResponse struct {
	Count int `json:"count"`
}

// MoloniInsertResponse is the products/insert result
type MoloniInsertResponse struct {
	Valid     int   `json:"valid"`
	ProductID int64 `json:"product_id"`
}

func (c MoloniCategory) toEntity() integration.ERPEntity {
	return integration.ERPEntity{ID: c.CategoryID, Name: c.Name.String()}
}

func (s MoloniSupplier) toEntity() integration.ERPEntity {
	return integration.ERPEntity{ID: s.SupplierID, Name: s.Name.String()}
}

func (u MoloniUnit) toEntity() integration.ERPEntity {
	return integration.ERPEntity{ID: u.UnitID, Name: u.Name.String()}
}

func (t MoloniTax) toTax() integration.ERPTax {
	return integration.ERPTax{ID: t.TaxID, Name: t.Name.String(), Value: t.Value.Decimal}
}

func (p MoloniProduct) toProduct(categoryID int64) integration.ERPProduct {
	if p.CategoryID == 0 {
		p.CategoryID = categoryID
	}
	return integration.ERPProduct{
		ProductID:  p.ProductID,
		CategoryID: p.CategoryID,
		Name:       p.Name.String(),
		Reference:  p.Reference.String(),
		EAN:        p.EAN.String(),
		Price:      p.Price.Decimal,
	}
}
