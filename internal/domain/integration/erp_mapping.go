package integration

import (
	"fmt"
	"strings"

	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// Names looked up for every inserted product
const (
	DefaultUnitName = "UNIDADE"
	DefaultTaxName  = "IVA 23%"
	// ExemptionReason is sent with every ERP insert
	ExemptionReason = "M01"
)

// DefaultVATRate is used when the resolved tax carries no usable value
var DefaultVATRate = decimal.NewFromInt(23)

// erpPricePlaces is the precision of net prices sent to the ERP
const erpPricePlaces = 5

// ERPEntity is a named ERP record such as a category, supplier or unit
type ERPEntity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ERPTax is an ERP tax with its percentage value
type ERPTax struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// ERPReferenceData is the company-wide mapping from batch names to ERP records.
// The first entry of each list is the default for names that do not resolve.
type ERPReferenceData struct {
	categories []ERPEntity
	suppliers  []ERPEntity
	units      []ERPEntity
	taxes      []ERPTax

	categoriesByName map[string]ERPEntity
	suppliersByName  map[string]ERPEntity
	unitsByName      map[string]ERPEntity
	taxesByName      map[string]ERPTax
}

// NewERPReferenceData indexes the lists by folded name.
// Returns ErrMissingDefaults when any list is empty.
func NewERPReferenceData(categories, suppliers, units []ERPEntity, taxes []ERPTax) (*ERPReferenceData, error) {
	var missing []string
	if len(categories) == 0 {
		missing = append(missing, "categories")
	}
	if len(suppliers) == 0 {
		missing = append(missing, "suppliers")
	}
	if len(units) == 0 {
		missing = append(missing, "units")
	}
	if len(taxes) == 0 {
		missing = append(missing, "taxes")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingDefaults, strings.Join(missing, ", "))
	}

	taxesByName := make(map[string]ERPTax, len(taxes))
	for _, t := range taxes {
		key := catalog.FoldKey(t.Name)
		if _, exists := taxesByName[key]; !exists {
			taxesByName[key] = t
		}
	}

	return &ERPReferenceData{
		categories:       categories,
		suppliers:        suppliers,
		units:            units,
		taxes:            taxes,
		categoriesByName: indexEntities(categories),
		suppliersByName:  indexEntities(suppliers),
		unitsByName:      indexEntities(units),
		taxesByName:      taxesByName,
	}, nil
}

func indexEntities(entities []ERPEntity) map[string]ERPEntity {
	index := make(map[string]ERPEntity, len(entities))
	for _, e := range entities {
		key := catalog.FoldKey(e.Name)
		if _, exists := index[key]; !exists {
			index[key] = e
		}
	}
	return index
}

// Fallback records a batch name that matched no ERP record
type Fallback struct {
	Field   string
	Name    string
	Default ERPEntity
}

// resolve looks name up by folded key. found is false when fallback is returned.
func resolve(index map[string]ERPEntity, name string, fallback ERPEntity) (ERPEntity, bool) {
	if strings.TrimSpace(name) == "" {
		return fallback, false
	}
	if e, ok := index[catalog.FoldKey(name)]; ok {
		return e, true
	}
	return fallback, false
}

// Categories returns the ERP categories, default first
func (d *ERPReferenceData) Categories() []ERPEntity {
	return d.categories
}

// Category resolves a category by name, falling back to the default
func (d *ERPReferenceData) Category(name string) (ERPEntity, bool) {
	return resolve(d.categoriesByName, name, d.categories[0])
}

// Supplier resolves a supplier by name, falling back to the default
func (d *ERPReferenceData) Supplier(name string) (ERPEntity, bool) {
	return resolve(d.suppliersByName, name, d.suppliers[0])
}

// Unit resolves the sale unit, falling back to the default
func (d *ERPReferenceData) Unit() ERPEntity {
	unit, _ := resolve(d.unitsByName, DefaultUnitName, d.units[0])
	return unit
}

// Tax resolves the VAT record, falling back to the default
func (d *ERPReferenceData) Tax() ERPTax {
	if t, ok := d.taxesByName[catalog.FoldKey(DefaultTaxName)]; ok {
		return t
	}
	return d.taxes[0]
}

// VATRate returns the tax percentage, or DefaultVATRate when the value is not positive
func (t ERPTax) VATRate() decimal.Decimal {
	if !t.Value.IsPositive() {
		return DefaultVATRate
	}
	return t.Value
}

// NetPrice removes VAT from a gross sale price
func NetPrice(gross, vatRate decimal.Decimal) decimal.Decimal {
	divisor := decimal.NewFromInt(1).Add(vatRate.Div(decimal.NewFromInt(100)))
	return gross.DivRound(divisor, erpPricePlaces)
}

// BuildERPProduct maps one variant to the ERP insert payload.
// Category and supplier names that match no ERP record are reported as fallbacks.
func (d *ERPReferenceData) BuildERPProduct(p *catalog.Product, v *catalog.Variant) (ERPProductPayload, []Fallback) {
	tax := d.Tax()
	rate := tax.VATRate()

	var fallbacks []Fallback
	category, found := d.Category(p.Category)
	if !found {
		fallbacks = append(fallbacks, Fallback{Field: "category", Name: p.Category, Default: category})
	}
	supplier, found := d.Supplier(p.Supplier)
	if !found {
		fallbacks = append(fallbacks, Fallback{Field: "supplier", Name: p.Supplier, Default: supplier})
	}

	name := v.Description
	if name == "" {
		name = fmt.Sprintf("%s - %s %s", p.Name, v.ColorName, v.Size)
	}

	return ERPProductPayload{
		CategoryID:      category.ID,
		Name:            name,
		Reference:       v.Reference,
		EAN:             v.Barcode,
		Price:           NetPrice(v.SalePrice, rate),
		UnitID:          d.Unit().ID,
		SupplierID:      supplier.ID,
		SupplierCost:    v.UnitPrice,
		TaxID:           tax.ID,
		TaxValue:        rate,
		Quantity:        v.Quantity,
		Composition:     p.Composition,
		ColorName:       v.ColorName,
		Size:            v.Size,
		Gender:          string(p.Gender),
		ExemptionReason: ExemptionReason,
	}, fallbacks
}
