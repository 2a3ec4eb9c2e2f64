package catalog

import "github.com/shopspring/decimal"

// Placeholder variant synthesized for products without any sellable line
const (
	PlaceholderColorCode = "100"
	PlaceholderColorName = "Default"
	PlaceholderSize      = "M"
)

// Normalizer turns a raw extraction into typed products.
// It never fails: malformed lines are dropped and missing scalars get defaults.
type Normalizer struct{}

// NewNormalizer creates a Normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeOrderInfo converts the raw invoice header
func (n *Normalizer) NormalizeOrderInfo(raw RawOrderInfo) OrderInfo {
	return OrderInfo{
		Supplier:     raw.Supplier.String(),
		DocumentType: raw.DocumentType.String(),
		OrderNumber:  raw.OrderNumber.String(),
		Date:         raw.Date.String(),
		Customer:     raw.Customer.String(),
		Brand:        raw.Brand.String(),
		Season:       raw.Season.String(),
		TotalPieces:  raw.TotalPieces.Int(),
		TotalValue:   raw.TotalValue.Decimal,
	}
}

// Normalize converts every raw product, in order, into a Product with at least one variant
func (n *Normalizer) Normalize(raw RawExtraction) (OrderInfo, []Product) {
	info := n.NormalizeOrderInfo(raw.OrderInfo)
	products := make([]Product, 0, len(raw.Products))
	for i, rp := range raw.Products {
		p := n.normalizeProduct(rp, info)
		p.ProductID = i
		products = append(products, p)
	}
	return info, products
}

func (n *Normalizer) normalizeProduct(rp RawProduct, info OrderInfo) Product {
	brand := rp.Brand.String()
	if brand == "" {
		brand = info.Brand
	}
	var explicitGender *string
	if rp.Gender != nil {
		g := rp.Gender.String()
		explicitGender = &g
	}

	p := Product{
		MaterialCode: rp.MaterialCode.String(),
		Name:         rp.Name.String(),
		Composition:  rp.Composition.String(),
		Category:     rp.Category.String(),
		Gender:       ResolveGender(explicitGender, rp.Category.String()),
		Brand:        brand,
		Supplier:     info.Supplier,
		Date:         info.Date,
		Warehouse:    DefaultWarehouse,
		Integrated:   IntegratedNo,
	}
	p.Variants = n.materializeVariants(p, rp)
	if len(p.Variants) == 0 {
		p.Variants = []Variant{placeholderVariant(p)}
	}
	return p
}

func (n *Normalizer) materializeVariants(p Product, rp RawProduct) []Variant {
	supplierBarcodes := make(map[string]string, len(rp.References))
	for _, ref := range rp.References {
		if b := ref.Barcode.String(); b != "" {
			supplierBarcodes[ref.ColorCode.String()+"_"+ref.Size.String()] = b
		}
	}

	var variants []Variant
	for _, color := range rp.Colors {
		colorCode := color.ColorCode.String()
		colorName := color.ColorName.String()
		for _, line := range color.Sizes {
			size := line.Size.String()
			qty := line.Quantity.Int()
			if size == "" || qty <= 0 {
				continue
			}
			seq := len(variants) + 1
			variants = append(variants, Variant{
				Reference:   Reference(p.MaterialCode, seq),
				ColorCode:   colorCode,
				ColorName:   colorName,
				Size:        size,
				Quantity:    qty,
				UnitPrice:   color.UnitPrice.Decimal,
				SalePrice:   color.SalesPrice.Decimal,
				Barcode:     supplierBarcodes[colorCode+"_"+size],
				Description: Description(p.Name, colorCode, size),
			})
		}
	}
	return variants
}

func placeholderVariant(p Product) Variant {
	return Variant{
		Reference:   Reference(p.MaterialCode, 1),
		ColorCode:   PlaceholderColorCode,
		ColorName:   PlaceholderColorName,
		Size:        PlaceholderSize,
		Quantity:    1,
		UnitPrice:   decimal.Zero,
		SalePrice:   decimal.Zero,
		Description: Description(p.Name, PlaceholderColorCode, PlaceholderSize),
	}
}
