package integration

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// Store defaults
const (
	NoColorLabel       = "Sem Cor"
	DefaultVendor      = "Loja"
	DefaultProductType = "Geral"
	DefaultOptionValue = "Default"
	SizeOptionName     = "Size"
	TitleOptionName    = "Title"
	ShopStatusActive   = "active"
	shopPublishedScope = "web"
	shopInventoryOwner = "shopify"
)

// ConsolidatedProduct is one store product built from every batch line sharing
// a material code and a color name
type ConsolidatedProduct struct {
	Key string `json:"key"`
	catalog.Product
}

// ConsolidationInfo summarizes how many batch products collapsed into store products
type ConsolidationInfo struct {
	OriginalProducts     int `json:"original_products"`
	ConsolidatedProducts int `json:"consolidated_products"`
	OriginalVariants     int `json:"original_variants"`
	ConsolidatedVariants int `json:"consolidated_variants"`
}

// ProductsMerged is the number of batch products absorbed by consolidation
func (c ConsolidationInfo) ProductsMerged() int {
	return c.OriginalProducts - c.ConsolidatedProducts
}

func colorLabel(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return NoColorLabel
}

// ConsolidationKey groups variants into store products
func ConsolidationKey(materialCode, colorName string) string {
	return materialCode + "_" + colorLabel(colorName)
}

// Consolidate regroups batch products by material code and color name.
// The first product seen for a key provides the metadata; every variant is kept.
// Groups are sorted by key and their variants by reference, so permuted input
// yields the same output.
func Consolidate(products []catalog.Product) ([]ConsolidatedProduct, ConsolidationInfo) {
	groups := make(map[string]*ConsolidatedProduct)
	info := ConsolidationInfo{OriginalProducts: len(products)}

	for i := range products {
		p := &products[i]
		info.OriginalVariants += len(p.Variants)
		for _, v := range p.Variants {
			key := ConsolidationKey(p.MaterialCode, v.ColorName)
			group, ok := groups[key]
			if !ok {
				group = &ConsolidatedProduct{Key: key, Product: groupHeader(p)}
				groups[key] = group
			}
			group.Variants = append(group.Variants, v)
		}
	}

	result := make([]ConsolidatedProduct, 0, len(groups))
	for _, g := range groups {
		sort.SliceStable(g.Variants, func(a, b int) bool {
			return lessVariant(&g.Variants[a], &g.Variants[b])
		})
		info.ConsolidatedVariants += len(g.Variants)
		result = append(result, *g)
	}
	sort.Slice(result, func(a, b int) bool { return result[a].Key < result[b].Key })
	for i := range result {
		result[i].ProductID = i
	}
	info.ConsolidatedProducts = len(result)
	return result, info
}

// Summarize counts the batch products and variants that went into groups.
// Used when only some consolidated products are pushed.
func Summarize(products []catalog.Product, groups []ConsolidatedProduct) ConsolidationInfo {
	keys := make(map[string]bool, len(groups))
	info := ConsolidationInfo{ConsolidatedProducts: len(groups)}
	for i := range groups {
		keys[groups[i].Key] = true
		info.ConsolidatedVariants += len(groups[i].Variants)
	}
	for i := range products {
		contributed := false
		for _, v := range products[i].Variants {
			if keys[ConsolidationKey(products[i].MaterialCode, v.ColorName)] {
				info.OriginalVariants++
				contributed = true
			}
		}
		if contributed {
			info.OriginalProducts++
		}
	}
	return info
}

func groupHeader(p *catalog.Product) catalog.Product {
	name := p.Name
	if name == "" {
		name = "Produto"
	}
	warehouse := p.Warehouse
	if warehouse == "" {
		warehouse = catalog.DefaultWarehouse
	}
	integrated := p.Integrated
	if integrated == "" {
		integrated = catalog.IntegratedNo
	}
	return catalog.Product{
		MaterialCode: p.MaterialCode,
		Name:         name,
		Composition:  p.Composition,
		Category:     p.Category,
		Gender:       p.Gender,
		Brand:        p.Brand,
		Supplier:     p.Supplier,
		Date:         p.Date,
		Warehouse:    warehouse,
		Integrated:   integrated,
	}
}

func lessVariant(a, b *catalog.Variant) bool {
	if a.Reference != b.Reference {
		return lessReference(a.Reference, b.Reference)
	}
	if a.Size != b.Size {
		return a.Size < b.Size
	}
	return a.Barcode < b.Barcode
}

// lessReference orders "X.2" before "X.10" when both references share a
// prefix and end in a numeric suffix, and falls back to string order otherwise
func lessReference(a, b string) bool {
	ap, an, aok := splitReference(a)
	bp, bn, bok := splitReference(b)
	if aok && bok && ap == bp && an != bn {
		return an < bn
	}
	return a < b
}

func splitReference(ref string) (string, int, bool) {
	dot := strings.LastIndexByte(ref, '.')
	if dot < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(ref[dot+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return ref[:dot], n, true
}

// FormatPrice renders a price with two decimals
func FormatPrice(price decimal.Decimal) string {
	return price.StringFixed(2)
}

// ToShopProduct renders a consolidated product as a store product.
// Variants sharing an option value are collapsed, first one wins.
func (c *ConsolidatedProduct) ToShopProduct() ShopProduct {
	sizes := make(map[string]struct{})
	for _, v := range c.Variants {
		if size := strings.TrimSpace(v.Size); size != "" {
			sizes[size] = struct{}{}
		}
	}

	option := ShopOption{Name: TitleOptionName, Values: []string{DefaultOptionValue}}
	if len(sizes) > 0 {
		values := make([]string, 0, len(sizes))
		for s := range sizes {
			values = append(values, s)
		}
		sort.Strings(values)
		option = ShopOption{Name: SizeOptionName, Values: values}
	}

	vendor := c.Supplier
	if vendor == "" {
		vendor = DefaultVendor
	}
	productType := c.Category
	if productType == "" {
		productType = DefaultProductType
	}

	tags := make([]string, 0, 4)
	for _, t := range []string{c.Category, string(c.Gender), c.Brand} {
		if t != "" {
			tags = append(tags, t)
		}
	}
	tags = append(tags, "ref:"+c.MaterialCode)

	seen := make(map[string]struct{}, len(c.Variants))
	variants := make([]ShopVariant, 0, len(c.Variants))
	for _, v := range c.Variants {
		option1 := DefaultOptionValue
		if size := strings.TrimSpace(v.Size); size != "" && option.Name == SizeOptionName {
			option1 = size
		}
		if _, dup := seen[option1]; dup {
			continue
		}
		seen[option1] = struct{}{}
		variants = append(variants, ShopVariant{
			Option1:             option1,
			Price:               FormatPrice(v.SalePrice),
			Cost:                FormatPrice(v.UnitPrice),
			SKU:                 v.Reference,
			Barcode:             v.Barcode,
			InventoryManagement: shopInventoryOwner,
			InventoryQuantity:   v.Quantity,
			Taxable:             true,
			RequiresShipping:    true,
		})
	}

	return ShopProduct{
		Title:          c.Name,
		BodyHTML:       c.Composition,
		Vendor:         vendor,
		ProductType:    productType,
		Status:         ShopStatusActive,
		PublishedScope: shopPublishedScope,
		Tags:           strings.Join(tags, ", "),
		Options:        []ShopOption{option},
		Variants:       variants,
	}
}

// QuantityBySKU maps variant references to their ordered quantity
func (c *ConsolidatedProduct) QuantityBySKU() map[string]int {
	quantities := make(map[string]int, len(c.Variants))
	for _, v := range c.Variants {
		if _, exists := quantities[v.Reference]; !exists {
			quantities[v.Reference] = v.Quantity
		}
	}
	return quantities
}
