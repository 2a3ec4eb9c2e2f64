package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Barcode layout: [season:2][supplier:2][sequential:3][color:3][size:3]
const (
	BarcodeLength = 13

	DefaultSeason       = "23"
	DefaultSupplierCode = "00"
	UnresolvedSizeCode  = "000"

	// sequentialBase keeps the sequential field non-zero and distinct from material digits
	sequentialBase = 100

	seasonEnd     = 2
	supplierEnd   = 4
	sequentialEnd = 7
)

// Reference returns the variant reference for a 1-based position
func Reference(materialCode string, seq int) string {
	return fmt.Sprintf("%s.%d", strings.TrimSpace(materialCode), seq)
}

// Description returns the display description of a variant
func Description(name, colorCode, size string) string {
	return fmt.Sprintf("%s[%s/%s]", name, colorCode, size)
}

// Sequential returns the 3-digit barcode sequential for a 1-based position
func Sequential(seq int) string {
	return padCode(strconv.Itoa(sequentialBase+seq), 3)
}

// BuildBarcode assembles a composite barcode, padding every field to its width
func BuildBarcode(season, supplierCode string, seq int, colorCode, sizeCode string) string {
	return padCode(season, 2) +
		padCode(supplierCode, 2) +
		Sequential(seq) +
		padCode(colorCode, 3) +
		padCode(sizeCode, 3)
}

// SeasonOf extracts the season field of an existing barcode.
// Missing or non-numeric prefixes yield DefaultSeason.
func SeasonOf(barcode string) string {
	return seasonOr(barcode, DefaultSeason)
}

func seasonOr(barcode, fallback string) string {
	barcode = strings.TrimSpace(barcode)
	if len(barcode) < seasonEnd || !isDigits(barcode[:seasonEnd]) {
		return fallback
	}
	return barcode[:seasonEnd]
}

// SeasonFromLabel derives a season field from a free-text season label such as
// "SS24" or "2023", using its last two digits
func SeasonFromLabel(label string) string {
	digits := make([]byte, 0, len(label))
	for i := 0; i < len(label); i++ {
		if label[i] >= '0' && label[i] <= '9' {
			digits = append(digits, label[i])
		}
	}
	if len(digits) < 2 {
		return DefaultSeason
	}
	return string(digits[len(digits)-2:])
}

// withSequential replaces only the sequential field of a full-length barcode
func withSequential(barcode string, seq int) string {
	if len(barcode) < BarcodeLength {
		return barcode
	}
	return barcode[:supplierEnd] + Sequential(seq) + barcode[sequentialEnd:]
}

// IdentityGenerator derives references and barcodes from company reference tables
type IdentityGenerator struct {
	sizes     SizeTable
	colors    ColorTable
	suppliers SupplierTable
}

// NewIdentityGenerator creates a generator backed by the given tables
func NewIdentityGenerator(tables *ReferenceTables) *IdentityGenerator {
	if tables == nil {
		tables = EmptyReferenceTables()
	}
	return &IdentityGenerator{
		sizes:     tables,
		colors:    tables,
		suppliers: tables,
	}
}

// SizeCode resolves a display size to a barcode size code.
// The second return value is false when the size fell back to UnresolvedSizeCode.
func (g *IdentityGenerator) SizeCode(size string) (string, bool) {
	value := strings.TrimSpace(size)
	if value == "" {
		return UnresolvedSizeCode, false
	}
	if code, ok := g.sizes.CodeForValue(value); ok {
		return padCode(code, 3), true
	}
	if isDigits(value) && len(value) <= 3 {
		return padCode(value, 3), true
	}
	if padded := padCode(value, 3); g.sizes.HasCode(padded) {
		return padded, true
	}
	return UnresolvedSizeCode, false
}

// ColorCode resolves the barcode color code of a variant, preferring the code
// registered for its color name
func (g *IdentityGenerator) ColorCode(v Variant) string {
	if code, ok := g.colors.CodeForName(v.ColorName); ok {
		return code
	}
	return v.ColorCode
}

// SupplierCode resolves a supplier name to its barcode code, defaulting to "00"
func (g *IdentityGenerator) SupplierCode(supplier string) string {
	if code, ok := g.suppliers.CodeForSupplier(supplier); ok {
		return padCode(code, 2)
	}
	return DefaultSupplierCode
}

// Barcode builds the composite barcode of a variant at position seq.
// The season is carried over from the variant's current barcode, or taken from
// season when it has none.
func (g *IdentityGenerator) Barcode(v Variant, supplierCode string, seq int, season string) (string, bool) {
	sizeCode, resolved := g.SizeCode(v.Size)
	return BuildBarcode(seasonOr(v.Barcode, season), supplierCode, seq, g.ColorCode(v), sizeCode), resolved
}

// Regenerate rebuilds reference, color code, barcode and description of every
// variant of p. Display sizes are left untouched. Variants without a barcode get
// season. It returns the sizes that could not be resolved against the size table.
func (g *IdentityGenerator) Regenerate(p *Product, season string) []string {
	supplierCode := g.SupplierCode(p.Supplier)
	var unresolved []string
	for i := range p.Variants {
		v := &p.Variants[i]
		seq := i + 1
		barcode, resolved := g.Barcode(*v, supplierCode, seq, season)
		if !resolved {
			unresolved = append(unresolved, v.Size)
		}
		v.ColorCode = g.ColorCode(*v)
		v.Reference = Reference(p.MaterialCode, seq)
		v.Barcode = barcode
		v.Description = Description(p.Name, v.ColorCode, v.Size)
	}
	return unresolved
}

// AssignMissingBarcodes gives a composite barcode to variants that have none,
// using season for the season field. Existing barcodes are kept.
func (g *IdentityGenerator) AssignMissingBarcodes(p *Product, season string) []string {
	supplierCode := g.SupplierCode(p.Supplier)
	var unresolved []string
	for i := range p.Variants {
		v := &p.Variants[i]
		if strings.TrimSpace(v.Barcode) != "" {
			continue
		}
		sizeCode, resolved := g.SizeCode(v.Size)
		if !resolved {
			unresolved = append(unresolved, v.Size)
		}
		v.Barcode = BuildBarcode(season, supplierCode, i+1, g.ColorCode(*v), sizeCode)
	}
	return unresolved
}
