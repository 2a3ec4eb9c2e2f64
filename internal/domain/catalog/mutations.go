package catalog

import (
	"strings"
)

// Product returns a pointer to the product at index
func (b *Batch) Product(index int) (*Product, error) {
	if index < 0 || index >= len(b.Products) {
		return nil, productIndexError(index, len(b.Products))
	}
	return &b.Products[index], nil
}

// DeleteProduct removes the product at index and renumbers the remaining
// products contiguously from zero
func (b *Batch) DeleteProduct(index int) error {
	if index < 0 || index >= len(b.Products) {
		return productIndexError(index, len(b.Products))
	}
	b.Products = append(b.Products[:index], b.Products[index+1:]...)
	b.renumberProducts()
	b.touch()
	return nil
}

// DeleteVariant removes one variant and reindexes the survivors of that product
func (b *Batch) DeleteVariant(productIndex, variantIndex int) error {
	p, err := b.Product(productIndex)
	if err != nil {
		return err
	}
	if variantIndex < 0 || variantIndex >= len(p.Variants) {
		return variantIndexError(variantIndex, len(p.Variants))
	}
	p.Variants = append(p.Variants[:variantIndex], p.Variants[variantIndex+1:]...)
	ReindexVariants(p)
	b.touch()
	return nil
}

// ReindexVariants renumbers the variants of p to 1..N in their current order.
// References are rebuilt and only the sequential field of each full-length
// barcode changes; season, supplier, color and size fields are kept.
func ReindexVariants(p *Product) {
	materialCode := strings.TrimSpace(p.MaterialCode)
	if materialCode == "" && len(p.Variants) > 0 {
		materialCode = referencePrefix(p.Variants[0].Reference)
	}
	for i := range p.Variants {
		seq := i + 1
		p.Variants[i].Reference = Reference(materialCode, seq)
		p.Variants[i].Barcode = withSequential(p.Variants[i].Barcode, seq)
	}
}

func referencePrefix(reference string) string {
	if idx := strings.LastIndex(reference, "."); idx >= 0 {
		return reference[:idx]
	}
	return reference
}

// ValidateBarcodePrefix checks that prefix is exactly two ASCII digits
func ValidateBarcodePrefix(prefix string) error {
	if len(prefix) != 2 || !isDigits(prefix) {
		return ErrInvalidPrefix
	}
	return nil
}

// RewriteBarcodePrefix replaces the season field of every barcode in the batch.
// Barcodes are zero-filled to full length first; empty barcodes are skipped.
// The batch's shared date is propagated onto every product in the same pass.
// An invalid prefix leaves the batch untouched.
func (b *Batch) RewriteBarcodePrefix(prefix string) error {
	if err := ValidateBarcodePrefix(prefix); err != nil {
		return err
	}
	for i := range b.Products {
		for j := range b.Products[i].Variants {
			v := &b.Products[i].Variants[j]
			barcode := strings.TrimSpace(v.Barcode)
			if barcode == "" {
				continue
			}
			if len(barcode) < BarcodeLength {
				barcode = strings.Repeat("0", BarcodeLength-len(barcode)) + barcode
			}
			v.Barcode = prefix + barcode[seasonEnd:]
		}
	}
	b.BarcodeSeason = prefix
	b.ApplySharedDate()
	b.touch()
	return nil
}

// ApplySharedDate copies the batch's shared date onto every product
func (b *Batch) ApplySharedDate() {
	date := b.SharedDate()
	if date == "" {
		return
	}
	for i := range b.Products {
		b.Products[i].Date = date
	}
}

// EditProduct replaces the editable fields of the product at index and regenerates
// its variant identities. An empty date keeps the existing one. Sale prices are taken
// as given so manual overrides survive. It returns sizes that fell back to the
// unresolved size code.
func (b *Batch) EditProduct(index int, edited Product, gen *IdentityGenerator) ([]string, error) {
	p, err := b.Product(index)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(edited.Name) == "" {
		return nil, requiredFieldError("name")
	}
	if strings.TrimSpace(edited.MaterialCode) == "" {
		return nil, requiredFieldError("material_code")
	}

	date := strings.TrimSpace(edited.Date)
	if date == "" {
		date = p.Date
	}
	warehouse := edited.Warehouse
	if warehouse == "" {
		warehouse = p.Warehouse
	}
	integrated := edited.Integrated
	if integrated == "" {
		integrated = p.Integrated
	}

	updated := Product{
		ProductID:    p.ProductID,
		MaterialCode: strings.TrimSpace(edited.MaterialCode),
		Name:         strings.TrimSpace(edited.Name),
		Composition:  edited.Composition,
		Category:     edited.Category,
		Gender:       NormalizeGender(string(edited.Gender)),
		Brand:        edited.Brand,
		Supplier:     edited.Supplier,
		Date:         date,
		Warehouse:    warehouse,
		Integrated:   integrated,
		Variants:     make([]Variant, len(edited.Variants)),
	}
	copy(updated.Variants, edited.Variants)
	// Keep the season of positions whose barcode was not sent back
	for i := range updated.Variants {
		if strings.TrimSpace(updated.Variants[i].Barcode) == "" && i < len(p.Variants) {
			updated.Variants[i].Barcode = p.Variants[i].Barcode
		}
	}

	unresolved := gen.Regenerate(&updated, b.Season())
	*p = updated
	b.touch()
	return unresolved, nil
}
