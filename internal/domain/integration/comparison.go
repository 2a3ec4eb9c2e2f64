package integration

import (
	"strings"

	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ConflictType names the identity field that collided with a remote record
type ConflictType string

const (
	ConflictReference ConflictType = "reference"
	ConflictBarcode   ConflictType = "barcode"
	ConflictName      ConflictType = "name"
	ConflictSKU       ConflictType = "sku"
	ConflictTitle     ConflictType = "title"
)

// Field labels shown to the operator
var conflictFields = map[ConflictType]string{
	ConflictReference: "Referência",
	ConflictBarcode:   "Código de Barras",
	ConflictName:      "Nome",
	ConflictSKU:       "SKU/Referência",
	ConflictTitle:     "Título",
}

// ExistingRecord summarizes the remote record a conflict points at.
// ERP products fill name, reference and ean; store products fill title, vendor,
// product_type and status; store variants fill sku, barcode, title and product_title.
type ExistingRecord struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name,omitempty"`
	Reference    string           `json:"reference,omitempty"`
	EAN          string           `json:"ean,omitempty"`
	Title        string           `json:"title,omitempty"`
	Vendor       string           `json:"vendor,omitempty"`
	ProductType  string           `json:"product_type,omitempty"`
	Status       string           `json:"status,omitempty"`
	SKU          string           `json:"sku,omitempty"`
	Barcode      string           `json:"barcode,omitempty"`
	ProductTitle string           `json:"product_title,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
}

// Conflict is one identity collision
type Conflict struct {
	Type     ConflictType   `json:"type"`
	Field    string         `json:"field"`
	Value    string         `json:"value"`
	Existing ExistingRecord `json:"existing"`
}

func newConflict(t ConflictType, value string, existing ExistingRecord) Conflict {
	return Conflict{Type: t, Field: conflictFields[t], Value: value, Existing: existing}
}

// VariantConflict lists every collision of one variant
type VariantConflict struct {
	Variant   catalog.Variant `json:"variant"`
	Conflicts []Conflict      `json:"conflicts"`
}

// IndexedProduct is a product with its position in the compared list
type IndexedProduct struct {
	ProductIndex int             `json:"product_index"`
	Product      catalog.Product `json:"product"`
}

// ProductConflict is a product with at least one collision
type ProductConflict struct {
	IndexedProduct
	VariantConflicts []VariantConflict `json:"variant_conflicts"`
	TitleConflict    *Conflict         `json:"title_conflict,omitempty"`
}

// ComparisonResult classifies products as conflicting or safe to insert.
// It is computed per request and never cached.
type ComparisonResult struct {
	Platform               PlatformCode       `json:"platform"`
	TotalNew               int                `json:"total_new"`
	Conflicts              []ProductConflict  `json:"conflicts"`
	SafeToInsert           []IndexedProduct   `json:"safe_to_insert"`
	TotalVariantsNew       int                `json:"total_variants_new"`
	TotalVariantsConflicts int                `json:"total_variants_conflicts"`
	HasConflicts           bool               `json:"has_conflicts"`
	SafeVariants           int                `json:"safe_variants"`
	ConsolidationInfo      *ConsolidationInfo `json:"consolidation_info,omitempty"`
}

// SafeIndices returns the positions of the products without conflicts
func (r *ComparisonResult) SafeIndices() []int {
	indices := make([]int, 0, len(r.SafeToInsert))
	for _, p := range r.SafeToInsert {
		indices = append(indices, p.ProductIndex)
	}
	return indices
}

func newComparisonResult(platform PlatformCode, total int) *ComparisonResult {
	return &ComparisonResult{
		Platform:     platform,
		TotalNew:     total,
		Conflicts:    []ProductConflict{},
		SafeToInsert: []IndexedProduct{},
	}
}

// classify files a product as conflicting or safe and updates the counters
func (r *ComparisonResult) classify(index int, p catalog.Product, variantConflicts []VariantConflict, title *Conflict) {
	r.TotalVariantsNew += len(p.Variants)
	r.TotalVariantsConflicts += len(variantConflicts)
	entry := IndexedProduct{ProductIndex: index, Product: p}
	if len(variantConflicts) > 0 || title != nil {
		if variantConflicts == nil {
			variantConflicts = []VariantConflict{}
		}
		r.Conflicts = append(r.Conflicts, ProductConflict{
			IndexedProduct:   entry,
			VariantConflicts: variantConflicts,
			TitleConflict:    title,
		})
		return
	}
	r.SafeToInsert = append(r.SafeToInsert, entry)
}

func (r *ComparisonResult) finish() *ComparisonResult {
	r.HasConflicts = len(r.Conflicts) > 0
	r.SafeVariants = r.TotalVariantsNew - r.TotalVariantsConflicts
	return r
}

// ---------------------------------------------------------------------------
// ERP comparison
// ---------------------------------------------------------------------------

type erpIndex struct {
	byReference map[string]*ERPProduct
	byEAN       map[string]*ERPProduct
	byName      map[string]*ERPProduct
}

func newERPIndex(snapshot []ERPProduct) erpIndex {
	idx := erpIndex{
		byReference: make(map[string]*ERPProduct, len(snapshot)),
		byEAN:       make(map[string]*ERPProduct, len(snapshot)),
		byName:      make(map[string]*ERPProduct, len(snapshot)),
	}
	for i := range snapshot {
		p := &snapshot[i]
		putFirst(idx.byReference, catalog.FoldKey(p.Reference), p)
		putFirst(idx.byEAN, strings.TrimSpace(p.EAN), p)
		putFirst(idx.byName, catalog.FoldKey(p.Name), p)
	}
	return idx
}

func putFirst[T any](m map[string]T, key string, value T) {
	if key == "" {
		return
	}
	if _, exists := m[key]; !exists {
		m[key] = value
	}
}

func erpSummary(p *ERPProduct) ExistingRecord {
	price := p.Price
	return ExistingRecord{
		ID:        p.ProductID,
		Name:      p.Name,
		Reference: p.Reference,
		EAN:       p.EAN,
		Price:     &price,
	}
}

// DetectERPConflicts checks every variant's reference, barcode and description
// against the ERP catalog snapshot. Every match is reported.
func DetectERPConflicts(products []catalog.Product, snapshot []ERPProduct) *ComparisonResult {
	idx := newERPIndex(snapshot)
	result := newComparisonResult(PlatformCodeMoloni, len(products))

	for i, p := range products {
		var variantConflicts []VariantConflict
		for _, v := range p.Variants {
			var conflicts []Conflict
			reference := strings.TrimSpace(v.Reference)
			barcode := strings.TrimSpace(v.Barcode)
			name := strings.TrimSpace(v.Description)

			if existing, ok := idx.byReference[catalog.FoldKey(reference)]; ok && reference != "" {
				conflicts = append(conflicts, newConflict(ConflictReference, reference, erpSummary(existing)))
			}
			if existing, ok := idx.byEAN[barcode]; ok && barcode != "" {
				conflicts = append(conflicts, newConflict(ConflictBarcode, barcode, erpSummary(existing)))
			}
			if existing, ok := idx.byName[catalog.FoldKey(name)]; ok && name != "" {
				conflicts = append(conflicts, newConflict(ConflictName, name, erpSummary(existing)))
			}
			if len(conflicts) > 0 {
				variantConflicts = append(variantConflicts, VariantConflict{Variant: v, Conflicts: conflicts})
			}
		}
		result.classify(i, p, variantConflicts, nil)
	}
	return result.finish()
}

// ---------------------------------------------------------------------------
// Store comparison
// ---------------------------------------------------------------------------

type shopVariantRef struct {
	variant      *ShopVariant
	productTitle string
}

type shopIndex struct {
	byTitle   map[string]*ShopProduct
	bySKU     map[string]shopVariantRef
	byBarcode map[string]shopVariantRef
}

func newShopIndex(snapshot []ShopProduct) shopIndex {
	idx := shopIndex{
		byTitle:   make(map[string]*ShopProduct, len(snapshot)),
		bySKU:     make(map[string]shopVariantRef),
		byBarcode: make(map[string]shopVariantRef),
	}
	for i := range snapshot {
		p := &snapshot[i]
		putFirst(idx.byTitle, catalog.FoldKey(p.Title), p)
		for j := range p.Variants {
			ref := shopVariantRef{variant: &p.Variants[j], productTitle: p.Title}
			putFirst(idx.bySKU, catalog.FoldKey(p.Variants[j].SKU), ref)
			putFirst(idx.byBarcode, strings.TrimSpace(p.Variants[j].Barcode), ref)
		}
	}
	return idx
}

func shopVariantSummary(ref shopVariantRef) ExistingRecord {
	summary := ExistingRecord{
		ID:           ref.variant.ID,
		SKU:          ref.variant.SKU,
		Barcode:      ref.variant.Barcode,
		Title:        ref.variant.Title,
		ProductTitle: ref.productTitle,
	}
	if price, err := decimal.NewFromString(ref.variant.Price); err == nil {
		summary.Price = &price
	}
	return summary
}

// DetectShopConflicts consolidates the batch and checks every store product
// title and every variant SKU and barcode against the store snapshot.
// Product indices in the result refer to the consolidated list.
func DetectShopConflicts(products []catalog.Product, snapshot []ShopProduct) *ComparisonResult {
	consolidated, info := Consolidate(products)
	idx := newShopIndex(snapshot)
	result := newComparisonResult(PlatformCodeShopify, len(consolidated))
	result.ConsolidationInfo = &info

	for i, c := range consolidated {
		var title *Conflict
		if t := strings.TrimSpace(c.Name); t != "" {
			if existing, ok := idx.byTitle[catalog.FoldKey(t)]; ok {
				conflict := newConflict(ConflictTitle, t, ExistingRecord{
					ID:          existing.ID,
					Title:       existing.Title,
					Vendor:      existing.Vendor,
					ProductType: existing.ProductType,
					Status:      existing.Status,
				})
				title = &conflict
			}
		}

		var variantConflicts []VariantConflict
		for _, v := range c.Variants {
			var conflicts []Conflict
			reference := strings.TrimSpace(v.Reference)
			barcode := strings.TrimSpace(v.Barcode)

			if existing, ok := idx.bySKU[catalog.FoldKey(reference)]; ok && reference != "" {
				conflicts = append(conflicts, newConflict(ConflictSKU, reference, shopVariantSummary(existing)))
			}
			if existing, ok := idx.byBarcode[barcode]; ok && barcode != "" {
				conflicts = append(conflicts, newConflict(ConflictBarcode, barcode, shopVariantSummary(existing)))
			}
			if len(conflicts) > 0 {
				variantConflicts = append(variantConflicts, VariantConflict{Variant: v, Conflicts: conflicts})
			}
		}
		result.classify(i, c.Product, variantConflicts, title)
	}
	return result.finish()
}

// FilterByIndices keeps the items at the given positions, in the order given.
// Out of range indices are ignored.
func FilterByIndices[T any](items []T, indices []int) []T {
	filtered := make([]T, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(items) {
			filtered = append(filtered, items[i])
		}
	}
	return filtered
}
