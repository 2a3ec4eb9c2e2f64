package catalog

import "strings"

// Color is a company color with its 3-digit barcode code
type Color struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Size maps a display size to its 3-digit barcode code
type Size struct {
	Value string `json:"value"`
	Code  string `json:"code"`
}

// SupplierCode maps a supplier name to its 2-digit barcode code
type SupplierCode struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// SizeTable resolves display sizes to barcode size codes
type SizeTable interface {
	CodeForValue(value string) (string, bool)
	HasCode(code string) bool
}

// ColorTable resolves color names to barcode color codes
type ColorTable interface {
	CodeForName(name string) (string, bool)
}

// SupplierTable resolves supplier names to barcode supplier codes
type SupplierTable interface {
	CodeForSupplier(name string) (string, bool)
}

// Barcode field widths of table codes
const (
	sizeCodeWidth     = 3
	colorCodeWidth    = 3
	supplierCodeWidth = 2
)

// RejectedCode is a table row whose code is wider than its barcode field
type RejectedCode struct {
	Table string `json:"table"`
	Name  string `json:"name"`
	Code  string `json:"code"`
}

// ReferenceTables is an immutable, company-scoped snapshot of the color, size and
// supplier code tables. It satisfies SizeTable, ColorTable and SupplierTable.
type ReferenceTables struct {
	sizesByValue    map[string]string
	sizeCodes       map[string]struct{}
	colorsByName    map[string]string
	suppliersByName map[string]string
	rejected        []RejectedCode
}

// NewReferenceTables builds lookup tables from raw reference rows.
// Later duplicates never override earlier entries. Rows whose code does not fit
// its barcode field are left out and reported by Rejected.
func NewReferenceTables(colors []Color, sizes []Size, suppliers []SupplierCode) *ReferenceTables {
	t := &ReferenceTables{
		sizesByValue:    make(map[string]string, len(sizes)),
		sizeCodes:       make(map[string]struct{}, len(sizes)),
		colorsByName:    make(map[string]string, len(colors)),
		suppliersByName: make(map[string]string, len(suppliers)),
	}
	for _, s := range sizes {
		value := strings.TrimSpace(s.Value)
		code := strings.TrimSpace(s.Code)
		if code == "" {
			continue
		}
		if len(code) > sizeCodeWidth {
			t.reject("size", value, code)
			continue
		}
		if _, exists := t.sizesByValue[value]; !exists && value != "" {
			t.sizesByValue[value] = code
		}
		t.sizeCodes[code] = struct{}{}
	}
	for _, c := range colors {
		key := FoldKey(c.Name)
		if key == "" || strings.TrimSpace(c.Code) == "" {
			continue
		}
		if len(strings.TrimSpace(c.Code)) > colorCodeWidth {
			t.reject("color", c.Name, c.Code)
			continue
		}
		if _, exists := t.colorsByName[key]; !exists {
			t.colorsByName[key] = strings.TrimSpace(c.Code)
		}
	}
	for _, s := range suppliers {
		key := FoldKey(s.Name)
		if key == "" || strings.TrimSpace(s.Code) == "" {
			continue
		}
		if len(strings.TrimSpace(s.Code)) > supplierCodeWidth {
			t.reject("supplier", s.Name, s.Code)
			continue
		}
		if _, exists := t.suppliersByName[key]; !exists {
			t.suppliersByName[key] = strings.TrimSpace(s.Code)
		}
	}
	return t
}

func (t *ReferenceTables) reject(table, name, code string) {
	t.rejected = append(t.rejected, RejectedCode{Table: table, Name: strings.TrimSpace(name), Code: strings.TrimSpace(code)})
}

// Rejected lists the rows left out because their code was too wide
func (t *ReferenceTables) Rejected() []RejectedCode {
	return t.rejected
}

// EmptyReferenceTables returns tables with no entries
func EmptyReferenceTables() *ReferenceTables {
	return NewReferenceTables(nil, nil, nil)
}

// CodeForValue looks up a size by its exact display value
func (t *ReferenceTables) CodeForValue(value string) (string, bool) {
	code, ok := t.sizesByValue[strings.TrimSpace(value)]
	return code, ok
}

// HasCode reports whether code is a known size code
func (t *ReferenceTables) HasCode(code string) bool {
	_, ok := t.sizeCodes[code]
	return ok
}

// CodeForName looks up a color code by case-insensitive name
func (t *ReferenceTables) CodeForName(name string) (string, bool) {
	code, ok := t.colorsByName[FoldKey(name)]
	return code, ok
}

// CodeForSupplier looks up a supplier code by case-insensitive name
func (t *ReferenceTables) CodeForSupplier(name string) (string, bool) {
	code, ok := t.suppliersByName[FoldKey(name)]
	return code, ok
}
