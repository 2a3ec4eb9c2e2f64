package pricing

import (
	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// pricePlaces is the rounding precision of computed sale prices
const pricePlaces = 2

type scopeKind int

const (
	scopeAll scopeKind = iota
	scopeSupplier
	scopeSupplierChange
)

// Scope selects which products a markup recomputation touches
type Scope struct {
	kind     scopeKind
	supplier string
}

// ScopeAll recomputes every variant of the batch
func ScopeAll() Scope {
	return Scope{kind: scopeAll}
}

// ScopeSupplier recomputes only variants of products from the named supplier
func ScopeSupplier(supplier string) Scope {
	return Scope{kind: scopeSupplier, supplier: supplier}
}

// ScopeSupplierChange recomputes every variant and then assigns every product
// to the named supplier
func ScopeSupplierChange(newSupplier string) Scope {
	return Scope{kind: scopeSupplierChange, supplier: newSupplier}
}

func (s Scope) matches(p *catalog.Product) bool {
	if s.kind != scopeSupplier {
		return true
	}
	return catalog.FoldKey(p.Supplier) == catalog.FoldKey(s.supplier)
}

// SalePrice returns unitPrice multiplied by markup, rounded half away from zero to cents
func SalePrice(unitPrice, markup decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(markup).Round(pricePlaces)
}

// Engine recomputes sale prices. It only runs when explicitly invoked, so sale
// prices edited by hand survive every other batch mutation.
type Engine struct{}

// NewEngine creates a pricing engine
func NewEngine() *Engine {
	return &Engine{}
}

// Apply sets sale_price = unit_price × markup on the variants selected by scope
// and returns how many variants were repriced
func (e *Engine) Apply(products []catalog.Product, markup decimal.Decimal, scope Scope) int {
	repriced := 0
	for i := range products {
		p := &products[i]
		if !scope.matches(p) {
			continue
		}
		for j := range p.Variants {
			p.Variants[j].SalePrice = SalePrice(p.Variants[j].UnitPrice, markup)
			repriced++
		}
	}
	if scope.kind == scopeSupplierChange {
		for i := range products {
			products[i].Supplier = scope.supplier
		}
	}
	return repriced
}
