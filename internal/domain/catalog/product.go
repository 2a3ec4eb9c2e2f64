package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gender is the department a product is sold under.
// Values are the labels used by the store front and both sync targets.
type Gender string

const (
	GenderMan      Gender = "Homem"
	GenderWoman    Gender = "Senhora"
	GenderChildren Gender = "Crianças"
)

// Integration flags carried on a product
const (
	IntegratedNo  = "0"
	IntegratedYes = "1"
)

// DefaultWarehouse is assigned to products that do not name one
const DefaultWarehouse = "1"

// Variant is one sellable color/size line of a product
type Variant struct {
	Reference   string          `json:"reference"`
	ColorCode   string          `json:"color_code"`
	ColorName   string          `json:"color_name"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	SalePrice   decimal.Decimal `json:"sales_price"`
	Barcode     string          `json:"barcode"`
	Description string          `json:"description"`
}

// Product is one extracted invoice line group sharing a material code
type Product struct {
	ProductID    int       `json:"product_id"`
	MaterialCode string    `json:"material_code"`
	Name         string    `json:"name"`
	Composition  string    `json:"composition"`
	Category     string    `json:"category"`
	Gender       Gender    `json:"gender"`
	Brand        string    `json:"brand"`
	Supplier     string    `json:"supplier"`
	Date         string    `json:"date"`
	Warehouse    string    `json:"warehouse"`
	Integrated   string    `json:"integrated"`
	Variants     []Variant `json:"details"`
}

// TotalQuantity sums the quantity of every variant
func (p *Product) TotalQuantity() int {
	total := 0
	for _, v := range p.Variants {
		total += v.Quantity
	}
	return total
}

// OrderInfo is the invoice header returned by the extraction service
type OrderInfo struct {
	Supplier     string          `json:"supplier"`
	DocumentType string          `json:"document_type"`
	OrderNumber  string          `json:"order_number"`
	Date         string          `json:"date"`
	Customer     string          `json:"customer"`
	Brand        string          `json:"brand"`
	Season       string          `json:"season"`
	TotalPieces  int             `json:"total_pieces"`
	TotalValue   decimal.Decimal `json:"total_value"`
}

// Batch is the working set of products produced by one invoice import.
// It is edited in place between requests and finally pushed to the sync targets.
type Batch struct {
	ID        uuid.UUID `json:"id"`
	CompanyID string    `json:"company_id"`
	OrderInfo OrderInfo `json:"order_info"`
	Products  []Product `json:"products"`
	// DocumentKey locates the archived source invoice, when one was stored
	DocumentKey string `json:"document_key,omitempty"`
	// BarcodeSeason is the season field given to new barcodes
	BarcodeSeason string `json:"barcode_season,omitempty"`
	// Version counts saves and guards against lost updates
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBatch creates a batch for a company with contiguous product ids
func NewBatch(companyID string, info OrderInfo, products []Product) *Batch {
	now := time.Now()
	b := &Batch{
		ID:        uuid.New(),
		CompanyID: companyID,
		OrderInfo: info,
		Products:  products,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.renumberProducts()
	return b
}

// Season returns the season field for new barcodes: the last prefix written
// to the batch, else the invoice season label
func (b *Batch) Season() string {
	if b.BarcodeSeason != "" {
		return b.BarcodeSeason
	}
	return SeasonFromLabel(b.OrderInfo.Season)
}

// VariantCount returns the number of variants across all products
func (b *Batch) VariantCount() int {
	total := 0
	for i := range b.Products {
		total += len(b.Products[i].Variants)
	}
	return total
}

// SharedDate returns the first non-empty product date, falling back to the invoice date
func (b *Batch) SharedDate() string {
	for i := range b.Products {
		if d := strings.TrimSpace(b.Products[i].Date); d != "" {
			return d
		}
	}
	return strings.TrimSpace(b.OrderInfo.Date)
}

// MarkIntegrated flags products as pushed to a sync target.
// With no indices every product is flagged; out of range indices are ignored.
func (b *Batch) MarkIntegrated(indices ...int) {
	if len(indices) == 0 {
		for i := range b.Products {
			b.Products[i].Integrated = IntegratedYes
		}
	}
	for _, i := range indices {
		if i >= 0 && i < len(b.Products) {
			b.Products[i].Integrated = IntegratedYes
		}
	}
	b.touch()
}

func (b *Batch) renumberProducts() {
	for i := range b.Products {
		b.Products[i].ProductID = i
	}
}

func (b *Batch) touch() {
	b.UpdatedAt = time.Now()
}
