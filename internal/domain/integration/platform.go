package integration

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Platform errors
// ---------------------------------------------------------------------------

var (
	// ErrPlatformUnavailable is returned when the remote platform cannot be reached
	ErrPlatformUnavailable = errors.New("integration: platform unavailable")
	// ErrPlatformRequestFailed is returned when the platform answers with a failure
	ErrPlatformRequestFailed = errors.New("integration: platform request failed")
	// ErrPlatformAuthFailed is returned when the platform rejects the access token
	ErrPlatformAuthFailed = errors.New("integration: platform authentication failed")
	// ErrPlatformInvalidResponse is returned when a response body cannot be decoded
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
	// ErrPlatformNotConfigured is returned when a sync target has no credentials
	ErrPlatformNotConfigured = errors.New("integration: platform not configured")
	// ErrSyncAlreadyRunning is returned when a company already has a sync in progress
	ErrSyncAlreadyRunning = errors.New("sync already running")
	// ErrMissingDefaults is returned when the ERP has no category, supplier, unit or tax to fall back to
	ErrMissingDefaults = errors.New("integration: ERP reference data has no defaults")
	// ErrNoLocation is returned when the store has no inventory location
	ErrNoLocation = errors.New("integration: store has no inventory location")
)

// Item error codes reported in sync results
const (
	ErrCodePlatformUnavailable     = "PLATFORM_UNAVAILABLE"
	ErrCodePlatformRequestFailed   = "PLATFORM_REQUEST_FAILED"
	ErrCodePlatformAuthFailed      = "PLATFORM_AUTH_FAILED"
	ErrCodePlatformInvalidResponse = "PLATFORM_INVALID_RESPONSE"
	ErrCodeSyncItemPanic           = "SYNC_ITEM_PANIC"
	ErrCodeSyncFailed              = "SYNC_FAILED"
)

// ErrorCode classifies a platform error for item results
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrPlatformAuthFailed):
		return ErrCodePlatformAuthFailed
	case errors.Is(err, ErrPlatformUnavailable):
		return ErrCodePlatformUnavailable
	case errors.Is(err, ErrPlatformInvalidResponse):
		return ErrCodePlatformInvalidResponse
	case errors.Is(err, ErrPlatformRequestFailed):
		return ErrCodePlatformRequestFailed
	}
	return ErrCodeSyncFailed
}

// ---------------------------------------------------------------------------
// PlatformCode
// ---------------------------------------------------------------------------

// PlatformCode identifies a sync target
type PlatformCode string

const (
	PlatformCodeMoloni  PlatformCode = "MOLONI"
	PlatformCodeShopify PlatformCode = "SHOPIFY"
)

// IsValid returns true if the platform code is recognized
func (p PlatformCode) IsValid() bool {
	switch p {
	case PlatformCodeMoloni, PlatformCodeShopify:
		return true
	}
	return false
}

// String returns the string representation
func (p PlatformCode) String() string {
	return string(p)
}

// DisplayName returns a human-readable name
func (p PlatformCode) DisplayName() string {
	switch p {
	case PlatformCodeMoloni:
		return "Moloni"
	case PlatformCodeShopify:
		return "Shopify"
	}
	return string(p)
}

// ---------------------------------------------------------------------------
// ERP port
// ---------------------------------------------------------------------------

// ERPProductPayload is one variant as inserted into the ERP
type ERPProductPayload struct {
	CategoryID      int64
	Name            string
	Summary         string
	Reference       string
	EAN             string
	Price           decimal.Decimal
	UnitID          int64
	SupplierID      int64
	SupplierCost    decimal.Decimal
	TaxID           int64
	TaxValue        decimal.Decimal
	Quantity        int
	Composition     string
	ColorName       string
	Size            string
	Gender          string
	ExemptionReason string
}

// ERPProduct is a product as stored in the ERP catalog
type ERPProduct struct {
	ProductID  int64           `json:"product_id"`
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Reference  string          `json:"reference"`
	EAN        string          `json:"ean"`
	Price      decimal.Decimal `json:"price"`
}

// ERPPlatform is the port to the invoicing ERP
type ERPPlatform interface {
	// ReferenceData loads categories, suppliers, units and taxes of the company
	ReferenceData(ctx context.Context) (*ERPReferenceData, error)

	// Categories lists the company's product categories
	Categories(ctx context.Context) ([]ERPEntity, error)

	// InsertProduct creates one product and returns its remote id
	InsertProduct(ctx context.Context, payload ERPProductPayload) (int64, error)

	// CountProducts returns how many products a category holds
	CountProducts(ctx context.Context, categoryID int64) (int, error)

	// ListProducts returns one page of a category's products
	ListProducts(ctx context.Context, categoryID int64, offset, qty int) ([]ERPProduct, error)
}

// ERPCatalogMirror is the local copy of the ERP catalog used for conflict detection
type ERPCatalogMirror interface {
	// All returns every mirrored product
	All(ctx context.Context) ([]ERPProduct, error)

	// Upsert stores a product and reports whether it was newly added
	Upsert(ctx context.Context, product ERPProduct) (created bool, err error)

	// DeleteMissing removes rows whose id is not in keep; an empty keep removes everything
	DeleteMissing(ctx context.Context, keep []int64) (int64, error)
}

// ---------------------------------------------------------------------------
// Store port
// ---------------------------------------------------------------------------

// ShopVariant is a store variant, as written or as read back
type ShopVariant struct {
	ID                  int64  `json:"id,omitempty"`
	InventoryItemID     int64  `json:"inventory_item_id,omitempty"`
	Title               string `json:"title,omitempty"`
	Option1             string `json:"option1"`
	Price               string `json:"price"`
	Cost                string `json:"cost,omitempty"`
	SKU                 string `json:"sku"`
	Barcode             string `json:"barcode"`
	InventoryManagement string `json:"inventory_management,omitempty"`
	InventoryQuantity   int    `json:"inventory_quantity"`
	Taxable             bool   `json:"taxable"`
	RequiresShipping    bool   `json:"requires_shipping"`
}

// ShopOption is a product option axis
type ShopOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// ShopProduct is a store product, as written or as read back
type ShopProduct struct {
	ID             int64         `json:"id,omitempty"`
	Title          string        `json:"title"`
	BodyHTML       string        `json:"body_html"`
	Vendor         string        `json:"vendor"`
	ProductType    string        `json:"product_type"`
	Status         string        `json:"status"`
	PublishedScope string        `json:"published_scope,omitempty"`
	Tags           string        `json:"tags"`
	Options        []ShopOption  `json:"options"`
	Variants       []ShopVariant `json:"variants"`
}

// ShopLocation is an inventory location of the store
type ShopLocation struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// ShopPlatform is the port to the web store
type ShopPlatform interface {
	// CreateProduct creates a product with all its variants and returns it as stored
	CreateProduct(ctx context.Context, product ShopProduct) (*ShopProduct, error)

	// Locations lists inventory locations
	Locations(ctx context.Context) ([]ShopLocation, error)

	// SetInventoryLevel sets the available quantity of an inventory item at a location
	SetInventoryLevel(ctx context.Context, inventoryItemID, locationID int64, available int) error

	// Products pages through the whole store catalog
	Products(ctx context.Context) ([]ShopProduct, error)
}
