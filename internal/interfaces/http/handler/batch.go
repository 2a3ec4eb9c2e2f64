package handler

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sechic/backend/internal/application/catalogsync"
	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/sechic/backend/internal/domain/pricing"
	"github.com/sechic/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// BatchOperations is the batch editing surface used by BatchHandler
type BatchOperations interface {
	Import(ctx context.Context, in catalogsync.ImportInput) (*catalog.Batch, error)
	Get(ctx context.Context, id uuid.UUID) (*catalog.Batch, error)
	EditProduct(ctx context.Context, id uuid.UUID, index int, edited catalog.Product) (*catalogsync.EditOutcome, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, index int) (*catalog.Batch, error)
	DeleteVariant(ctx context.Context, id uuid.UUID, productIndex, variantIndex int) (*catalog.Batch, error)
	RewriteBarcodePrefix(ctx context.Context, id uuid.UUID, prefix string) (*catalog.Batch, error)
	ApplyMarkup(ctx context.Context, id uuid.UUID, in catalogsync.MarkupInput) (*catalogsync.MarkupOutcome, error)
	ChangeSupplierMarkup(ctx context.Context, id uuid.UUID, in catalogsync.SupplierMarkupInput) (*catalogsync.MarkupOutcome, error)
	CurrentMarkup(ctx context.Context, supplier string) (decimal.Decimal, error)
	MarkupHistory(ctx context.Context, supplier string) ([]pricing.SupplierMarkup, error)
}

// DocumentLinker issues temporary download links for archived invoices
type DocumentLinker interface {
	DownloadURL(ctx context.Context, key string) (string, time.Time, error)
}

// maxUploadSize caps invoice uploads
const maxUploadSize = 20 << 20

// BatchHandler handles invoice import and batch editing endpoints
type BatchHandler struct {
	BaseHandler
	batches   BatchOperations
	documents DocumentLinker
	companyID string
}

// NewBatchHandler creates a BatchHandler. documents may be nil when no
// archive is configured.
func NewBatchHandler(batches BatchOperations, documents DocumentLinker, companyID string) *BatchHandler {
	return &BatchHandler{
		batches:   batches,
		documents: documents,
		companyID: companyID,
	}
}

// VariantRequest is one color/size line of an edited product
type VariantRequest struct {
	ColorCode string          `json:"color_code" binding:"max=16"`
	ColorName string          `json:"color_name" binding:"max=64"`
	Size      string          `json:"size" binding:"max=32"`
	Quantity  int             `json:"quantity" binding:"gte=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	SalePrice decimal.Decimal `json:"sales_price"`
	Barcode   string          `json:"barcode" binding:"max=32"`
}

// EditProductRequest replaces one product of a batch
type EditProductRequest struct {
	MaterialCode string           `json:"material_code" binding:"max=64"`
	Name         string           `json:"name" binding:"max=255"`
	Composition  string           `json:"composition" binding:"max=255"`
	Category     string           `json:"category" binding:"max=128"`
	Gender       string           `json:"gender" binding:"max=32"`
	Brand        string           `json:"brand" binding:"max=128"`
	Supplier     string           `json:"supplier" binding:"max=128"`
	Date         string           `json:"date" binding:"max=32"`
	Warehouse    string           `json:"warehouse" binding:"max=32"`
	Variants     []VariantRequest `json:"details" binding:"dive"`
}

func (r EditProductRequest) toProduct() catalog.Product {
	p := catalog.Product{
		MaterialCode: r.MaterialCode,
		Name:         r.Name,
		Composition:  r.Composition,
		Category:     r.Category,
		Gender:       catalog.Gender(r.Gender),
		Brand:        r.Brand,
		Supplier:     r.Supplier,
		Date:         r.Date,
		Warehouse:    r.Warehouse,
		Variants:     make([]catalog.Variant, 0, len(r.Variants)),
	}
	for _, v := range r.Variants {
		p.Variants = append(p.Variants, catalog.Variant{
			ColorCode: v.ColorCode,
			ColorName: v.ColorName,
			Size:      v.Size,
			Quantity:  v.Quantity,
			UnitPrice: v.UnitPrice,
			SalePrice: v.SalePrice,
			Barcode:   v.Barcode,
		})
	}
	return p
}

// BarcodePrefixRequest rewrites the season prefix of every barcode
type BarcodePrefixRequest struct {
	Prefix string `json:"prefix" binding:"required,barcode_prefix"`
}

// MarkupRequest reprices a batch, or one supplier's products when Supplier is set
type MarkupRequest struct {
	Markup   decimal.Decimal `json:"markup"`
	Supplier string          `json:"supplier" binding:"max=128"`
}

// SupplierMarkupRequest stores a supplier markup and reprices the batch
type SupplierMarkupRequest struct {
	Supplier       string          `json:"supplier" binding:"required,max=128"`
	Markup         decimal.Decimal `json:"markup"`
	ChangeSupplier bool            `json:"change_supplier"`
}

// MarkupResponse is a supplier's current markup and history
type MarkupResponse struct {
	Supplier string                   `json:"supplier"`
	Markup   decimal.Decimal          `json:"markup"`
	History  []pricing.SupplierMarkup `json:"history"`
}

// DocumentResponse is a temporary link to an archived invoice
type DocumentResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Import handles POST /imports
func (h *BatchHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.Error(c, dto.ErrCodeRequiredField, "file is required")
		return
	}
	if fileHeader.Size > maxUploadSize {
		h.Error(c, dto.ErrCodeRequestTooLarge, "Invoice exceeds maximum allowed size")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded file")
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxUploadSize))
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded file")
		return
	}

	batch, err := h.batches.Import(c.Request.Context(), catalogsync.ImportInput{
		CompanyID:   h.companyID,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, batch)
}

// Get handles GET /batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	batch, err := h.batches.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// Document handles GET /batches/:id/document
func (h *BatchHandler) Document(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	batch, err := h.batches.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if h.documents == nil || batch.DocumentKey == "" {
		h.Error(c, dto.ErrCodeNotFound, "No archived document for this batch")
		return
	}

	url, expiresAt, err := h.documents.DownloadURL(c.Request.Context(), batch.DocumentKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, DocumentResponse{URL: url, ExpiresAt: expiresAt})
}

// EditProduct handles PUT /batches/:id/products/:index
func (h *BatchHandler) EditProduct(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	index, ok := h.pathIndex(c, "index")
	if !ok {
		return
	}
	var req EditProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	outcome, err := h.batches.EditProduct(c.Request.Context(), id, index, req.toProduct())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}

// DeleteProduct handles DELETE /batches/:id/products/:index
func (h *BatchHandler) DeleteProduct(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	index, ok := h.pathIndex(c, "index")
	if !ok {
		return
	}

	batch, err := h.batches.DeleteProduct(c.Request.Context(), id, index)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// DeleteVariant handles DELETE /batches/:id/products/:index/variants/:variant
func (h *BatchHandler) DeleteVariant(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	index, ok := h.pathIndex(c, "index")
	if !ok {
		return
	}
	variant, ok := h.pathIndex(c, "variant")
	if !ok {
		return
	}

	batch, err := h.batches.DeleteVariant(c.Request.Context(), id, index, variant)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// RewriteBarcodePrefix handles POST /batches/:id/barcode-prefix
func (h *BatchHandler) RewriteBarcodePrefix(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req BarcodePrefixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	batch, err := h.batches.RewriteBarcodePrefix(c.Request.Context(), id, req.Prefix)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// ApplyMarkup handles POST /batches/:id/markups
func (h *BatchHandler) ApplyMarkup(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req MarkupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	outcome, err := h.batches.ApplyMarkup(c.Request.Context(), id, catalogsync.MarkupInput{
		Markup:    req.Markup,
		Supplier:  strings.TrimSpace(req.Supplier),
		CreatedBy: actor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}

// ChangeSupplierMarkup handles POST /batches/:id/supplier-markup
func (h *BatchHandler) ChangeSupplierMarkup(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req SupplierMarkupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	outcome, err := h.batches.ChangeSupplierMarkup(c.Request.Context(), id, catalogsync.SupplierMarkupInput{
		Supplier:       strings.TrimSpace(req.Supplier),
		Markup:         req.Markup,
		ChangeSupplier: req.ChangeSupplier,
		CreatedBy:      actor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}

// GetMarkup handles GET /markups/:supplier
func (h *BatchHandler) GetMarkup(c *gin.Context) {
	supplier := strings.TrimSpace(c.Param("supplier"))
	if supplier == "" {
		h.Error(c, dto.ErrCodeRequiredField, "supplier is required")
		return
	}
	ctx := c.Request.Context()

	markup, err := h.batches.CurrentMarkup(ctx, supplier)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	history, err := h.batches.MarkupHistory(ctx, supplier)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if history == nil {
		history = []pricing.SupplierMarkup{}
	}
	h.Success(c, MarkupResponse{Supplier: supplier, Markup: markup, History: history})
}
