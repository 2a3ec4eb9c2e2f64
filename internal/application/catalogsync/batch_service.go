package catalogsync

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/sechic/backend/internal/domain/pricing"
	"github.com/sechic/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ImportInput is an uploaded invoice
type ImportInput struct {
	CompanyID   string
	Filename    string
	ContentType string
	Content     []byte
}

// MarkupInput reprices a batch with a multiplier.
// With a supplier only that supplier's products are repriced and the markup
// becomes the supplier's active one.
type MarkupInput struct {
	Markup    decimal.Decimal
	Supplier  string
	CreatedBy string
}

// SupplierMarkupInput reprices a batch for a supplier, optionally moving every
// product to that supplier first
type SupplierMarkupInput struct {
	Supplier       string
	Markup         decimal.Decimal
	ChangeSupplier bool
	CreatedBy      string
}

// MarkupOutcome reports a repricing
type MarkupOutcome struct {
	Batch        *catalog.Batch  `json:"batch"`
	Repriced     int             `json:"repriced"`
	ActiveMarkup decimal.Decimal `json:"active_markup"`
	Message      string          `json:"message"`
}

// EditOutcome reports a product edit
type EditOutcome struct {
	Batch           *catalog.Batch `json:"batch"`
	UnresolvedSizes []string       `json:"unresolved_sizes,omitempty"`
}

// BatchService imports invoices and applies user edits to working batches
type BatchService struct {
	batches    catalog.BatchRepository
	references catalog.ReferenceRepository
	markups    pricing.MarkupRepository
	extractor  Extractor
	archive    DocumentArchive
	normalizer *catalog.Normalizer
	engine     *pricing.Engine
	logger     *zap.Logger
}

// NewBatchService creates a batch service. archive may be nil.
func NewBatchService(
	batches catalog.BatchRepository,
	references catalog.ReferenceRepository,
	markups pricing.MarkupRepository,
	extractor Extractor,
	archive DocumentArchive,
	logger *zap.Logger,
) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{
		batches:    batches,
		references: references,
		markups:    markups,
		extractor:  extractor,
		archive:    archive,
		normalizer: catalog.NewNormalizer(),
		engine:     pricing.NewEngine(),
		logger:     logger,
	}
}

// ---------------------------------------------------------------------------
// Import
// ---------------------------------------------------------------------------

// Import archives the invoice, extracts and normalizes its products, prices
// them with each supplier's current markup, assigns missing barcodes and
// stores the resulting batch
func (s *BatchService) Import(ctx context.Context, in ImportInput) (*catalog.Batch, error) {
	if len(in.Content) == 0 {
		return nil, shared.NewFieldError(catalog.ErrCodeRequiredField, "file", "file is required")
	}

	documentKey := s.archiveDocument(ctx, in)

	raw, err := s.extractor.Extract(ctx, in.Filename, in.Content)
	if err != nil {
		s.logger.Error("Invoice extraction failed", zap.String("filename", in.Filename), zap.Error(err))
		return nil, err
	}

	info, products := s.normalizer.Normalize(*raw)

	s.applyCurrentMarkups(ctx, products)

	gen := catalog.NewIdentityGenerator(s.tables(ctx, in.CompanyID))
	season := catalog.SeasonFromLabel(info.Season)
	for i := range products {
		s.warnUnresolved(products[i].MaterialCode, gen.AssignMissingBarcodes(&products[i], season))
	}

	batch := catalog.NewBatch(in.CompanyID, info, products)
	batch.DocumentKey = documentKey
	batch.BarcodeSeason = season
	if err := s.batches.Save(ctx, batch); err != nil {
		return nil, err
	}

	s.logger.Info("Invoice imported",
		zap.String("batch_id", batch.ID.String()),
		zap.String("supplier", info.Supplier),
		zap.Int("products", len(batch.Products)),
		zap.Int("variants", batch.VariantCount()),
	)
	return batch, nil
}

func (s *BatchService) archiveDocument(ctx context.Context, in ImportInput) string {
	if s.archive == nil {
		return ""
	}
	name := path.Base(strings.ReplaceAll(in.Filename, "\\", "/"))
	if name == "." || name == "/" {
		name = "invoice.pdf"
	}
	key := fmt.Sprintf("invoices/%s/%s/%s", in.CompanyID, uuid.NewString(), name)
	stored, err := s.archive.Put(ctx, key, in.Content, in.ContentType)
	if err != nil {
		s.logger.Warn("Invoice archive failed, continuing without archived copy", zap.String("key", key), zap.Error(err))
		return ""
	}
	return stored
}

func (s *BatchService) applyCurrentMarkups(ctx context.Context, products []catalog.Product) {
	bySupplier := make(map[string]decimal.Decimal)
	for i := range products {
		key := catalog.FoldKey(products[i].Supplier)
		markup, ok := bySupplier[key]
		if !ok {
			var err error
			markup, err = pricing.CurrentMarkup(ctx, s.markups, products[i].Supplier)
			if err != nil {
				s.logger.Warn("Markup lookup failed, using default",
					zap.String("supplier", products[i].Supplier), zap.Error(err))
				markup = pricing.DefaultMarkup
			}
			bySupplier[key] = markup
		}
		s.engine.Apply(products[i:i+1], markup, pricing.ScopeAll())
	}
}

func (s *BatchService) tables(ctx context.Context, companyID string) *catalog.ReferenceTables {
	tables, err := s.references.Tables(ctx, companyID)
	if err != nil {
		s.logger.Warn("Reference tables unavailable, codes fall back to defaults",
			zap.String("company_id", companyID), zap.Error(err))
		return catalog.EmptyReferenceTables()
	}
	for _, r := range tables.Rejected() {
		s.logger.Warn("Reference code too wide for its barcode field, ignoring it",
			zap.String("company_id", companyID),
			zap.String("table", r.Table),
			zap.String("name", r.Name),
			zap.String("code", r.Code),
		)
	}
	return tables
}

func (s *BatchService) warnUnresolved(materialCode string, sizes []string) {
	for _, size := range sizes {
		s.logger.Warn("Size has no barcode code, using 000",
			zap.String("material_code", materialCode), zap.String("size", size))
	}
}

// ---------------------------------------------------------------------------
// Batch edits
// ---------------------------------------------------------------------------

// Get returns a batch
func (s *BatchService) Get(ctx context.Context, id uuid.UUID) (*catalog.Batch, error) {
	return s.batches.FindByID(ctx, id)
}

// mutate loads a batch, applies fn and stores the result when fn succeeds
func (s *BatchService) mutate(ctx context.Context, id uuid.UUID, fn func(b *catalog.Batch) error) (*catalog.Batch, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(batch); err != nil {
		return nil, err
	}
	if err := s.batches.Save(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// EditProduct replaces a product and regenerates its identities
func (s *BatchService) EditProduct(ctx context.Context, id uuid.UUID, index int, edited catalog.Product) (*EditOutcome, error) {
	var unresolved []string
	batch, err := s.mutate(ctx, id, func(b *catalog.Batch) error {
		gen := catalog.NewIdentityGenerator(s.tables(ctx, b.CompanyID))
		var err error
		unresolved, err = b.EditProduct(index, edited, gen)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.warnUnresolved(edited.MaterialCode, unresolved)
	return &EditOutcome{Batch: batch, UnresolvedSizes: unresolved}, nil
}

// DeleteProduct removes a product and renumbers the rest
func (s *BatchService) DeleteProduct(ctx context.Context, id uuid.UUID, index int) (*catalog.Batch, error) {
	return s.mutate(ctx, id, func(b *catalog.Batch) error {
		return b.DeleteProduct(index)
	})
}

// DeleteVariant removes a variant and reindexes its siblings
func (s *BatchService) DeleteVariant(ctx context.Context, id uuid.UUID, productIndex, variantIndex int) (*catalog.Batch, error) {
	return s.mutate(ctx, id, func(b *catalog.Batch) error {
		return b.DeleteVariant(productIndex, variantIndex)
	})
}

// RewriteBarcodePrefix replaces the season prefix of every barcode
func (s *BatchService) RewriteBarcodePrefix(ctx context.Context, id uuid.UUID, prefix string) (*catalog.Batch, error) {
	if err := catalog.ValidateBarcodePrefix(prefix); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(b *catalog.Batch) error {
		return b.RewriteBarcodePrefix(prefix)
	})
}

// ---------------------------------------------------------------------------
// Markups
// ---------------------------------------------------------------------------

// ApplyMarkup reprices the batch
func (s *BatchService) ApplyMarkup(ctx context.Context, id uuid.UUID, in MarkupInput) (*MarkupOutcome, error) {
	if err := pricing.ValidateMultiplier(in.Markup); err != nil {
		return nil, err
	}

	scope := pricing.ScopeAll()
	if strings.TrimSpace(in.Supplier) != "" {
		scope = pricing.ScopeSupplier(in.Supplier)
	}

	repriced := 0
	batch, err := s.mutate(ctx, id, func(b *catalog.Batch) error {
		repriced = s.engine.Apply(b.Products, in.Markup, scope)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Supplier) != "" {
		s.persistMarkup(ctx, in.Supplier, in.Markup, in.CreatedBy)
	}

	return &MarkupOutcome{
		Batch:        batch,
		Repriced:     repriced,
		ActiveMarkup: in.Markup,
		Message:      fmt.Sprintf("Sale prices recalculated x %s", in.Markup.String()),
	}, nil
}

// ChangeSupplierMarkup reprices the batch for a supplier and makes the markup
// the supplier's active one
func (s *BatchService) ChangeSupplierMarkup(ctx context.Context, id uuid.UUID, in SupplierMarkupInput) (*MarkupOutcome, error) {
	if err := pricing.ValidateMarkup(in.Supplier, in.Markup); err != nil {
		return nil, err
	}

	scope := pricing.ScopeSupplier(in.Supplier)
	if in.ChangeSupplier {
		scope = pricing.ScopeSupplierChange(strings.TrimSpace(in.Supplier))
	}

	repriced := 0
	batch, err := s.mutate(ctx, id, func(b *catalog.Batch) error {
		repriced = s.engine.Apply(b.Products, in.Markup, scope)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.persistMarkup(ctx, in.Supplier, in.Markup, in.CreatedBy)

	message := fmt.Sprintf("Sale prices recalculated with markup %s", in.Markup.String())
	if in.ChangeSupplier {
		message = fmt.Sprintf("Supplier changed to %s. %s", strings.TrimSpace(in.Supplier), message)
	}
	return &MarkupOutcome{Batch: batch, Repriced: repriced, ActiveMarkup: in.Markup, Message: message}, nil
}

// persistMarkup records the markup in the supplier's history.
// The batch is already repriced, so failures are logged only.
func (s *BatchService) persistMarkup(ctx context.Context, supplier string, markup decimal.Decimal, createdBy string) {
	if _, err := s.markups.Activate(ctx, supplier, markup, createdBy); err != nil {
		s.logger.Error("Failed to persist supplier markup",
			zap.String("supplier", supplier), zap.String("markup", markup.String()), zap.Error(err))
	}
}

// CurrentMarkup returns the multiplier applied to a supplier's imports
func (s *BatchService) CurrentMarkup(ctx context.Context, supplier string) (decimal.Decimal, error) {
	return pricing.CurrentMarkup(ctx, s.markups, supplier)
}

// MarkupHistory lists a supplier's markups, newest first
func (s *BatchService) MarkupHistory(ctx context.Context, supplier string) ([]pricing.SupplierMarkup, error) {
	return s.markups.History(ctx, supplier)
}
