package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/sechic/backend/internal/domain/integration"
	"github.com/sechic/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	// DefaultSyncLockTTL bounds how long a crashed run can block the next one
	DefaultSyncLockTTL = 30 * time.Minute

	// maxFlagAttempts bounds the reload-and-save cycles of markIntegrated
	maxFlagAttempts = 3
)

// SyncServiceConfig wires the sync service.
// ERP and Shop may be nil when a target is not configured.
type SyncServiceConfig struct {
	Batches   catalog.BatchRepository
	ERP       integration.ERPPlatform
	Shop      integration.ShopPlatform
	Mirror    integration.ERPCatalogMirror
	Lock      integration.SyncLock
	ERPPacer  Pacer
	ShopPacer Pacer
	Recorder  SyncRecorder
	LockTTL   time.Duration
	Logger    *zap.Logger
}

// SyncService pushes batches to the ERP and the web store.
// Writes are sequential and paced; there is no idempotency, so callers run the
// comparison first and sync only the safe products.
type SyncService struct {
	batches   catalog.BatchRepository
	erp       integration.ERPPlatform
	shop      integration.ShopPlatform
	mirror    integration.ERPCatalogMirror
	lock      integration.SyncLock
	erpPacer  Pacer
	shopPacer Pacer
	recorder  SyncRecorder
	lockTTL   time.Duration
	logger    *zap.Logger
}

// NewSyncService creates a sync service
func NewSyncService(cfg SyncServiceConfig) *SyncService {
	s := &SyncService{
		batches:   cfg.Batches,
		erp:       cfg.ERP,
		shop:      cfg.Shop,
		mirror:    cfg.Mirror,
		lock:      cfg.Lock,
		erpPacer:  cfg.ERPPacer,
		shopPacer: cfg.ShopPacer,
		recorder:  cfg.Recorder,
		lockTTL:   cfg.LockTTL,
		logger:    cfg.Logger,
	}
	if s.erpPacer == nil {
		s.erpPacer = noPacer{}
	}
	if s.shopPacer == nil {
		s.shopPacer = noPacer{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.lockTTL <= 0 {
		s.lockTTL = DefaultSyncLockTTL
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func lockKey(companyID string) string {
	return "batch_sync_" + companyID
}

// withLock runs fn while holding the company's sync flag
func (s *SyncService) withLock(ctx context.Context, companyID string, fn func() error) error {
	if s.lock == nil {
		return fn()
	}
	token, acquired, err := s.lock.Acquire(ctx, lockKey(companyID), s.lockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		return integration.ErrSyncAlreadyRunning
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), lockKey(companyID), token); err != nil {
			s.logger.Warn("Failed to release sync flag", zap.String("company_id", companyID), zap.Error(err))
		}
	}()
	return fn()
}

// ---------------------------------------------------------------------------
// ERP
// ---------------------------------------------------------------------------

// SyncERP inserts one ERP product per variant. With indices only the products
// at those batch positions are pushed.
// An authentication failure stops the run and is returned with the partial result.
func (s *SyncService) SyncERP(ctx context.Context, batchID uuid.UUID, indices []int) (*integration.SyncResult, error) {
	if s.erp == nil {
		return nil, integration.ErrPlatformNotConfigured
	}
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	var result *integration.SyncResult
	err = s.withLock(ctx, batch.CompanyID, func() error {
		var runErr error
		result, runErr = s.syncERP(ctx, batch, indices)
		return runErr
	})
	return result, err
}

func (s *SyncService) syncERP(ctx context.Context, batch *catalog.Batch, indices []int) (*integration.SyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog_sync", "sync_erp",
		telemetry.WithAttribute("batch_id", batch.ID.String()))
	defer span.End()
	started := time.Now()

	refData, err := s.erp.ReferenceData(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to load ERP reference data", zap.Error(err))
		return nil, err
	}

	positions := selectPositions(len(batch.Products), indices)
	result := integration.NewSyncResult(integration.PlatformCodeMoloni)
	result.Metrics.Total = len(positions)
	for _, pi := range positions {
		result.Metrics.TotalVariants += len(batch.Products[pi].Variants)
	}

	var runErr error
products:
	for _, pi := range positions {
		product := &batch.Products[pi]
		if len(product.Variants) == 0 {
			s.logger.Warn("Product has no variants, skipping", zap.String("name", product.Name))
			result.Metrics.Skipped++
			continue
		}
		for vi := range product.Variants {
			if err := s.erpPacer.Wait(ctx); err != nil {
				runErr = err
				break products
			}
			item, err := s.insertVariant(ctx, refData, product, &product.Variants[vi], pi)
			result.Record(item)
			s.recorder.RecordItem(ctx, integration.PlatformCodeMoloni, item.Success)
			if errors.Is(err, integration.ErrPlatformAuthFailed) {
				runErr = err
				break products
			}
		}
	}

	result.Finish(runErr != nil)
	s.recorder.RecordRun(ctx, integration.PlatformCodeMoloni, result.Status, time.Since(started))
	telemetry.SetAttributes(span, "created", result.Metrics.Created, "failed", result.Metrics.Failed)
	if runErr != nil {
		telemetry.RecordError(span, runErr)
	}

	if result.Complete() {
		pushed := make(map[string]bool)
		for _, pi := range positions {
			p := &batch.Products[pi]
			for _, v := range p.Variants {
				pushed[variantKey(p.MaterialCode, v.Reference)] = true
			}
		}
		s.markIntegrated(ctx, batch.ID, func(p *catalog.Product) bool {
			for _, v := range p.Variants {
				if pushed[variantKey(p.MaterialCode, v.Reference)] {
					return true
				}
			}
			return false
		})
	}

	s.logger.Info(result.Message,
		zap.String("batch_id", batch.ID.String()),
		zap.String("status", string(result.Status)),
	)
	return result, runErr
}

func (s *SyncService) insertVariant(
	ctx context.Context,
	refData *integration.ERPReferenceData,
	product *catalog.Product,
	variant *catalog.Variant,
	productIndex int,
) (item integration.ItemResult, err error) {
	item = integration.ItemResult{
		Reference:    variant.Reference,
		Name:         variant.Description,
		ProductIndex: productIndex,
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic while inserting variant",
				zap.String("reference", variant.Reference), zap.Any("panic", r))
			item.Success = false
			item.Action = integration.ActionException
			item.ErrorCode = integration.ErrCodeSyncItemPanic
			item.Error = fmt.Sprint(r)
			err = nil
		}
	}()

	payload, fallbacks := refData.BuildERPProduct(product, variant)
	item.Name = payload.Name
	s.warnFallbacks(variant.Reference, fallbacks)

	id, err := s.erp.InsertProduct(ctx, payload)
	if err != nil {
		s.logger.Error("Failed to create ERP product", zap.String("reference", variant.Reference), zap.Error(err))
		item.Action = integration.ActionCreateFailed
		item.ErrorCode = integration.ErrorCode(err)
		item.Error = err.Error()
		return item, err
	}

	item.Success = true
	item.Action = integration.ActionCreated
	item.RemoteID = id

	if s.mirror != nil {
		mirrored := integration.ERPProduct{
			ProductID:  id,
			CategoryID: payload.CategoryID,
			Name:       payload.Name,
			Reference:  payload.Reference,
			EAN:        payload.EAN,
			Price:      payload.Price,
		}
		if _, err := s.mirror.Upsert(ctx, mirrored); err != nil {
			s.logger.Warn("Failed to mirror created ERP product", zap.Int64("product_id", id), zap.Error(err))
		}
	}
	return item, nil
}

func (s *SyncService) warnFallbacks(reference string, fallbacks []integration.Fallback) {
	for _, f := range fallbacks {
		s.logger.Warn("ERP record not found, using default",
			zap.String("reference", reference),
			zap.String("field", f.Field),
			zap.String("name", f.Name),
			zap.Int64("default_id", f.Default.ID),
			zap.String("default_name", f.Default.Name),
		)
	}
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// SyncShop consolidates the batch by color and creates one store product per
// group, then sets the stock of every variant at the first location. With
// indices only the consolidated products at those positions are pushed.
func (s *SyncService) SyncShop(ctx context.Context, batchID uuid.UUID, indices []int) (*integration.SyncResult, error) {
	if s.shop == nil {
		return nil, integration.ErrPlatformNotConfigured
	}
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	var result *integration.SyncResult
	err = s.withLock(ctx, batch.CompanyID, func() error {
		var runErr error
		result, runErr = s.syncShop(ctx, batch, indices)
		return runErr
	})
	return result, err
}

func (s *SyncService) syncShop(ctx context.Context, batch *catalog.Batch, indices []int) (*integration.SyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog_sync", "sync_shop",
		telemetry.WithAttribute("batch_id", batch.ID.String()))
	defer span.End()
	started := time.Now()

	consolidated, info := integration.Consolidate(batch.Products)
	if indices != nil {
		consolidated = integration.FilterByIndices(consolidated, indices)
		info = integration.Summarize(batch.Products, consolidated)
	}

	locations, err := s.shop.Locations(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(locations) == 0 {
		return nil, integration.ErrNoLocation
	}
	locationID := locations[0].ID

	result := integration.NewSyncResult(integration.PlatformCodeShopify)
	result.Metrics.OriginalProducts = info.OriginalProducts
	result.Metrics.OriginalVariants = info.OriginalVariants
	result.Metrics.ProductsMerged = info.ProductsMerged()
	result.Metrics.ConsolidatedProducts = info.ConsolidatedProducts
	result.Metrics.ConsolidatedVariants = info.ConsolidatedVariants
	result.Metrics.Total = len(consolidated)
	result.Metrics.TotalVariants = info.ConsolidatedVariants

	var runErr error
	synced := make(map[string]bool, len(consolidated))
	for i := range consolidated {
		if err := s.shopPacer.Wait(ctx); err != nil {
			runErr = err
			break
		}
		item, err := s.createShopProduct(ctx, &consolidated[i], locationID)
		result.Record(item)
		s.recorder.RecordItem(ctx, integration.PlatformCodeShopify, item.Success)
		if item.Success {
			synced[consolidated[i].Key] = true
		}
		if errors.Is(err, integration.ErrPlatformAuthFailed) {
			runErr = err
			break
		}
	}

	result.Finish(runErr != nil)
	s.recorder.RecordRun(ctx, integration.PlatformCodeShopify, result.Status, time.Since(started))
	telemetry.SetAttributes(span, "created", result.Metrics.Created, "failed", result.Metrics.Failed)
	if runErr != nil {
		telemetry.RecordError(span, runErr)
	}

	if result.Complete() {
		s.markIntegrated(ctx, batch.ID, func(p *catalog.Product) bool {
			for _, v := range p.Variants {
				if synced[integration.ConsolidationKey(p.MaterialCode, v.ColorName)] {
					return true
				}
			}
			return false
		})
	}

	s.logger.Info(result.Message,
		zap.String("batch_id", batch.ID.String()),
		zap.String("status", string(result.Status)),
	)
	return result, runErr
}

func (s *SyncService) createShopProduct(
	ctx context.Context,
	product *integration.ConsolidatedProduct,
	locationID int64,
) (item integration.ItemResult, err error) {
	item = integration.ItemResult{
		Reference:    product.Key,
		Name:         product.Name,
		ProductIndex: product.ProductID,
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic while creating store product",
				zap.String("key", product.Key), zap.Any("panic", r))
			item.Success = false
			item.Action = integration.ActionException
			item.ErrorCode = integration.ErrCodeSyncItemPanic
			item.Error = fmt.Sprint(r)
			err = nil
		}
	}()

	created, err := s.shop.CreateProduct(ctx, product.ToShopProduct())
	if err != nil {
		s.logger.Error("Failed to create store product", zap.String("key", product.Key), zap.Error(err))
		item.Action = integration.ActionCreateFailed
		item.ErrorCode = integration.ErrorCode(err)
		item.Error = err.Error()
		return item, err
	}

	item.Success = true
	item.Action = integration.ActionCreated
	item.RemoteID = created.ID
	item.Variants = len(created.Variants)

	quantities := product.QuantityBySKU()
	for _, v := range created.Variants {
		qty := quantities[v.SKU]
		if v.InventoryItemID == 0 || qty <= 0 {
			continue
		}
		if err := s.shop.SetInventoryLevel(ctx, v.InventoryItemID, locationID, qty); err != nil {
			s.logger.Warn("Failed to set variant stock", zap.String("sku", v.SKU), zap.Error(err))
			item.Warnings = append(item.Warnings, fmt.Sprintf("stock for %s: %v", v.SKU, err))
		}
	}
	return item, nil
}

// ---------------------------------------------------------------------------
// Both
// ---------------------------------------------------------------------------

// SyncBoth pushes the whole batch to the ERP and then to the store.
// A failure on one target does not prevent the other.
func (s *SyncService) SyncBoth(ctx context.Context, batchID uuid.UUID) (*integration.CombinedResult, error) {
	erpResult, erpErr := s.SyncERP(ctx, batchID, nil)
	if erpErr != nil && erpResult == nil {
		s.logger.Warn("ERP sync did not run", zap.Error(erpErr))
		erpResult = failedRun(integration.PlatformCodeMoloni, erpErr)
	}
	shopResult, shopErr := s.SyncShop(ctx, batchID, nil)
	if shopErr != nil && shopResult == nil {
		s.logger.Warn("Store sync did not run", zap.Error(shopErr))
		shopResult = failedRun(integration.PlatformCodeShopify, shopErr)
	}

	combined := integration.NewCombinedResult(erpResult, shopResult)
	for _, err := range []error{erpErr, shopErr} {
		if errors.Is(err, integration.ErrPlatformAuthFailed) || errors.Is(err, catalog.ErrBatchNotFound) {
			return combined, err
		}
	}
	return combined, nil
}

func failedRun(platform integration.PlatformCode, err error) *integration.SyncResult {
	r := integration.NewSyncResult(platform)
	r.Status = integration.SyncStatusFailed
	r.SyncedAt = time.Now()
	r.Message = err.Error()
	return r
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// selectPositions returns the in-range indices, or every position when indices is nil
func selectPositions(n int, indices []int) []int {
	if indices == nil {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	positions := make([]int, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < n {
			positions = append(positions, i)
		}
	}
	return positions
}

func variantKey(materialCode, reference string) string {
	return materialCode + "|" + reference
}

// markIntegrated flags the products matched by pushed on the stored batch.
// The batch is reloaded rather than reusing the copy the run started from,
// so edits made while the run was in flight survive.
func (s *SyncService) markIntegrated(ctx context.Context, batchID uuid.UUID, pushed func(p *catalog.Product) bool) {
	ctx = context.WithoutCancel(ctx)
	for attempt := 1; ; attempt++ {
		batch, err := s.batches.FindByID(ctx, batchID)
		if err != nil {
			s.logger.Warn("Failed to reload batch for integrated flags", zap.String("batch_id", batchID.String()), zap.Error(err))
			return
		}

		var positions []int
		for i := range batch.Products {
			if pushed(&batch.Products[i]) {
				positions = append(positions, i)
			}
		}
		if len(positions) == 0 {
			return
		}
		batch.MarkIntegrated(positions...)

		err = s.batches.Save(ctx, batch)
		if err == nil {
			return
		}
		if !errors.Is(err, catalog.ErrBatchConflict) || attempt == maxFlagAttempts {
			s.logger.Warn("Failed to store integrated flags",
				zap.String("batch_id", batchID.String()), zap.Int("attempt", attempt), zap.Error(err))
			return
		}
	}
}
