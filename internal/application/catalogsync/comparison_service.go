package catalogsync

import (
	"context"

	"github.com/google/uuid"
	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/sechic/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// ComparisonService runs pre-sync conflict detection for a batch
type ComparisonService struct {
	batches catalog.BatchRepository
	mirror  integration.ERPCatalogMirror
	shop    integration.ShopPlatform
	logger  *zap.Logger
}

// NewComparisonService creates a comparison service. shop may be nil when the
// store is not configured.
func NewComparisonService(
	batches catalog.BatchRepository,
	mirror integration.ERPCatalogMirror,
	shop integration.ShopPlatform,
	logger *zap.Logger,
) *ComparisonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComparisonService{batches: batches, mirror: mirror, shop: shop, logger: logger}
}

// CompareERP checks the batch against the mirrored ERP catalog
func (s *ComparisonService) CompareERP(ctx context.Context, batchID uuid.UUID) (*integration.ComparisonResult, error) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.mirror.All(ctx)
	if err != nil {
		s.logger.Error("Failed to load ERP catalog mirror", zap.Error(err))
		return nil, err
	}

	result := integration.DetectERPConflicts(batch.Products, snapshot)
	s.logResult(batchID, result)
	return result, nil
}

// CompareShop checks the consolidated batch against the live store catalog
func (s *ComparisonService) CompareShop(ctx context.Context, batchID uuid.UUID) (*integration.ComparisonResult, error) {
	if s.shop == nil {
		return nil, integration.ErrPlatformNotConfigured
	}
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.shop.Products(ctx)
	if err != nil {
		s.logger.Error("Failed to load store catalog", zap.Error(err))
		return nil, err
	}

	result := integration.DetectShopConflicts(batch.Products, snapshot)
	s.logResult(batchID, result)
	return result, nil
}

func (s *ComparisonService) logResult(batchID uuid.UUID, result *integration.ComparisonResult) {
	s.logger.Info("Comparison finished",
		zap.String("batch_id", batchID.String()),
		zap.String("platform", result.Platform.String()),
		zap.Int("conflicting", len(result.Conflicts)),
		zap.Int("safe", len(result.SafeToInsert)),
	)
}
