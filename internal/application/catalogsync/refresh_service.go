package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sechic/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// Refresh defaults
const (
	DefaultRefreshPageSize = 20
	DefaultRefreshPause    = 100 * time.Millisecond
)

// ErrRefreshServiceStopped is returned when a refresh is requested after Stop
var ErrRefreshServiceStopped = errors.New("catalogsync: refresh service stopped")

// RefreshConfig holds the refresh job settings.
// A negative Pause disables the wait between pages.
type RefreshConfig struct {
	CompanyID string
	PageSize  int
	Pause     time.Duration
}

// RefreshService mirrors the ERP catalog into local storage on a background goroutine.
// Progress lives in the progress store so any process can poll or cancel it.
type RefreshService struct {
	erp      integration.ERPPlatform
	mirror   integration.ERPCatalogMirror
	progress integration.ProgressStore
	cfg      RefreshConfig
	logger   *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

// NewRefreshService creates a refresh service
func NewRefreshService(
	erp integration.ERPPlatform,
	mirror integration.ERPCatalogMirror,
	progress integration.ProgressStore,
	cfg RefreshConfig,
	logger *zap.Logger,
) *RefreshService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultRefreshPageSize
	}
	if cfg.Pause == 0 {
		cfg.Pause = DefaultRefreshPause
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RefreshService{
		erp:      erp,
		mirror:   mirror,
		progress: progress,
		cfg:      cfg,
		logger:   logger.With(zap.String("company_id", cfg.CompanyID)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches a refresh unless one is already running for the company
func (s *RefreshService) Start(ctx context.Context, userID string, forceDelete bool) (*integration.RefreshProgress, error) {
	if s.erp == nil {
		return nil, integration.ErrPlatformNotConfigured
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrRefreshServiceStopped
	}

	p := integration.NewRefreshProgress(userID, forceDelete)
	started, err := s.progress.TryStart(ctx, s.cfg.CompanyID, p)
	if err != nil {
		return nil, err
	}
	if !started {
		return nil, integration.ErrSyncAlreadyRunning
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(s.ctx, forceDelete)
	}()

	s.logger.Info("Catalog refresh started", zap.String("user_id", userID), zap.Bool("force_delete", forceDelete))
	return p, nil
}

// Progress returns the current record, or integration.ErrNoRefresh
func (s *RefreshService) Progress(ctx context.Context) (*integration.RefreshProgress, error) {
	return s.progress.Get(ctx, s.cfg.CompanyID)
}

// Cancel asks a running refresh to stop at its next checkpoint
func (s *RefreshService) Cancel(ctx context.Context) (bool, error) {
	cancelled := false
	_, err := s.progress.Update(ctx, s.cfg.CompanyID, func(p *integration.RefreshProgress) {
		cancelled = p.Cancel()
	})
	if err != nil {
		return false, err
	}
	if cancelled {
		s.logger.Info("Catalog refresh cancellation requested")
	}
	return cancelled, nil
}

// Stop aborts running jobs and waits for them to exit or ctx to expire
func (s *RefreshService) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// update applies fn to the stored record, logging store failures
func (s *RefreshService) update(ctx context.Context, fn func(p *integration.RefreshProgress)) *integration.RefreshProgress {
	p, err := s.progress.Update(context.WithoutCancel(ctx), s.cfg.CompanyID, func(p *integration.RefreshProgress) {
		fn(p)
		p.LastUpdate = time.Now()
	})
	if err != nil {
		s.logger.Warn("Failed to update refresh progress", zap.Error(err))
		return nil
	}
	return p
}

// shouldContinue re-reads the stored status so cancellation from any process is observed
func (s *RefreshService) shouldContinue(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	p, err := s.progress.Get(ctx, s.cfg.CompanyID)
	if err != nil {
		s.logger.Warn("Refresh progress unreadable, stopping", zap.Error(err))
		return false
	}
	return p.ShouldContinue()
}

func (s *RefreshService) run(ctx context.Context, forceDelete bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic in catalog refresh", zap.Any("panic", r))
			s.update(ctx, func(p *integration.RefreshProgress) { p.Fail(fmt.Errorf("%v", r)) })
		}
	}()

	s.update(ctx, func(p *integration.RefreshProgress) {
		p.Status = integration.RefreshProcessing
		p.Message = "Loading categories..."
	})

	categories, err := s.erp.Categories(ctx)
	if err != nil {
		s.logger.Error("Failed to list ERP categories", zap.Error(err))
		s.update(ctx, func(p *integration.RefreshProgress) { p.Fail(err) })
		return
	}
	if len(categories) == 0 {
		s.logger.Warn("No categories found, using default category")
		categories = []integration.ERPEntity{{ID: 0, Name: "Default"}}
	}

	total := len(categories)
	s.update(ctx, func(p *integration.RefreshProgress) {
		p.TotalCategories = total
		p.Message = fmt.Sprintf("Processing %d categories...", total)
	})

	var remoteIDs []int64
	failedCategories := 0
	for i, category := range categories {
		if !s.shouldContinue(ctx) {
			s.logger.Info("Catalog refresh stopped", zap.String("category", category.Name))
			return
		}

		s.update(ctx, func(p *integration.RefreshProgress) {
			p.CurrentCategory = &integration.CategoryCursor{ID: category.ID, Name: category.Name, Index: i + 1, Total: total}
			p.Progress = integration.CategoryProgress(i, total)
			p.Message = "Processing category: " + category.Name
		})

		stats, ids, err := s.refreshCategory(ctx, category)
		remoteIDs = append(remoteIDs, ids...)
		if err != nil {
			failedCategories++
			s.logger.Warn("Category refresh failed", zap.String("category", category.Name), zap.Error(err))
		}
		s.update(ctx, func(p *integration.RefreshProgress) {
			p.Stats.Add(stats)
			if err != nil {
				p.AddMessage(integration.LevelWarning, fmt.Sprintf("Category %s: %v", category.Name, err))
				return
			}
			p.AddMessage(integration.LevelInfo, fmt.Sprintf("Category %s: %d added, %d updated, %d errors",
				category.Name, stats.Added, stats.Updated, stats.Errors))
		})
	}

	if forceDelete {
		s.removeObsolete(ctx, remoteIDs, failedCategories)
	}

	final := s.update(ctx, func(p *integration.RefreshProgress) {
		if p.ShouldContinue() {
			p.Complete()
		}
	})
	if final != nil {
		s.logger.Info("Catalog refresh finished", zap.String("message", final.Message))
	}
}

// refreshCategory pages through a category and upserts every product into the mirror
func (s *RefreshService) refreshCategory(ctx context.Context, category integration.ERPEntity) (integration.RefreshStats, []int64, error) {
	var stats integration.RefreshStats

	count, err := s.erp.CountProducts(ctx, category.ID)
	if err != nil {
		stats.Errors++
		return stats, nil, err
	}
	stats.TotalRemote = count
	if count == 0 {
		return stats, nil, nil
	}

	totalBatches := (count + s.cfg.PageSize - 1) / s.cfg.PageSize
	s.update(ctx, func(p *integration.RefreshProgress) {
		p.TotalBatches = totalBatches
		p.CurrentBatch = 0
	})

	ids := make([]int64, 0, count)
	offset := 0
	for batch := 1; batch <= totalBatches; batch++ {
		if !s.shouldContinue(ctx) {
			break
		}
		s.update(ctx, func(p *integration.RefreshProgress) {
			p.CurrentBatch = batch
			p.Message = fmt.Sprintf("Category %s: batch %d/%d", category.Name, batch, totalBatches)
		})

		page, err := s.erp.ListProducts(ctx, category.ID, offset, s.cfg.PageSize)
		if err != nil {
			stats.Errors++
			return stats, ids, err
		}
		if len(page) == 0 {
			break
		}

		for _, product := range page {
			if product.CategoryID == 0 {
				product.CategoryID = category.ID
			}
			// the product exists remotely even when mirroring it failed
			ids = append(ids, product.ProductID)
			created, err := s.mirror.Upsert(ctx, product)
			if err != nil {
				s.logger.Warn("Failed to mirror ERP product", zap.Int64("product_id", product.ProductID), zap.Error(err))
				stats.Errors++
				continue
			}
			if created {
				stats.Added++
			} else {
				stats.Updated++
			}
		}
		offset += len(page)

		if len(page) < s.cfg.PageSize {
			break
		}
		if err := sleepContext(ctx, s.cfg.Pause); err != nil {
			return stats, ids, err
		}
	}
	return stats, ids, nil
}

// removeObsolete deletes mirror rows the ERP no longer has.
// It is skipped when any category failed, since the remote id set is then incomplete.
func (s *RefreshService) removeObsolete(ctx context.Context, remoteIDs []int64, failedCategories int) {
	if !s.shouldContinue(ctx) {
		return
	}
	if failedCategories > 0 {
		s.update(ctx, func(p *integration.RefreshProgress) {
			p.AddMessage(integration.LevelWarning,
				fmt.Sprintf("Obsolete product cleanup skipped: %d categories failed", failedCategories))
		})
		return
	}

	s.update(ctx, func(p *integration.RefreshProgress) {
		p.Progress = 90
		p.Message = "Checking obsolete products..."
	})

	deleted, err := s.mirror.DeleteMissing(ctx, remoteIDs)
	s.update(ctx, func(p *integration.RefreshProgress) {
		if err != nil {
			p.AddMessage(integration.LevelError, fmt.Sprintf("Obsolete product cleanup failed: %v", err))
			return
		}
		p.Stats.Deleted += int(deleted)
		if deleted > 0 {
			p.AddMessage(integration.LevelInfo, fmt.Sprintf("Removed %d obsolete products", deleted))
		}
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
