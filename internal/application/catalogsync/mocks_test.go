package catalogsync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/sechic/backend/internal/domain/integration"
	"github.com/sechic/backend/internal/domain/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// memBatchRepository keeps batches in a map and counts saves.
// Loaded batches share the stored pointer.
type memBatchRepository struct {
	mu      sync.Mutex
	batches map[uuid.UUID]*catalog.Batch
	saves   int
}

func newMemBatchRepository(batches ...*catalog.Batch) *memBatchRepository {
	r := &memBatchRepository{batches: make(map[uuid.UUID]*catalog.Batch)}
	for _, b := range batches {
		r.batches[b.ID] = b
	}
	return r
}

func (r *memBatchRepository) FindByID(_ context.Context, id uuid.UUID) (*catalog.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, catalog.ErrBatchNotFound
	}
	return b, nil
}

func (r *memBatchRepository) Save(_ context.Context, batch *catalog.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.batches[batch.ID]; ok && stored.Version != batch.Version {
		return catalog.ErrBatchConflict
	}
	batch.Version++
	r.batches[batch.ID] = batch
	r.saves++
	return nil
}

func (r *memBatchRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.batches, id)
	return nil
}

var _ catalog.BatchRepository = (*memBatchRepository)(nil)

// MockReferenceRepository is a mock implementation of catalog.ReferenceRepository
type MockReferenceRepository struct {
	mock.Mock
}

func (m *MockReferenceRepository) Tables(ctx context.Context, companyID string) (*catalog.ReferenceTables, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ReferenceTables), args.Error(1)
}

var _ catalog.ReferenceRepository = (*MockReferenceRepository)(nil)

// MockMarkupRepository is a mock implementation of pricing.MarkupRepository
type MockMarkupRepository struct {
	mock.Mock
}

func (m *MockMarkupRepository) GetActive(ctx context.Context, supplier string) (*pricing.SupplierMarkup, error) {
	args := m.Called(ctx, supplier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.SupplierMarkup), args.Error(1)
}

func (m *MockMarkupRepository) SetActive(ctx context.Context, supplier string, markupID uuid.UUID) error {
	args := m.Called(ctx, supplier, markupID)
	return args.Error(0)
}

func (m *MockMarkupRepository) Activate(ctx context.Context, supplier string, markup decimal.Decimal, createdBy string) (*pricing.SupplierMarkup, error) {
	args := m.Called(ctx, supplier, markup, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.SupplierMarkup), args.Error(1)
}

func (m *MockMarkupRepository) History(ctx context.Context, supplier string) ([]pricing.SupplierMarkup, error) {
	args := m.Called(ctx, supplier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pricing.SupplierMarkup), args.Error(1)
}

var _ pricing.MarkupRepository = (*MockMarkupRepository)(nil)

// MockExtractor is a mock implementation of Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, filename string, content []byte) (*catalog.RawExtraction, error) {
	args := m.Called(ctx, filename, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.RawExtraction), args.Error(1)
}

var _ Extractor = (*MockExtractor)(nil)

// MockDocumentArchive is a mock implementation of DocumentArchive
type MockDocumentArchive struct {
	mock.Mock
}

func (m *MockDocumentArchive) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, content, contentType)
	return args.String(0), args.Error(1)
}

var _ DocumentArchive = (*MockDocumentArchive)(nil)

// MockERPPlatform is a mock implementation of integration.ERPPlatform
type MockERPPlatform struct {
	mock.Mock
}

func (m *MockERPPlatform) ReferenceData(ctx context.Context) (*integration.ERPReferenceData, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ERPReferenceData), args.Error(1)
}

func (m *MockERPPlatform) Categories(ctx context.Context) ([]integration.ERPEntity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ERPEntity), args.Error(1)
}

func (m *MockERPPlatform) InsertProduct(ctx context.Context, payload integration.ERPProductPayload) (int64, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockERPPlatform) CountProducts(ctx context.Context, categoryID int64) (int, error) {
	args := m.Called(ctx, categoryID)
	return args.Int(0), args.Error(1)
}

func (m *MockERPPlatform) ListProducts(ctx context.Context, categoryID int64, offset, qty int) ([]integration.ERPProduct, error) {
	args := m.Called(ctx, categoryID, offset, qty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ERPProduct), args.Error(1)
}

var _ integration.ERPPlatform = (*MockERPPlatform)(nil)

// MockShopPlatform is a mock implementation of integration.ShopPlatform
type MockShopPlatform struct {
	mock.Mock
}

func (m *MockShopPlatform) CreateProduct(ctx context.Context, product integration.ShopProduct) (*integration.ShopProduct, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ShopProduct), args.Error(1)
}

func (m *MockShopPlatform) Locations(ctx context.Context) ([]integration.ShopLocation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ShopLocation), args.Error(1)
}

func (m *MockShopPlatform) SetInventoryLevel(ctx context.Context, inventoryItemID, locationID int64, available int) error {
	args := m.Called(ctx, inventoryItemID, locationID, available)
	return args.Error(0)
}

func (m *MockShopPlatform) Products(ctx context.Context) ([]integration.ShopProduct, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ShopProduct), args.Error(1)
}

var _ integration.ShopPlatform = (*MockShopPlatform)(nil)

// MockCatalogMirror is a mock implementation of integration.ERPCatalogMirror
type MockCatalogMirror struct {
	mock.Mock
}

func (m *MockCatalogMirror) All(ctx context.Context) ([]integration.ERPProduct, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ERPProduct), args.Error(1)
}

func (m *MockCatalogMirror) Upsert(ctx context.Context, product integration.ERPProduct) (bool, error) {
	args := m.Called(ctx, product)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogMirror) DeleteMissing(ctx context.Context, keep []int64) (int64, error) {
	args := m.Called(ctx, keep)
	return args.Get(0).(int64), args.Error(1)
}

var _ integration.ERPCatalogMirror = (*MockCatalogMirror)(nil)

// MockSyncLock is a mock implementation of integration.SyncLock
type MockSyncLock struct {
	mock.Mock
}

func (m *MockSyncLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockSyncLock) Release(ctx context.Context, key, token string) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}

var _ integration.SyncLock = (*MockSyncLock)(nil)

// countingPacer counts waits and never blocks
type countingPacer struct {
	mu    sync.Mutex
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.waits++
	p.mu.Unlock()
	return ctx.Err()
}

func (p *countingPacer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits
}

// memProgressStore keeps progress records in a map guarded by a mutex
type memProgressStore struct {
	mu      sync.Mutex
	records map[string]*integration.RefreshProgress
}

func newMemProgressStore() *memProgressStore {
	return &memProgressStore{records: make(map[string]*integration.RefreshProgress)}
}

func (s *memProgressStore) Get(_ context.Context, companyID string) (*integration.RefreshProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.records[companyID]
	if !ok {
		return nil, integration.ErrNoRefresh
	}
	cp := *p
	cp.Messages = append([]integration.ProgressMessage(nil), p.Messages...)
	return &cp, nil
}

func (s *memProgressStore) TryStart(_ context.Context, companyID string, p *integration.RefreshProgress) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[companyID]; ok && existing.Running() {
		return false, nil
	}
	cp := *p
	s.records[companyID] = &cp
	return true, nil
}

func (s *memProgressStore) Update(_ context.Context, companyID string, fn func(p *integration.RefreshProgress)) (*integration.RefreshProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.records[companyID]
	if !ok {
		return nil, integration.ErrNoRefresh
	}
	fn(p)
	cp := *p
	return &cp, nil
}

var _ integration.ProgressStore = (*memProgressStore)(nil)
