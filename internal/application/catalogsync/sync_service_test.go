package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/sechic/backend/internal/domain/integration"
	"github.com/sechic/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func erpReferenceData(t *testing.T) *integration.ERPReferenceData {
	t.Helper()
	data, err := integration.NewERPReferenceData(
		[]integration.ERPEntity{{ID: 1, Name: "Geral"}, {ID: 2, Name: "Camisas"}},
		[]integration.ERPEntity{{ID: 10, Name: "Acme Lda"}},
		[]integration.ERPEntity{{ID: 20, Name: integration.DefaultUnitName}},
		[]integration.ERPTax{{ID: 30, Name: integration.DefaultTaxName, Value: d("23")}},
	)
	require.NoError(t, err)
	return data
}

func syncProducts() []catalog.Product {
	return []catalog.Product{
		{
			MaterialCode: "ABC", Name: "Camisa", Category: "Camisas", Supplier: "Acme Lda",
			Variants: []catalog.Variant{
				{Reference: "ABC.1", ColorName: "Branco", Size: "S", Quantity: 2, SalePrice: d("24.60"), Description: "Camisa[010/S]"},
				{Reference: "ABC.2", ColorName: "Branco", Size: "M", Quantity: 0, SalePrice: d("24.60"), Description: "Camisa[010/M]"},
			},
		},
		{
			MaterialCode: "ABC", Name: "Camisa", Category: "Camisas", Supplier: "Acme Lda",
			Variants: []catalog.Variant{
				{Reference: "ABC.3", ColorName: "Branco", Size: "L", Quantity: 1, SalePrice: d("24.60"), Description: "Camisa[010/L]"},
			},
		},
		{
			MaterialCode: "XYZ", Name: "Calça", Supplier: "Acme Lda",
			Variants: []catalog.Variant{
				{Reference: "XYZ.1", ColorName: "Preto", Size: "40", Quantity: 3, SalePrice: d("49.20"), Description: "Calça[020/40]"},
			},
		},
	}
}

type syncFixture struct {
	batches *memBatchRepository
	erp     *MockERPPlatform
	shop    *MockShopPlatform
	mirror  *MockCatalogMirror
	lock    *MockSyncLock
	pacer   *countingPacer
	batch   *catalog.Batch
	service *SyncService
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		erp:    new(MockERPPlatform),
		shop:   new(MockShopPlatform),
		mirror: new(MockCatalogMirror),
		lock:   new(MockSyncLock),
		pacer:  &countingPacer{},
	}
	f.batch = catalog.NewBatch("7", catalog.OrderInfo{}, syncProducts())
	f.batches = newMemBatchRepository(f.batch)
	f.service = NewSyncService(SyncServiceConfig{
		Batches:   f.batches,
		ERP:       f.erp,
		Shop:      f.shop,
		Mirror:    f.mirror,
		Lock:      f.lock,
		ERPPacer:  f.pacer,
		ShopPacer: f.pacer,
	})
	return f
}

func (f *syncFixture) expectLock() {
	f.lock.On("Acquire", mock.Anything, "batch_sync_7", DefaultSyncLockTTL).Return("owner-1", true, nil).Once()
	f.lock.On("Release", mock.Anything, "batch_sync_7", "owner-1").Return(nil).Once()
}

func withReference(ref string) interface{} {
	return mock.MatchedBy(func(p integration.ERPProductPayload) bool { return p.Reference == ref })
}

func TestSyncService_SyncERP(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts every variant and marks products integrated", func(t *testing.T) {
		f := newSyncFixture()
		f.expectLock()
		f.erp.On("ReferenceData", mock.Anything).Return(erpReferenceData(t), nil)
		f.erp.On("InsertProduct", mock.Anything, withReference("ABC.1")).Return(int64(101), nil)
		f.erp.On("InsertProduct", mock.Anything, withReference("ABC.2")).Return(int64(102), nil)
		f.erp.On("InsertProduct", mock.Anything, withReference("ABC.3")).Return(int64(103), nil)
		f.erp.On("InsertProduct", mock.Anything, withReference("XYZ.1")).Return(int64(104), nil)
		f.mirror.On("Upsert", mock.Anything, mock.Anything).Return(true, nil)

		result, err := f.service.SyncERP(ctx, f.batch.ID, nil)

		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusSuccess, result.Status)
		assert.True(t, result.Success)
		assert.Equal(t, 4, result.Metrics.Created)
		assert.Equal(t, 4, result.Metrics.TotalVariants)
		assert.Equal(t, "Sync completed: 4 created, 0 updated. Total of 4 variants processed.", result.Message)
		assert.Equal(t, 4, f.pacer.count(), "one wait per insert")
		assert.Equal(t, int64(101), result.Items[0].RemoteID)
		for _, p := range f.batch.Products {
			assert.Equal(t, catalog.IntegratedYes, p.Integrated)
		}
		f.mirror.AssertNumberOfCalls(t, "Upsert", 4)
		f.lock.AssertExpectations(t)
	})

	t.Run("payload carries resolved ids and net price", func(t *testing.T) {
		f := newSyncFixture()
		f.expectLock()
		f.erp.On("ReferenceData", mock.Anything).Return(erpReferenceData(t), nil)
		f.erp.On("InsertProduct", mock.Anything, mock.MatchedBy(func(p integration.ERPProductPayload) bool {
			return p.Reference == "ABC.3" && p.CategoryID == 2 && p.SupplierID == 10 &&
				p.UnitID == 20 && p.TaxID == 30 && p.Price.Equal(d("20")) && p.Name == "Camisa[010/L]" &&
				p.ExemptionReason == integration.ExemptionReason
		})).Return(int64(55), nil).Once()
		f.mirror.On("Upsert", mock.Anything, mock.MatchedBy(func(p integration.ERPProduct) bool {
			return p.ProductID == 55 && p.CategoryID == 2 && p.Reference == "ABC.3" && p.Price.Equal(d("20"))
		})).Return(true, nil).Once()

		result, err := f.service.SyncERP(ctx, f.batch.ID, []int{1})

		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusSuccess, result.Status)
		f.erp.AssertExpectations(t)
		f.mirror.AssertExpectations(t)
	})

	t.Run("failed items give a partial result", func(t *testing.T) {
		f := newSyncFixture()
		f.expectLock()
		f.erp.On("ReferenceData", mock.Anything).Return(erpReferenceData(t), nil)
		f.erp.On("InsertProduct", mock.Anything, withReference("XYZ.1")).
			Return(int64(0), fmt.Errorf("%w: duplicate reference", integration.ErrPlatformRequestFailed))
		f.erp.On("InsertProduct", mock.Anything, mock.Anything).Return(int64(5), nil)
		f.mirror.On("Upsert", mock.Anything, mock.Anything).Return(false, nil)

		result, err := f.service.SyncERP(ctx, f.batch.ID, nil)

		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusPartial, result.Status)
		assert.Equal(t, 3, result.Metrics.Created)
		assert.Equal(t, 1, result.Metrics.Failed)
		last := result.Items[3]
		assert.Equal(t, integration.ActionCreateFailed, last.Action)
		assert.Equal(t, integration.ErrCodePlatformRequestFailed, last.ErrorCode)
		assert.Equal(t, catalog.IntegratedNo, f.batch.Products[0].Integrated, "partial runs leave flags alone")
	})

	t.Run("a panicking insert is recorded and the run continues", func(t *testing.T) {
		f := newSyncFixture()
		f.expectLock()
		f.erp.On("ReferenceData", mock.Anything).Return(erpReferenceData(t), nil)
		f.erp.On("InsertProduct", mock.Anything, withReference("ABC.1")).Panic("boom")
		f.erp.On("InsertProduct", mock.Anything, mock.Anything).Return(int64(5), nil)
		f.mirror.On("Upsert", mock.Anything, mock.Anything).Return(true, nil)

		result, err := f.service.SyncERP(ctx, f.batch.ID, nil)

		require.NoError(t, err)
		require.Len(t, result.Items, 4)
		assert.Equal(t, integration.ActionException, result.Items[0].Action)
		assert.Equal(t, integration.ErrCodeSyncItemPanic, result.Items[0].ErrorCode)
		assert.Equal(t, 3, result.Metrics.Created)
	})

	t.Run("authentication failure aborts the run", func(t *testing.T) {
		f := newSyncFixture()
		f.expectLock()
		f.erp.On("ReferenceData", mock.Anything).Return(erpReferenceData(t), nil)
		f.erp.On("InsertProduct", mock.Anything, withReference("ABC.1")).Return(int64(7), nil)
		f.erp.On("InsertProduct", mock.Anything, withReference("ABC.2")).Return(int64(0), integration.ErrPlatformAuthFailed)
		f.mirror.On("Upsert", mock.Anything, mock.Anything).Return(true, nil)

		result, err := f.service.SyncERP(ctx, f.batch.ID, nil)

		assert.True(t, errors.Is(err, integration.ErrPlatformAuthFailed))
		require.NotNil(t, result)
		assert.Equal(t, integration.SyncStatusAborted, result.Status)
		assert.Len(t, result.Items, 2)
		f.erp.AssertNumberOfCalls(t, "InsertProduct", 2)
		f.lock.AssertExpectations(t)
	})

	t.Run("indices select batch positions", func(t *testing.T) {
		f := newSyncFixture()
		f.expectLock()
		f.erp.On("ReferenceData", mock.Anything).Return(erpReferenceData(t), nil)
		f.erp.On("InsertProduct", mock.Anything, withReference("XYZ.1")).Return(int64(9), nil).Once()
		f.mirror.On("Upsert", mock.Anything, mock.Anything).Return(true, nil)

		result, err := f.service.SyncERP(ctx, f.batch.ID, []int{2, 9, -1})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Metrics.Total)
		assert.Equal(t, catalog.IntegratedYes, f.batch.Products[2].Integrated)
		assert.Equal(t, catalog.IntegratedNo, f.batch.Products[0].Integrated)
		f.erp.AssertExpectations(t)
	})

	t.Run("a running sync blocks the next one", func(t *testing.T) {
		f := newSyncFixture()
		f.lock.On("Acquire", mock.Anything, "batch_sync_7", DefaultSyncLockTTL).Return("", false, nil)

		_, err := f.service.SyncERP(ctx, f.batch.ID, nil)

		assert.True(t, errors.Is(err, integration.ErrSyncAlreadyRunning))
		f.erp.AssertNotCalled(t, "ReferenceData", mock.Anything)
		f.lock.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unconfigured target", func(t *testing.T) {
		s := NewSyncService(SyncServiceConfig{Batches: newMemBatchRepository()})
		_, err := s.SyncERP(ctx, catalog.NewBatch("1", catalog.OrderInfo{}, nil).ID, nil)
		assert.True(t, errors.Is(err, integration.ErrPlatformNotConfigured))
	})
}

func TestSyncService_SyncERP_KeepsConcurrentEdits(t *testing.T) {
	ctx := context.Background()
	store := cache.NewInMemoryBatchStore(time.Hour)
	lock := cache.NewInMemorySyncLock(time.Minute)
	t.Cleanup(func() { _ = lock.Close() })

	batch := catalog.NewBatch("7", catalog.OrderInfo{}, syncProducts())
	require.NoError(t, store.Save(ctx, batch))

	batches := NewBatchService(store, nil, nil, nil, nil, nil)
	erp := new(MockERPPlatform)
	service := NewSyncService(SyncServiceConfig{Batches: store, ERP: erp, Lock: lock})

	erp.On("ReferenceData", mock.Anything).Return(erpReferenceData(t), nil)
	erp.On("InsertProduct", mock.Anything, withReference("ABC.1")).Run(func(mock.Arguments) {
		_, err := batches.DeleteProduct(ctx, batch.ID, 2)
		require.NoError(t, err)
	}).Return(int64(1), nil).Once()
	erp.On("InsertProduct", mock.Anything, mock.Anything).Return(int64(2), nil)

	result, err := service.SyncERP(ctx, batch.ID, nil)

	require.NoError(t, err)
	assert.Equal(t, integration.SyncStatusSuccess, result.Status)

	stored, err := store.FindByID(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, stored.Products, 2, "the product deleted during the run stays deleted")
	for _, p := range stored.Products {
		assert.Equal(t, "ABC", p.MaterialCode)
		assert.Equal(t, catalog.IntegratedYes, p.Integrated)
	}
	assert.Equal(t, int64(3), stored.Version)
	assert.Zero(t, lock.Held(), "flag released after the run")
}

func TestSyncService_SyncERP_LogsDefaultFallbacks(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	f := newSyncFixture()
	f.service.logger = zap.New(core)
	f.expectLock()
	f.erp.On("ReferenceData", mock.Anything).Return(erpReferenceData(t), nil)
	f.erp.On("InsertProduct", mock.Anything, mock.MatchedBy(func(p integration.ERPProductPayload) bool {
		return p.Reference == "XYZ.1" && p.CategoryID == 1 && p.SupplierID == 10
	})).Return(int64(9), nil).Once()
	f.mirror.On("Upsert", mock.Anything, mock.Anything).Return(true, nil)

	_, err := f.service.SyncERP(ctx, f.batch.ID, []int{2})

	require.NoError(t, err)
	f.erp.AssertExpectations(t)
	entries := logs.FilterMessage("ERP record not found, using default").All()
	require.Len(t, entries, 1, "only the missing category falls back")
	fields := entries[0].ContextMap()
	assert.Equal(t, "XYZ.1", fields["reference"])
	assert.Equal(t, "category", fields["field"])
	assert.Equal(t, "", fields["name"])
	assert.Equal(t, int64(1), fields["default_id"])
	assert.Equal(t, "Geral", fields["default_name"])
}

// conflictingBatchRepository rejects the next saves as concurrent modifications
type conflictingBatchRepository struct {
	*memBatchRepository
	conflicts int
}

func (r *conflictingBatchRepository) Save(ctx context.Context, batch *catalog.Batch) error {
	if r.conflicts > 0 {
		r.conflicts--
		return catalog.ErrBatchConflict
	}
	return r.memBatchRepository.Save(ctx, batch)
}

func TestSyncService_MarkIntegratedRetriesConflicts(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name      string
		conflicts int
		saves     int
	}{
		{name: "retried after a conflict", conflicts: 1, saves: 1},
		{name: "gives up after repeated conflicts", conflicts: maxFlagAttempts, saves: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			batch := catalog.NewBatch("7", catalog.OrderInfo{}, syncProducts())
			repo := &conflictingBatchRepository{memBatchRepository: newMemBatchRepository(batch), conflicts: tc.conflicts}
			erp := new(MockERPPlatform)
			service := NewSyncService(SyncServiceConfig{Batches: repo, ERP: erp})
			erp.On("ReferenceData", mock.Anything).Return(erpReferenceData(t), nil)
			erp.On("InsertProduct", mock.Anything, mock.Anything).Return(int64(1), nil)

			result, err := service.SyncERP(ctx, batch.ID, []int{2})

			require.NoError(t, err)
			assert.Equal(t, integration.SyncStatusSuccess, result.Status)
			assert.Equal(t, tc.saves, repo.saves)
			assert.Zero(t, repo.conflicts, "every conflict was met by a reload")
		})
	}
}

func createdShopProduct(id int64, variants ...integration.ShopVariant) *integration.ShopProduct {
	return &integration.ShopProduct{ID: id, Variants: variants}
}

func withTitle(title string) interface{} {
	return mock.MatchedBy(func(p integration.ShopProduct) bool { return p.Title == title })
}

func TestSyncService_SyncShop(t *testing.T) {
	ctx := context.Background()

	t.Run("creates consolidated products and sets stock", func(t *testing.T) {
		f := newSyncFixture()
		f.expectLock()
		f.shop.On("Locations", mock.Anything).Return([]integration.ShopLocation{{ID: 900}, {ID: 901}}, nil)
		f.shop.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p integration.ShopProduct) bool {
			return p.Title == "Camisa" && len(p.Variants) == 3
		})).Return(createdShopProduct(1,
			integration.ShopVariant{SKU: "ABC.1", InventoryItemID: 11},
			integration.ShopVariant{SKU: "ABC.2", InventoryItemID: 12},
			integration.ShopVariant{SKU: "ABC.3", InventoryItemID: 13},
		), nil)
		f.shop.On("CreateProduct", mock.Anything, withTitle("Calça")).Return(createdShopProduct(2,
			integration.ShopVariant{SKU: "XYZ.1", InventoryItemID: 21},
		), nil)
		f.shop.On("SetInventoryLevel", mock.Anything, int64(11), int64(900), 2).Return(nil)
		f.shop.On("SetInventoryLevel", mock.Anything, int64(13), int64(900), 1).Return(nil)
		f.shop.On("SetInventoryLevel", mock.Anything, int64(21), int64(900), 3).Return(nil)

		result, err := f.service.SyncShop(ctx, f.batch.ID, nil)

		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusSuccess, result.Status)
		assert.Equal(t, 2, result.Metrics.Created)
		assert.Equal(t, 3, result.Metrics.OriginalProducts)
		assert.Equal(t, 1, result.Metrics.ProductsMerged)
		assert.Equal(t, 4, result.Metrics.ConsolidatedVariants)
		assert.Equal(t,
			"Shopify sync completed: 2 products created (1 products consolidated by color). Total of 4 variants processed.",
			result.Message)
		assert.Equal(t, "ABC_Branco", result.Items[0].Reference)
		assert.Equal(t, 3, result.Items[0].Variants)
		assert.Equal(t, 2, f.pacer.count(), "one wait per store product")
		f.shop.AssertNumberOfCalls(t, "SetInventoryLevel", 3)
		for _, p := range f.batch.Products {
			assert.Equal(t, catalog.IntegratedYes, p.Integrated)
		}
	})

	t.Run("stock failures become warnings", func(t *testing.T) {
		f := newSyncFixture()
		f.expectLock()
		f.shop.On("Locations", mock.Anything).Return([]integration.ShopLocation{{ID: 900}}, nil)
		f.shop.On("CreateProduct", mock.Anything, withTitle("Calça")).Return(createdShopProduct(2,
			integration.ShopVariant{SKU: "XYZ.1", InventoryItemID: 21},
		), nil)
		f.shop.On("SetInventoryLevel", mock.Anything, int64(21), int64(900), 3).Return(errors.New("422"))

		result, err := f.service.SyncShop(ctx, f.batch.ID, []int{1})

		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.True(t, result.Items[0].Success)
		assert.Len(t, result.Items[0].Warnings, 1)
		assert.Equal(t, 1, result.Metrics.OriginalProducts, "metrics cover the selected group only")
		assert.Equal(t, 1, result.Metrics.ConsolidatedProducts)
		assert.Equal(t, 0, result.Metrics.ProductsMerged)
		assert.Equal(t, 1, result.Metrics.ConsolidatedVariants)
		assert.Equal(t, catalog.IntegratedYes, f.batch.Products[2].Integrated)
		assert.Equal(t, catalog.IntegratedNo, f.batch.Products[0].Integrated)
	})

	t.Run("authentication failure aborts", func(t *testing.T) {
		f := newSyncFixture()
		f.expectLock()
		f.shop.On("Locations", mock.Anything).Return([]integration.ShopLocation{{ID: 900}}, nil)
		f.shop.On("CreateProduct", mock.Anything, mock.Anything).Return(nil, integration.ErrPlatformAuthFailed)

		result, err := f.service.SyncShop(ctx, f.batch.ID, nil)

		assert.True(t, errors.Is(err, integration.ErrPlatformAuthFailed))
		assert.Equal(t, integration.SyncStatusAborted, result.Status)
		f.shop.AssertNumberOfCalls(t, "CreateProduct", 1)
	})

	t.Run("store without locations", func(t *testing.T) {
		f := newSyncFixture()
		f.expectLock()
		f.shop.On("Locations", mock.Anything).Return([]integration.ShopLocation{}, nil)

		_, err := f.service.SyncShop(ctx, f.batch.ID, nil)

		assert.True(t, errors.Is(err, integration.ErrNoLocation))
		f.shop.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	})
}

func TestSyncService_SyncBoth(t *testing.T) {
	ctx := context.Background()

	t.Run("store runs even when the ERP fails", func(t *testing.T) {
		f := newSyncFixture()
		f.lock.On("Acquire", mock.Anything, "batch_sync_7", DefaultSyncLockTTL).Return("owner-1", true, nil)
		f.lock.On("Release", mock.Anything, "batch_sync_7", "owner-1").Return(nil)
		f.erp.On("ReferenceData", mock.Anything).Return(nil, fmt.Errorf("%w: timeout", integration.ErrPlatformUnavailable))
		f.shop.On("Locations", mock.Anything).Return([]integration.ShopLocation{{ID: 900}}, nil)
		f.shop.On("CreateProduct", mock.Anything, mock.Anything).Return(createdShopProduct(1), nil)

		combined, err := f.service.SyncBoth(ctx, f.batch.ID)

		require.NoError(t, err)
		assert.True(t, combined.Success)
		assert.Equal(t, integration.SyncStatusFailed, combined.ERP.Status)
		assert.Equal(t, integration.SyncStatusSuccess, combined.Shop.Status)
		assert.Contains(t, combined.Message, "Moloni: ")
		assert.Contains(t, combined.Message, " | Shopify: ")
		f.lock.AssertNumberOfCalls(t, "Acquire", 2)
	})

	t.Run("missing batch is returned", func(t *testing.T) {
		f := newSyncFixture()
		missing := catalog.NewBatch("7", catalog.OrderInfo{}, nil)

		combined, err := f.service.SyncBoth(ctx, missing.ID)

		assert.True(t, errors.Is(err, catalog.ErrBatchNotFound))
		assert.False(t, combined.Success)
	})
}

func TestSelectPositions(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, selectPositions(3, nil))
	assert.Equal(t, []int{2, 0}, selectPositions(3, []int{2, 5, 0, -1}))
	assert.Empty(t, selectPositions(3, []int{}))
}
