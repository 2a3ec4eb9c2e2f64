package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sechic/backend/internal/application/catalogsync"
	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/sechic/backend/internal/domain/integration"
	"github.com/sechic/backend/internal/domain/pricing"
	"github.com/sechic/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

// MockBatchOperations implements BatchOperations for testing
type MockBatchOperations struct {
	mock.Mock
}

func (m *MockBatchOperations) Import(ctx context.Context, in catalogsync.ImportInput) (*catalog.Batch, error) {
	args := m.Called(ctx, in)
	return batchArg(args, 0), args.Error(1)
}

func (m *MockBatchOperations) Get(ctx context.Context, id uuid.UUID) (*catalog.Batch, error) {
	args := m.Called(ctx, id)
	return batchArg(args, 0), args.Error(1)
}

func (m *MockBatchOperations) EditProduct(ctx context.Context, id uuid.UUID, index int, edited catalog.Product) (*catalogsync.EditOutcome, error) {
	args := m.Called(ctx, id, index, edited)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogsync.EditOutcome), args.Error(1)
}

func (m *MockBatchOperations) DeleteProduct(ctx context.Context, id uuid.UUID, index int) (*catalog.Batch, error) {
	args := m.Called(ctx, id, index)
	return batchArg(args, 0), args.Error(1)
}

func (m *MockBatchOperations) DeleteVariant(ctx context.Context, id uuid.UUID, productIndex, variantIndex int) (*catalog.Batch, error) {
	args := m.Called(ctx, id, productIndex, variantIndex)
	return batchArg(args, 0), args.Error(1)
}

func (m *MockBatchOperations) RewriteBarcodePrefix(ctx context.Context, id uuid.UUID, prefix string) (*catalog.Batch, error) {
	args := m.Called(ctx, id, prefix)
	return batchArg(args, 0), args.Error(1)
}

func (m *MockBatchOperations) ApplyMarkup(ctx context.Context, id uuid.UUID, in catalogsync.MarkupInput) (*catalogsync.MarkupOutcome, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogsync.MarkupOutcome), args.Error(1)
}

func (m *MockBatchOperations) ChangeSupplierMarkup(ctx context.Context, id uuid.UUID, in catalogsync.SupplierMarkupInput) (*catalogsync.MarkupOutcome, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogsync.MarkupOutcome), args.Error(1)
}

func (m *MockBatchOperations) CurrentMarkup(ctx context.Context, supplier string) (decimal.Decimal, error) {
	args := m.Called(ctx, supplier)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockBatchOperations) MarkupHistory(ctx context.Context, supplier string) ([]pricing.SupplierMarkup, error) {
	args := m.Called(ctx, supplier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pricing.SupplierMarkup), args.Error(1)
}

func batchArg(args mock.Arguments, i int) *catalog.Batch {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(*catalog.Batch)
}

// MockDocumentLinker implements DocumentLinker for testing
type MockDocumentLinker struct {
	mock.Mock
}

func (m *MockDocumentLinker) DownloadURL(ctx context.Context, key string) (string, time.Time, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// MockComparisonOperations implements ComparisonOperations for testing
type MockComparisonOperations struct {
	mock.Mock
}

func (m *MockComparisonOperations) CompareERP(ctx context.Context, batchID uuid.UUID) (*integration.ComparisonResult, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ComparisonResult), args.Error(1)
}

func (m *MockComparisonOperations) CompareShop(ctx context.Context, batchID uuid.UUID) (*integration.ComparisonResult, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ComparisonResult), args.Error(1)
}

// MockSyncOperations implements SyncOperations for testing
type MockSyncOperations struct {
	mock.Mock
}

func (m *MockSyncOperations) SyncERP(ctx context.Context, batchID uuid.UUID, indices []int) (*integration.SyncResult, error) {
	args := m.Called(ctx, batchID, indices)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncResult), args.Error(1)
}

func (m *MockSyncOperations) SyncShop(ctx context.Context, batchID uuid.UUID, indices []int) (*integration.SyncResult, error) {
	args := m.Called(ctx, batchID, indices)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncResult), args.Error(1)
}

func (m *MockSyncOperations) SyncBoth(ctx context.Context, batchID uuid.UUID) (*integration.CombinedResult, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CombinedResult), args.Error(1)
}

// MockRefreshOperations implements RefreshOperations for testing
type MockRefreshOperations struct {
	mock.Mock
}

func (m *MockRefreshOperations) Start(ctx context.Context, userID string, forceDelete bool) (*integration.RefreshProgress, error) {
	args := m.Called(ctx, userID, forceDelete)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.RefreshProgress), args.Error(1)
}

func (m *MockRefreshOperations) Progress(ctx context.Context) (*integration.RefreshProgress, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.RefreshProgress), args.Error(1)
}

func (m *MockRefreshOperations) Cancel(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// testResponse mirrors dto.Response with raw data for assertions
type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Field     string `json:"field"`
		RequestID string `json:"request_id"`
		Details   []struct {
			Field string `json:"field"`
		} `json:"details"`
	} `json:"error"`
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var resp testResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// serve runs one request through a router with the request id middleware
func serve(register func(r *gin.Engine), method, path string, body any) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(middleware.RequestID())
	register(r)

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var anyCtx = mock.Anything
