package extraction

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	pendingPolls int32
	finalStatus  string
	result       string

	polls    atomic.Int32
	uploaded []byte
	filename string
}

func (f *fakeService) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/process", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		f.uploaded, _ = io.ReadAll(file)
		f.filename = header.Filename
		_, _ = w.Write([]byte(`{"job_id": "job-1"}`))
	})
	mux.HandleFunc("/job/job-1", func(w http.ResponseWriter, r *http.Request) {
		n := f.polls.Add(1)
		if n <= f.pendingPolls {
			_, _ = w.Write([]byte(`{"status": "processing", "progress": 40}`))
			return
		}
		_, _ = w.Write([]byte(`{"status": "` + f.finalStatus + `"}`))
	})
	mux.HandleFunc("/job/job-1/json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(f.result))
	})
	return mux
}

func newTestClient(t *testing.T, svc *fakeService, maxAttempts int) *Client {
	t.Helper()
	server := httptest.NewServer(svc.handler(t))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:      server.URL + "/",
		PollInterval: time.Millisecond,
		MaxAttempts:  maxAttempts,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)

	c, err := NewClient(Config{BaseURL: "http://extractor:8011"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultEngine, c.engine)
	assert.Equal(t, DefaultPollInterval, c.pollInterval)
	assert.Equal(t, DefaultMaxAttempts, c.maxAttempts)
}

func TestClient_Extract_DirectResult(t *testing.T) {
	svc := &fakeService{
		pendingPolls: 2,
		finalStatus:  JobCompleted,
		result: `{"products": [{"material_code": "ABC123", "name": "Camisa"}],
			"order_info": {"supplier": "Acme Lda", "order_number": 991}}`,
	}
	client := newTestClient(t, svc, 5)

	got, err := client.Extract(context.Background(), "/tmp/fatura.pdf", []byte("%PDF-1.4"))

	require.NoError(t, err)
	require.Len(t, got.Products, 1)
	assert.Equal(t, "ABC123", got.Products[0].MaterialCode.String())
	assert.Equal(t, "Acme Lda", got.OrderInfo.Supplier.String())
	assert.Equal(t, "991", got.OrderInfo.OrderNumber.String())
	assert.Equal(t, int32(3), svc.polls.Load())
	assert.Equal(t, []byte("%PDF-1.4"), svc.uploaded)
	assert.Equal(t, "fatura.pdf", svc.filename)
}

func TestClient_Extract_NestedResult(t *testing.T) {
	svc := &fakeService{
		finalStatus: JobCompleted,
		result: `{"job_id": "job-1", "model_results": {
			"gemini": {"result": {"products": [{"name": "A"}, {"name": "B"}], "order_info": {}}}
		}}`,
	}
	client := newTestClient(t, svc, 1)

	got, err := client.Extract(context.Background(), "f.pdf", []byte("x"))

	require.NoError(t, err)
	assert.Len(t, got.Products, 2)
}

func TestClient_Extract_OtherEngine(t *testing.T) {
	svc := &fakeService{
		finalStatus: JobCompleted,
		result: `{"model_results": {
			"gemini": {"result": null},
			"openai": {"result": {"products": [{"name": "A"}]}}
		}}`,
	}
	client := newTestClient(t, svc, 1)

	got, err := client.Extract(context.Background(), "f.pdf", []byte("x"))

	require.NoError(t, err)
	assert.Len(t, got.Products, 1)
}

func TestClient_Extract_MissingKeys(t *testing.T) {
	svc := &fakeService{finalStatus: JobCompleted, result: `{}`}
	client := newTestClient(t, svc, 1)

	got, err := client.Extract(context.Background(), "f.pdf", []byte("x"))

	require.NoError(t, err)
	assert.NotNil(t, got.Products)
	assert.Empty(t, got.Products)
}

func TestClient_Extract_Failed(t *testing.T) {
	svc := &fakeService{finalStatus: JobFailed}
	client := newTestClient(t, svc, 3)

	_, err := client.Extract(context.Background(), "f.pdf", []byte("x"))

	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestClient_Extract_Timeout(t *testing.T) {
	svc := &fakeService{pendingPolls: 100, finalStatus: JobCompleted}
	client := newTestClient(t, svc, 3)

	_, err := client.Extract(context.Background(), "f.pdf", []byte("x"))

	assert.ErrorIs(t, err, ErrExtractionTimeout)
	assert.Equal(t, int32(3), svc.polls.Load())
}

func TestClient_Extract_Cancelled(t *testing.T) {
	svc := &fakeService{pendingPolls: 100, finalStatus: JobCompleted}
	server := httptest.NewServer(svc.handler(t))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, PollInterval: time.Hour, MaxAttempts: 5}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Extract(ctx, "f.pdf", []byte("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Extract_ServiceErrors(t *testing.T) {
	t.Run("upload rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad file", http.StatusBadRequest)
		}))
		defer server.Close()

		client, err := NewClient(Config{BaseURL: server.URL}, nil)
		require.NoError(t, err)

		_, err = client.Extract(context.Background(), "f.pdf", []byte("x"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad file")
	})

	t.Run("missing job id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		client, err := NewClient(Config{BaseURL: server.URL}, nil)
		require.NoError(t, err)

		_, err = client.Extract(context.Background(), "f.pdf", []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		endpoint := server.URL
		server.Close()

		client, err := NewClient(Config{BaseURL: endpoint}, nil)
		require.NoError(t, err)

		_, err = client.Extract(context.Background(), "f.pdf", []byte("x"))
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})
}
