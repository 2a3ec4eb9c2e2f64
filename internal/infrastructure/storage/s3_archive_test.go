package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sechic/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func validConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Enabled:      true,
		Endpoint:     endpoint,
		Bucket:       "invoices",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		UsePathStyle: true,
	}
}

func TestNewS3DocumentArchive_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{"nil config", nil, "configuration is required"},
		{"missing bucket", &config.StorageConfig{AccessKey: "k", SecretKey: "s"}, "bucket is required"},
		{"missing access key", &config.StorageConfig{Bucket: "b", SecretKey: "s"}, "access key is required"},
		{"missing secret key", &config.StorageConfig{Bucket: "b", AccessKey: "k"}, "secret key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3DocumentArchive(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("valid config", func(t *testing.T) {
		archive, err := NewS3DocumentArchive(validConfig("localhost:9000"), WithPresignExpiration(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, "invoices", archive.Bucket())
		assert.Equal(t, time.Minute, archive.presignExpiration)
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	got, err := normalizeEndpoint("", false)
	require.NoError(t, err)
	assert.Equal(t, defaultEndpoint, got)

	got, err = normalizeEndpoint("minio:9000", false)
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000", got)

	got, err = normalizeEndpoint("s3.example.com", true)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.com", got)
}

func TestS3DocumentArchive_Put(t *testing.T) {
	var (
		mu          sync.Mutex
		gotPath     string
		gotBody     string
		contentType string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodPut {
			gotPath = r.URL.Path
			contentType = r.Header.Get("Content-Type")
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	archive, err := NewS3DocumentArchive(validConfig(server.URL), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	key, err := archive.Put(context.Background(), "/invoices/42/abc/fatura.pdf", []byte("%PDF-1.4"), "application/pdf")

	require.NoError(t, err)
	assert.Equal(t, "invoices/42/abc/fatura.pdf", key)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/invoices/invoices/42/abc/fatura.pdf", gotPath)
	assert.Equal(t, "application/pdf", contentType)
	assert.Contains(t, gotBody, "%PDF-1.4")
}

func TestS3DocumentArchive_PutRequiresKey(t *testing.T) {
	archive, err := NewS3DocumentArchive(validConfig("localhost:9000"))
	require.NoError(t, err)

	_, err = archive.Put(context.Background(), "", []byte("x"), "")
	assert.ErrorIs(t, err, ErrKeyRequired)
}

func TestS3DocumentArchive_DownloadURL(t *testing.T) {
	archive, err := NewS3DocumentArchive(validConfig("http://localhost:9000"))
	require.NoError(t, err)

	url, expiresAt, err := archive.DownloadURL(context.Background(), "invoices/42/abc/fatura.pdf")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/invoices/invoices/42/abc/fatura.pdf?"))
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.True(t, expiresAt.After(time.Now()))

	_, _, err = archive.DownloadURL(context.Background(), "")
	assert.ErrorIs(t, err, ErrKeyRequired)
}
