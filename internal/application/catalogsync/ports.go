// Package catalogsync orchestrates invoice imports, batch edits, conflict
// detection and the pushes of a batch to the ERP and the web store.
package catalogsync

import (
	"context"
	"time"

	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/sechic/backend/internal/domain/integration"
)

// Extractor turns an invoice document into raw product data
type Extractor interface {
	Extract(ctx context.Context, filename string, content []byte) (*catalog.RawExtraction, error)
}

// DocumentArchive stores source invoices
type DocumentArchive interface {
	// Put stores content under key and returns the stored object key
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
}

// Pacer spaces consecutive remote calls
type Pacer interface {
	// Wait blocks until the next call may start or ctx is done
	Wait(ctx context.Context) error
}

// SyncRecorder receives sync telemetry
type SyncRecorder interface {
	RecordItem(ctx context.Context, platform integration.PlatformCode, success bool)
	RecordRun(ctx context.Context, platform integration.PlatformCode, status integration.SyncStatus, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordItem(context.Context, integration.PlatformCode, bool) {}

func (nopRecorder) RecordRun(context.Context, integration.PlatformCode, integration.SyncStatus, time.Duration) {
}

type noPacer struct{}

func (noPacer) Wait(ctx context.Context) error {
	return ctx.Err()
}
