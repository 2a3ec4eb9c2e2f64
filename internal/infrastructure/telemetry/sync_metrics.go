package telemetry

import (
	"context"
	"time"

	"github.com/sechic/backend/internal/domain/integration"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetrics records per-item and per-run sync telemetry
type SyncMetrics struct {
	items    *Counter
	runs     *Counter
	duration *Histogram
}

// NewSyncMetrics creates the sync instruments on meter
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	items, err := NewCounter(meter, "sync_items_total", "Products pushed to a platform", "{item}")
	if err != nil {
		return nil, err
	}
	runs, err := NewCounter(meter, "sync_runs_total", "Completed sync runs", "{run}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "sync_run_duration_seconds",
		Description: "Wall time of a sync run",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &SyncMetrics{items: items, runs: runs, duration: duration}, nil
}

// RecordItem counts one pushed product
func (m *SyncMetrics) RecordItem(ctx context.Context, platform integration.PlatformCode, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.items.Inc(ctx, AttrPlatform.String(platform.String()), AttrOutcome.String(outcome))
}

// RecordRun counts one finished run and its duration
func (m *SyncMetrics) RecordRun(ctx context.Context, platform integration.PlatformCode, status integration.SyncStatus, elapsed time.Duration) {
	attrs := []attribute.KeyValue{AttrPlatform.String(platform.String()), AttrStatus.String(string(status))}
	m.runs.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, elapsed, attrs...)
}
