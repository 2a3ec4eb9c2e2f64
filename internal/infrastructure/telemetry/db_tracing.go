package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // Include query variables in spans (dev only)
	SlowQueryThresh time.Duration // Default: 200ms
	DBSystem        string        // Default: "postgresql"
}

// DefaultDBTracingConfig returns the secure defaults: disabled, no query variables.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin installs otelgorm plus a slow query detector.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type queryStartKey struct{}

// registrar is a positioned GORM callback awaiting registration
type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

// Register installs otelgorm and the timing callbacks on db. Disabled plugins do nothing.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	callbacks := []struct {
		at   registrar
		name string
		fn   func(*gorm.DB)
	}{
		{cb.Create().Before("gorm:create"), "otel_timing:before_create", markQueryStart},
		{cb.Query().Before("gorm:query"), "otel_timing:before_query", markQueryStart},
		{cb.Update().Before("gorm:update"), "otel_timing:before_update", markQueryStart},
		{cb.Delete().Before("gorm:delete"), "otel_timing:before_delete", markQueryStart},
		{cb.Row().Before("gorm:row"), "otel_timing:before_row", markQueryStart},
		{cb.Raw().Before("gorm:raw"), "otel_timing:before_raw", markQueryStart},
		{cb.Create().After("gorm:create"), "otel_slow_query:create", p.afterQuery},
		{cb.Query().After("gorm:query"), "otel_slow_query:query", p.afterQuery},
		{cb.Update().After("gorm:update"), "otel_slow_query:update", p.afterQuery},
		{cb.Delete().After("gorm:delete"), "otel_slow_query:delete", p.afterQuery},
		{cb.Row().After("gorm:row"), "otel_slow_query:row", p.afterQuery},
		{cb.Raw().After("gorm:raw"), "otel_slow_query:raw", p.afterQuery},
	}
	for _, c := range callbacks {
		if err := c.at.Register(c.name, c.fn); err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

// afterQuery annotates the active span and reports slow queries
func (p *DBTracingPlugin) afterQuery(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
	}

	if elapsed <= p.config.SlowQueryThresh {
		return
	}
	if span.IsRecording() {
		span.SetAttributes(attribute.Bool("db.slow_query", true))
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
	fields := []zap.Field{
		zap.String("table", db.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", db.Statement.RowsAffected),
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		fields = append(fields, zap.Error(db.Error))
	}
	if p.config.LogFullSQL {
		fields = append(fields, zap.String("sql", db.Statement.SQL.String()))
	}
	p.logger.Warn("Slow query", fields...)
}
