package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sechic/backend/internal/application/catalogsync"
	"github.com/sechic/backend/internal/domain/integration"
	"github.com/sechic/backend/internal/infrastructure/auth"
	"github.com/sechic/backend/internal/infrastructure/cache"
	"github.com/sechic/backend/internal/infrastructure/config"
	"github.com/sechic/backend/internal/infrastructure/ecommerce"
	"github.com/sechic/backend/internal/infrastructure/extraction"
	"github.com/sechic/backend/internal/infrastructure/logger"
	"github.com/sechic/backend/internal/infrastructure/persistence"
	"github.com/sechic/backend/internal/infrastructure/storage"
	"github.com/sechic/backend/internal/infrastructure/telemetry"
	"github.com/sechic/backend/internal/infrastructure/throttle"
	"github.com/sechic/backend/internal/interfaces/http/handler"
	"github.com/sechic/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const (
	serviceVersion  = "1.0.0"
	shutdownTimeout = 30 * time.Second
	slowQuery       = 200 * time.Millisecond
)

var _ catalogsync.SyncRecorder = (*telemetry.SyncMetrics)(nil)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting catalog sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("company", cfg.CompanyKey()),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter("github.com/sechic/backend")
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = logsProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), slowQuery)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: slowQuery,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	var poolMetrics *telemetry.DBPoolMetrics
	if sqlDB, err := db.DB.DB(); err == nil {
		poolMetrics, err = telemetry.NewDBPoolMetrics(meter, sqlDB)
		if err != nil {
			log.Warn("Database pool metrics unavailable", zap.Error(err))
		}
	}

	markupRepo := persistence.NewGormMarkupRepository(db.DB)
	referenceRepo := persistence.NewGormReferenceRepository(db.DB)
	erpMirror := persistence.NewGormERPProductRepository(db.DB)

	// Batches, progress and the sync lock live in Redis when available
	stores, err := cache.NewStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithBatchTTL(cfg.Sync.BatchTTL),
	).CreateStores()
	if err != nil {
		log.Fatal("Failed to create state stores", zap.Error(err))
	}

	// Sync targets. Unconfigured targets stay nil and their endpoints report
	// PLATFORM_NOT_CONFIGURED.
	var erp integration.ERPPlatform
	if cfg.Moloni.Configured() {
		moloniCfg := ecommerce.NewMoloniConfig(cfg.Moloni.AccessToken, cfg.Moloni.CompanyID)
		if cfg.Moloni.BaseURL != "" {
			moloniCfg.BaseURL = cfg.Moloni.BaseURL
		}
		if cfg.Moloni.Timeout > 0 {
			moloniCfg.Timeout = cfg.Moloni.Timeout
		}
		moloni, err := ecommerce.NewMoloniAdapter(moloniCfg, log)
		if err != nil {
			log.Fatal("Failed to create Moloni adapter", zap.Error(err))
		}
		erp = moloni
	} else {
		log.Warn("Moloni not configured, ERP sync and catalog refresh disabled")
	}

	var shop integration.ShopPlatform
	if cfg.Shopify.Configured() {
		shopifyCfg := ecommerce.NewShopifyConfig(cfg.Shopify.ShopURL, cfg.Shopify.AccessToken)
		if cfg.Shopify.APIVersion != "" {
			shopifyCfg.APIVersion = cfg.Shopify.APIVersion
		}
		if cfg.Shopify.Timeout > 0 {
			shopifyCfg.Timeout = cfg.Shopify.Timeout
		}
		shopify, err := ecommerce.NewShopifyAdapter(shopifyCfg, log)
		if err != nil {
			log.Fatal("Failed to create Shopify adapter", zap.Error(err))
		}
		shop = shopify
	} else {
		log.Warn("Shopify not configured, store sync disabled")
	}

	extractor, err := extraction.NewClient(extraction.Config{
		BaseURL:      cfg.Extraction.BaseURL,
		Engine:       cfg.Extraction.Engine,
		PollInterval: cfg.Extraction.PollInterval,
		MaxAttempts:  cfg.Extraction.MaxAttempts,
		Timeout:      cfg.Extraction.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create extraction client", zap.Error(err))
	}

	// Invoice archive
	var (
		archive   catalogsync.DocumentArchive
		documents handler.DocumentLinker
	)
	if cfg.Storage.Enabled {
		s3Archive, err := storage.NewS3DocumentArchive(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create invoice archive", zap.Error(err))
		}
		if err := s3Archive.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare invoice bucket", zap.Error(err), zap.String("bucket", s3Archive.Bucket()))
		}
		archive = s3Archive
		documents = s3Archive
	}

	syncMetrics, err := telemetry.NewSyncMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}

	// Application services
	batchService := catalogsync.NewBatchService(stores.Batches, referenceRepo, markupRepo, extractor, archive, log)
	comparisonService := catalogsync.NewComparisonService(stores.Batches, erpMirror, shop, log)
	syncService := catalogsync.NewSyncService(catalogsync.SyncServiceConfig{
		Batches:   stores.Batches,
		ERP:       erp,
		Shop:      shop,
		Mirror:    erpMirror,
		Lock:      stores.Lock,
		ERPPacer:  throttle.NewPacer(cfg.Moloni.RequestInterval),
		ShopPacer: throttle.NewPacer(cfg.Shopify.RequestInterval),
		Recorder:  syncMetrics,
		LockTTL:   cfg.Sync.LockTTL,
		Logger:    log,
	})
	refreshService := catalogsync.NewRefreshService(erp, erpMirror, stores.Progress, catalogsync.RefreshConfig{
		CompanyID: cfg.CompanyKey(),
		PageSize:  cfg.Sync.RefreshPageSize,
		Pause:     cfg.Sync.RefreshPause,
	}, log)

	// HTTP
	engine, err := router.NewEngine(router.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Tokens:         auth.NewJWTService(cfg.JWT),
		Logger:         log,
	}, router.Handlers{
		Batch:      handler.NewBatchHandler(batchService, documents, cfg.CompanyKey()),
		Sync:       handler.NewSyncHandler(comparisonService, syncService),
		ERPCatalog: handler.NewERPCatalogHandler(refreshService),
		System: handler.NewSystemHandler(cfg.App.Name, serviceVersion, map[string]handler.HealthCheck{
			"database": db.Ping,
			"state":    stores.Ping,
		}),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.String("state_backend", stores.Backend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := refreshService.Stop(shutdownCtx); err != nil {
		log.Error("Catalog refresh did not stop cleanly", zap.Error(err))
	}
	if err := stores.Close(); err != nil {
		log.Error("Error closing state stores", zap.Error(err))
	}
	if poolMetrics != nil {
		if err := poolMetrics.Stop(); err != nil {
			log.Error("Error stopping pool metrics", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}
