package router

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sechic/backend/internal/infrastructure/logger"
	"github.com/sechic/backend/internal/interfaces/http/handler"
	"github.com/sechic/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Config configures the HTTP engine
type Config struct {
	ServiceName    string
	TracingEnabled bool
	MaxBodySize    int64
	TrustedProxies []string
	Tokens         middleware.TokenValidator
	Logger         *zap.Logger
}

// Handlers are the route handlers served by the engine
type Handlers struct {
	Batch      *handler.BatchHandler
	Sync       *handler.SyncHandler
	ERPCatalog *handler.ERPCatalogHandler
	System     *handler.SystemHandler
}

// NewEngine builds the gin engine with the full middleware chain and routes.
// Everything under /api/v1 except health requires a bearer token.
func NewEngine(cfg Config, h Handlers) (*gin.Engine, error) {
	if cfg.Tokens == nil {
		return nil, errors.New("router: token validator is required")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled}),
		logger.GinMiddleware(log),
		middleware.BodyLimit(cfg.MaxBodySize),
	)

	engine.GET("/health", h.System.Health)

	jwtCfg := middleware.DefaultJWTConfig(cfg.Tokens)
	jwtCfg.Logger = log
	r := NewRouter(engine, WithAPIMiddleware(
		middleware.JWTAuthMiddleware(jwtCfg),
		middleware.SpanEnricher(),
	))
	r.Register(NewDomainGroup("system", "").GET("/health", h.System.Health))
	r.Register(batchRoutes(h.Batch, h.Sync))
	r.Register(markupRoutes(h.Batch))
	r.Register(erpCatalogRoutes(h.ERPCatalog))
	r.Setup()

	return engine, nil
}

func batchRoutes(batches *handler.BatchHandler, syncs *handler.SyncHandler) RouteRegistrar {
	imports := NewDomainGroup("imports", "/imports").
		POST("", batches.Import)

	group := NewDomainGroup("batches", "/batches").
		GET("/:id", batches.Get).
		GET("/:id/document", batches.Document).
		PUT("/:id/products/:index", batches.EditProduct).
		DELETE("/:id/products/:index", batches.DeleteProduct).
		DELETE("/:id/products/:index/variants/:variant", batches.DeleteVariant).
		POST("/:id/barcode-prefix", batches.RewriteBarcodePrefix).
		POST("/:id/markups", batches.ApplyMarkup).
		POST("/:id/supplier-markup", batches.ChangeSupplierMarkup).
		POST("/:id/compare/:platform", syncs.Compare).
		POST("/:id/sync/:platform", syncs.Sync)

	return registrars{imports, group}
}

func markupRoutes(batches *handler.BatchHandler) RouteRegistrar {
	return NewDomainGroup("markups", "/markups").
		GET("/:supplier", batches.GetMarkup)
}

func erpCatalogRoutes(refresh *handler.ERPCatalogHandler) RouteRegistrar {
	return NewDomainGroup("erp-catalog", "/erp-catalog").
		POST("/refresh", refresh.StartRefresh).
		GET("/refresh", refresh.GetRefresh).
		POST("/refresh/cancel", refresh.CancelRefresh)
}

type registrars []RouteRegistrar

func (rs registrars) RegisterRoutes(rg *gin.RouterGroup) {
	for _, r := range rs {
		r.RegisterRoutes(rg)
	}
}
