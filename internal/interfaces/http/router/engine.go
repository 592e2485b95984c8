package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/erp/equipsync/internal/infrastructure/logger"
	"github.com/erp/equipsync/internal/interfaces/http/handler"
	"github.com/erp/equipsync/internal/interfaces/http/middleware"
)

// DefaultMaxBodyBytes caps request bodies; no endpoint takes a large payload
const DefaultMaxBodyBytes = 1 << 20

// EngineConfig holds what the HTTP surface needs to be built
type EngineConfig struct {
	Logger         *zap.Logger
	Meter          metric.Meter // nil disables HTTP metrics
	Tracing        middleware.TracingConfig
	TrustedProxies []string
	MaxBodyBytes   int64

	Sync   *handler.InventorySyncHandler
	System *handler.SystemHandler
}

// NewEngine builds the gin engine with the middleware chain and every route
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	metrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	engine.Use(
		logger.Recovery(log),
		middleware.Tracing(cfg.Tracing),
		logger.GinMiddleware(log),
		middleware.SpanEnricher(),
		metrics,
		middleware.Secure(),
		middleware.BodyLimit(maxBody),
	)

	if cfg.System != nil {
		engine.GET("/health", cfg.System.Health)
	}

	var groups []RouteGroup
	if cfg.System != nil {
		groups = append(groups, systemRoutes(cfg.System))
	}
	if cfg.Sync != nil {
		groups = append(groups, syncRoutes(cfg.Sync))
	}
	mounted := Mount(engine, APIVersion, groups...)
	log.Debug("HTTP routes mounted", zap.Strings("routes", mounted))

	return engine, nil
}
