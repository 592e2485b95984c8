package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	syncapp "github.com/erp/equipsync/internal/application/integration"
	"github.com/erp/equipsync/internal/domain/integration"
	"github.com/erp/equipsync/internal/infrastructure/config"
	"github.com/erp/equipsync/internal/infrastructure/feed"
	"github.com/erp/equipsync/internal/infrastructure/lease"
	"github.com/erp/equipsync/internal/infrastructure/logger"
	"github.com/erp/equipsync/internal/infrastructure/persistence"
	"github.com/erp/equipsync/internal/infrastructure/scheduler"
	"github.com/erp/equipsync/internal/infrastructure/telemetry"
	"github.com/erp/equipsync/internal/interfaces/http/handler"
	"github.com/erp/equipsync/internal/interfaces/http/middleware"
	"github.com/erp/equipsync/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			equipsync API
//	@version		1.0
//	@description	Reconciles the external inventory feed into the local equipment store.

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting equipsync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingAddress,
		ApplicationName: serviceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	profiler.LinkSpans(tracerProvider)

	syncMetrics, err := telemetry.NewSyncMetrics(meterProvider.Meter("equipsync.sync"))
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Log.SlowQueryThreshold)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:            cfg.Telemetry.Enabled && cfg.Telemetry.DBTracingEnabled,
		LogFullSQL:         cfg.App.Env == "development",
		SlowQueryThreshold: cfg.Log.SlowQueryThreshold,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	equipmentRepo := persistence.NewGormEquipmentRepository(db.DB)
	syncRunRepo := persistence.NewGormSyncRunRepository(db.DB, log)

	// Sync engine
	feedClient := feed.NewClient(feedConfig(cfg.Feed), log, feed.WithRequestObserver(syncMetrics))
	syncService := syncapp.NewInventorySyncService(feedClient, equipmentRepo, log,
		syncapp.WithFeedQuery(integration.FeedQuery{LocationIDs: cfg.Feed.LocationIDs}),
		syncapp.WithExecutorConfig(syncapp.ExecutorConfig{
			ChunkSize: cfg.Sync.ChunkSize,
			Workers:   cfg.Sync.Workers,
		}),
		syncapp.WithRunRecorder(syncMetrics),
		syncapp.WithRunRecorder(syncRunRepo),
	)

	runLease, closeLease := newLease(ctx, cfg.Redis, log)
	defer closeLease()

	guarded, err := scheduler.NewGuardedRunner(syncService, runLease, cfg.Sync.LeaseTTL, log)
	if err != nil {
		log.Fatal("Failed to create guarded runner", zap.Error(err))
	}

	var trigger *scheduler.SyncTrigger
	if cfg.Sync.Enabled {
		trigger, err = scheduler.NewSyncTrigger(scheduler.SyncTriggerConfig{
			Interval:   cfg.Sync.Interval,
			RunOnStart: cfg.Sync.RunOnStart,
		}, guarded, log)
		if err != nil {
			log.Fatal("Failed to create sync trigger", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start sync trigger", zap.Error(err))
		}
	} else {
		log.Info("Periodic inventory sync disabled; manual trigger only")
	}

	// HTTP
	httpMeter := meterProvider.Meter("http.server")
	if !meterProvider.IsEnabled() {
		httpMeter = nil
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Logger: log,
		Meter:  httpMeter,
		Tracing: middleware.TracingConfig{
			ServiceName: serviceName,
			Enabled:     tracerProvider.IsEnabled(),
		},
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Sync:           handler.NewInventorySyncHandler(guarded, syncRunRepo),
		System:         handler.NewSystemHandler(cfg.App.Name, version, db),
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
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if trigger != nil {
		if err := trigger.Stop(shutdownCtx); err != nil {
			log.Warn("Sync trigger did not stop cleanly", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler stop failed", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Logger provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func feedConfig(c config.FeedConfig) feed.Config {
	return feed.Config{
		BaseURL:            c.BaseURL,
		ListPath:           c.ListPath,
		APIKey:             c.APIKey,
		PageSize:           c.PageSize,
		MinRequestInterval: c.MinRequestInterval,
		MaxAttempts:        c.MaxAttempts,
		RateLimitBackoff:   c.RateLimitBackoff,
		RetryBackoff:       c.RetryBackoff,
		MaxRetryWait:       c.MaxRetryWait,
		MaxPages:           c.MaxPages,
		Timeout:            c.Timeout,
	}
}

// newLease picks the redis lease when redis is configured and reachable,
// and the in-process lease otherwise.
func newLease(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (lease.Lease, func()) {
	addr := cfg.Addr()
	if addr == "" {
		log.Info("Redis not configured, using in-process sync lease")
		return lease.NewInMemoryLease(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", zap.String("addr", addr), zap.Error(err))
	}
	log.Info("Using redis sync lease", zap.String("addr", addr))

	return lease.NewRedisLease(client, "", log), func() {
		if err := client.Close(); err != nil {
			log.Warn("Error closing redis client", zap.Error(err))
		}
	}
}
