package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound query variables in span statements (development only)
	LogFullSQL         bool
	SlowQueryThreshold time.Duration
	DBSystem           string
	// TracerProvider overrides the global provider (tests)
	TracerProvider trace.TracerProvider
}

type queryStartKey struct{}

// gormHook registers one callback against a single gorm processor
type gormHook func(db *gorm.DB, name string, fn func(*gorm.DB)) error

var beforeHooks = map[string]gormHook{
	"create": func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
		return db.Callback().Create().Before("gorm:create").Register(n, fn)
	},
	"query": func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
		return db.Callback().Query().Before("gorm:query").Register(n, fn)
	},
	"update": func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
		return db.Callback().Update().Before("gorm:update").Register(n, fn)
	},
	"delete": func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
		return db.Callback().Delete().Before("gorm:delete").Register(n, fn)
	},
	"row": func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
		return db.Callback().Row().Before("gorm:row").Register(n, fn)
	},
	"raw": func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
		return db.Callback().Raw().Before("gorm:raw").Register(n, fn)
	},
}

var afterHooks = map[string]gormHook{
	"create": func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
		return db.Callback().Create().After("gorm:create").Register(n, fn)
	},
	"query": func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
		return db.Callback().Query().After("gorm:query").Register(n, fn)
	},
	"update": func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
		return db.Callback().Update().After("gorm:update").Register(n, fn)
	},
	"delete": func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
		return db.Callback().Delete().After("gorm:delete").Register(n, fn)
	},
	"row": func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
		return db.Callback().Row().After("gorm:row").Register(n, fn)
	},
	"raw": func(db *gorm.DB, n string, fn func(*gorm.DB)) error {
		return db.Callback().Raw().After("gorm:raw").Register(n, fn)
	},
}

// RegisterDBTracing installs the otelgorm plugin and a callback pair that
// marks slow and failed statements on the statement span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(cfg.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	markStart := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	annotate := func(tx *gorm.DB) { annotateStatement(tx, cfg.SlowQueryThreshold) }

	for op, hook := range beforeHooks {
		if err := hook(db, "equipsync_timing:before_"+op, markStart); err != nil {
			return err
		}
	}
	for op, hook := range afterHooks {
		if err := hook(db, "equipsync_timing:after_"+op, annotate); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
		zap.String("db_system", cfg.DBSystem),
	)
	return nil
}

func annotateStatement(tx *gorm.DB, slow time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if tx.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	}
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}

	if started, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		if elapsed := time.Since(started); elapsed > slow {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
