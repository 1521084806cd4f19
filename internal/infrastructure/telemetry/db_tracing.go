package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls instrumentation of the relational journal.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // keep bound variables in span statements
	SlowQueryThresh time.Duration // default 200ms
	DBSystem        string        // default "postgresql"
}

type dbStartKey struct{}

// DBInstrumentation adds spans and a query duration histogram to a gorm DB.
type DBInstrumentation struct {
	config   DBTracingConfig
	logger   *zap.Logger
	duration *Histogram
}

// NewDBInstrumentation creates the instrumentation. A nil meter disables
// the duration histogram.
func NewDBInstrumentation(cfg DBTracingConfig, meter metric.Meter, logger *zap.Logger) (*DBInstrumentation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	d := &DBInstrumentation{config: cfg, logger: logger}
	if meter != nil {
		h, err := NewHistogram(meter, HistogramOpts{
			Name:        "backoffice_db_query_duration_seconds",
			Description: "Duration of journal database queries",
			Unit:        "s",
			Boundaries:  DBDurationBuckets,
		})
		if err != nil {
			return nil, err
		}
		d.duration = h
	}
	return d, nil
}

// Register installs otelgorm and the timing callbacks on db
func (d *DBInstrumentation) Register(db *gorm.DB) error {
	if !d.config.Enabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(d.config.DBSystem)}
	if !d.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
	}
	for _, h := range hooks {
		if err := h.before("backoffice:start:"+h.op, d.start); err != nil {
			return err
		}
		if err := h.after("backoffice:finish:"+h.op, d.finish(h.op)); err != nil {
			return err
		}
	}

	d.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", d.config.LogFullSQL),
		zap.Duration("slow_query_threshold", d.config.SlowQueryThresh),
	)
	return nil
}

func (d *DBInstrumentation) start(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, dbStartKey{}, time.Now())
	}
}

func (d *DBInstrumentation) finish(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		started, ok := ctx.Value(dbStartKey{}).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(started)
		if d.duration != nil {
			d.duration.RecordDuration(ctx, elapsed,
				AttrDBOperation.String(op),
				AttrDBTable.String(db.Statement.Table),
			)
		}

		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			RecordError(span, db.Error)
		}
		if elapsed > d.config.SlowQueryThresh {
			span.SetAttributes(attribute.Bool("db.slow_query", true))
			d.logger.Warn("slow journal query",
				zap.String("operation", op),
				zap.String("table", db.Statement.Table),
				zap.Duration("elapsed", elapsed),
			)
		}
	}
}
