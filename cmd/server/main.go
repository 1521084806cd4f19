package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/erp/backoffice/internal/application/catalog"
	financeapp "github.com/erp/backoffice/internal/application/finance"
	inventoryapp "github.com/erp/backoffice/internal/application/inventory"
	partnerapp "github.com/erp/backoffice/internal/application/partner"
	propertyapp "github.com/erp/backoffice/internal/application/property"
	"github.com/erp/backoffice/internal/application/saga"
	tradeapp "github.com/erp/backoffice/internal/application/trade"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/cache"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a config file (default: search ./config.toml and ./config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

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
		_ = log.Sync()
	}()

	ctx := context.Background()

	// Telemetry providers
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
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, zapcore.InfoLevel)
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	log.Info("Starting backoffice",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	// Document store holding the store, product, property and fee collections
	store, err := docstore.NewMongoStore(ctx, docstore.MongoConfig{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to document store", zap.Error(err))
	}

	// Relational journal of compensation failures
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to journal database", zap.Error(err))
	}
	dbInstrumentation, err := telemetry.NewDBInstrumentation(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, meter, log)
	if err != nil {
		log.Fatal("Failed to create database instrumentation", zap.Error(err))
	}
	if err := dbInstrumentation.Register(db.DB); err != nil {
		log.Fatal("Failed to register database instrumentation", zap.Error(err))
	}
	journal := persistence.NewGormCompensationJournal(db.DB)

	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:           meter,
		Logger:          log,
		FailureProvider: telemetry.NewGormFailureCountProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}
	metricsCtx, stopMetrics := context.WithCancel(ctx)
	businessMetrics.StartPeriodicCollection(metricsCtx, 0)

	// Stock guard serializing concurrent writes to the same product or property
	guardFactory := cache.NewStockGuardFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
		cache.WithGuardOptions(cache.GuardOptions{
			TTL:         cfg.Saga.GuardTTL,
			WaitTimeout: cfg.Saga.GuardWait,
		}),
	)
	guard, err := guardFactory.Create(cfg.Saga.GuardBackend)
	if err != nil {
		log.Fatal("Failed to create stock guard", zap.Error(err))
	}

	// Repositories
	settings := saga.Settings{
		Recorder:            journal,
		Metrics:             businessMetrics,
		StepTimeout:         cfg.Saga.StepTimeout,
		CompensationTimeout: cfg.Saga.CompensationTimeout,
		Clock:               shared.SystemClock,
	}
	tariffs := make(finance.Tariffs, len(cfg.Fees.Tariffs))
	for feeType, amount := range cfg.Fees.Tariffs {
		tariffs[finance.FeeType(feeType)] = amount
	}

	productRepo := catalogapp.NewProductRepository(log, settings, catalogapp.WithStockGuard(guard))
	customerRepo := partnerapp.NewCustomerRepository(log, shared.SystemClock)
	debtRepo := tradeapp.NewSaleDebtRepository(productRepo, customerRepo, guard, settings, log)
	feeRepo := financeapp.NewFeeRepository(tariffs, settings, log)
	propertyRepo := propertyapp.NewPropertyRepository(settings, log)
	stockReportRepo := inventoryapp.NewStockReportRepository(productRepo, guard, settings, log)
	bookingRepo := propertyapp.NewBookingRepository(propertyRepo, customerRepo, guard, settings, log)

	// HTTP layer
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(cfg.Telemetry.ServiceName),
		middleware.SpanEnricher(),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(meter, log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	checks := map[string]handler.Pinger{
		"document_store": store,
		"journal":        db,
	}
	if rg, ok := guard.(*cache.RedisStockGuard); ok {
		checks["stock_guard"] = handler.PingFunc(func(ctx context.Context) error {
			return rg.GetClient().Ping(ctx).Err()
		})
	}
	healthHandler := handler.NewHealthHandler(checks, 2*time.Second)

	jwtService := auth.NewJWTService(cfg.JWT)
	r := router.NewRouter(engine, router.WithAuth(middleware.JWTAuth(jwtService, log)))
	r.Root(healthHandler).
		Public(healthHandler).
		Register(handler.NewDebtHandler(store, debtRepo)).
		Register(handler.NewFeeHandler(store, feeRepo)).
		Register(handler.NewPropertyHandler(store, propertyRepo)).
		Register(handler.NewBookingHandler(store, bookingRepo)).
		Register(handler.NewStockReportHandler(store, stockReportRepo)).
		Register(handler.NewProductHandler(store, productRepo)).
		Register(handler.NewCustomerHandler(store, customerRepo)).
		Register(handler.NewCompensationHandler(store, journal))
	r.Setup()

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	stopMetrics()
	businessMetrics.Stop()

	if closer, ok := guard.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Error("Error closing stock guard", zap.Error(err))
		}
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Error("Error closing document store", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing journal database", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
