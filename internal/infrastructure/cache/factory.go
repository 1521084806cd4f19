package cache

import (
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StockGuardFactory creates stock guards based on configuration
type StockGuardFactory struct {
	redisConfig           config.RedisConfig
	guardOptions          GuardOptions
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StockGuardFactoryOption is a functional option for configuring the factory
type StockGuardFactoryOption func(*StockGuardFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StockGuardFactoryOption {
	return func(f *StockGuardFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-process guard
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) StockGuardFactoryOption {
	return func(f *StockGuardFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithGuardOptions sets lock TTL and wait settings
func WithGuardOptions(opts GuardOptions) StockGuardFactoryOption {
	return func(f *StockGuardFactory) {
		f.guardOptions = opts
	}
}

// NewStockGuardFactory creates a new factory
func NewStockGuardFactory(cfg config.RedisConfig, opts ...StockGuardFactoryOption) *StockGuardFactory {
	f := &StockGuardFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisGuard creates a Redis-backed guard
func (f *StockGuardFactory) CreateRedisGuard() (*RedisStockGuard, error) {
	guard, err := NewRedisStockGuard(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.guardOptions, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis stock guard: %w", err)
	}
	return guard, nil
}

// CreateInMemoryGuard creates an in-process guard.
// WARNING: it does not serialize writes made by other instances.
func (f *StockGuardFactory) CreateInMemoryGuard() *InMemoryStockGuard {
	return NewInMemoryStockGuard(f.guardOptions.WaitTimeout)
}

// CreateGuard tries Redis first and falls back to the in-process guard
// when allowed
func (f *StockGuardFactory) CreateGuard() (shared.StockGuard, error) {
	guard, err := f.CreateRedisGuard()
	if err == nil {
		f.logger.Info("using Redis stock guard")
		return guard, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for stock guard but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory stock guard. "+
		"Concurrent sales on other instances are not serialized.",
		zap.Error(err),
	)
	return f.CreateInMemoryGuard(), nil
}

// Create builds the guard named by backend: "redis" (with the configured
// fallback) or "memory"
func (f *StockGuardFactory) Create(backend string) (shared.StockGuard, error) {
	switch backend {
	case "", "redis":
		return f.CreateGuard()
	case "memory":
		f.logger.Warn("using in-memory stock guard, run a single instance only")
		return f.CreateInMemoryGuard(), nil
	default:
		return nil, fmt.Errorf("unknown stock guard backend %q", backend)
	}
}
