package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix     = "stock:guard:"
	defaultLockTTL       = 10 * time.Second
	defaultWaitTimeout   = 3 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
)

// releaseScript deletes a lock only if it is still held by the same token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// GuardOptions tunes lock acquisition
type GuardOptions struct {
	KeyPrefix     string
	TTL           time.Duration
	WaitTimeout   time.Duration
	RetryInterval time.Duration
}

func (o GuardOptions) withDefaults() GuardOptions {
	if o.KeyPrefix == "" {
		o.KeyPrefix = defaultKeyPrefix
	}
	if o.TTL <= 0 {
		o.TTL = defaultLockTTL
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = defaultWaitTimeout
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = defaultRetryInterval
	}
	return o
}

// RedisStockGuard implements shared.StockGuard with one SET NX PX lock per
// product, so every instance of the service shares the same locks.
// Locks expire after TTL if the holder dies.
type RedisStockGuard struct {
	client *redis.Client
	opts   GuardOptions
	logger *zap.Logger
}

// NewRedisStockGuard connects to Redis and verifies the connection
func NewRedisStockGuard(cfg RedisConfig, opts GuardOptions, logger *zap.Logger) (*RedisStockGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStockGuardWithClient(client, opts, logger), nil
}

// NewRedisStockGuardWithClient builds a guard over an existing client
func NewRedisStockGuardWithClient(client *redis.Client, opts GuardOptions, logger *zap.Logger) *RedisStockGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStockGuard{client: client, opts: opts.withDefaults(), logger: logger}
}

// Acquire locks keys in sorted order, waiting up to WaitTimeout for each
func (g *RedisStockGuard) Acquire(ctx context.Context, keys ...string) (func(), error) {
	token := shared.NewID()
	held := make([]string, 0, len(keys))

	for _, key := range sortedUnique(keys) {
		redisKey := g.opts.KeyPrefix + key
		if err := g.lock(ctx, redisKey, token); err != nil {
			g.unlock(held, token)
			return nil, err
		}
		held = append(held, redisKey)
	}

	return sync.OnceFunc(func() { g.unlock(held, token) }), nil
}

func (g *RedisStockGuard) lock(ctx context.Context, key, token string) error {
	deadline := time.NewTimer(g.opts.WaitTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(g.opts.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := g.client.SetNX(ctx, key, token, g.opts.TTL).Result()
		if err != nil {
			return shared.NewPersistenceError("acquire stock lock", err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			g.logger.Warn("stock lock wait timed out", zap.String("key", key))
			return shared.ErrStockBusy
		case <-ticker.C:
		}
	}
}

func (g *RedisStockGuard) unlock(keys []string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := len(keys) - 1; i >= 0; i-- {
		if err := releaseScript.Run(ctx, g.client, []string{keys[i]}, token).Err(); err != nil {
			// The lock expires on its own after TTL.
			g.logger.Warn("failed to release stock lock", zap.String("key", keys[i]), zap.Error(err))
		}
	}
}

// Close closes the Redis client
func (g *RedisStockGuard) Close() error {
	return g.client.Close()
}

// GetClient returns the underlying Redis client
func (g *RedisStockGuard) GetClient() *redis.Client {
	return g.client
}

var _ shared.StockGuard = (*RedisStockGuard)(nil)
