package cache

import (
	"testing"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockGuardFactory_Create(t *testing.T) {
	unreachable := config.RedisConfig{Host: "127.0.0.1", Port: 1}
	opts := WithGuardOptions(GuardOptions{WaitTimeout: 50 * time.Millisecond})

	t.Run("memory backend", func(t *testing.T) {
		guard, err := NewStockGuardFactory(unreachable, opts).Create("memory")
		require.NoError(t, err)
		assert.IsType(t, &InMemoryStockGuard{}, guard)
	})

	t.Run("redis falls back when allowed", func(t *testing.T) {
		guard, err := NewStockGuardFactory(unreachable, opts).Create("redis")
		require.NoError(t, err)
		assert.IsType(t, &InMemoryStockGuard{}, guard)
	})

	t.Run("redis required", func(t *testing.T) {
		_, err := NewStockGuardFactory(unreachable, opts, WithInMemoryFallback(false)).Create("redis")
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewStockGuardFactory(unreachable, opts).Create("etcd")
		assert.ErrorContains(t, err, "etcd")
	})
}
