package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
)

// InMemoryStockGuard implements shared.StockGuard with process-local
// locks. It is suitable for single-instance deployments and testing.
type InMemoryStockGuard struct {
	mu          sync.Mutex
	locks       map[string]chan struct{}
	waitTimeout time.Duration
}

// NewInMemoryStockGuard creates a guard; waitTimeout <= 0 uses the default
func NewInMemoryStockGuard(waitTimeout time.Duration) *InMemoryStockGuard {
	if waitTimeout <= 0 {
		waitTimeout = defaultWaitTimeout
	}
	return &InMemoryStockGuard{
		locks:       make(map[string]chan struct{}),
		waitTimeout: waitTimeout,
	}
}

func (g *InMemoryStockGuard) slot(key string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		g.locks[key] = ch
	}
	return ch
}

// Acquire locks keys in sorted order
func (g *InMemoryStockGuard) Acquire(ctx context.Context, keys ...string) (func(), error) {
	timer := time.NewTimer(g.waitTimeout)
	defer timer.Stop()

	held := make([]chan struct{}, 0, len(keys))
	release := func() {
		for _, ch := range slices.Backward(held) {
			<-ch
		}
	}

	for _, key := range sortedUnique(keys) {
		ch := g.slot(key)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		case <-timer.C:
			release()
			return nil, shared.ErrStockBusy
		}
	}
	return sync.OnceFunc(release), nil
}

func sortedUnique(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

var _ shared.StockGuard = (*InMemoryStockGuard)(nil)
