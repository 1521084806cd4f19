package shared

import "context"

// StockGuard serializes stock writes on the same products across requests.
// Acquire locks every key or none and returns a release func that must be
// called exactly once.
type StockGuard interface {
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

// ErrStockBusy is returned when a product stays locked by another request
var ErrStockBusy = &DomainError{Kind: KindConflict, Code: "STOCK_BUSY", Message: "Product stock is being updated by another request, try again"}

// NoopStockGuard never blocks
type NoopStockGuard struct{}

// Acquire returns immediately
func (NoopStockGuard) Acquire(context.Context, ...string) (func(), error) {
	return func() {}, nil
}
