package saga

import (
	"context"
	"time"
)

// JournalEntry is a journaled Failure as stored
type JournalEntry struct {
	ID            string     `json:"id"`
	Saga          string     `json:"saga"`
	Step          string     `json:"step"`
	StoreID       string     `json:"storeId"`
	OriginalError string     `json:"originalError"`
	Error         string     `json:"error"`
	OccurredAt    time.Time  `json:"occurredAt"`
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy    string     `json:"resolvedBy,omitempty"`
}

// Journal stores failed inverses until an operator repairs the data
type Journal interface {
	Recorder
	// ListUnresolved returns open entries of storeID, oldest first
	ListUnresolved(ctx context.Context, storeID string) ([]JournalEntry, error)
	// Resolve marks an entry of storeID as repaired
	Resolve(ctx context.Context, storeID, id, resolvedBy string) error
}
