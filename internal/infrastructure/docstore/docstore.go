// Package docstore is the document storage contract used by repositories,
// with a MongoDB implementation and an in-memory one for tests.
package docstore

import (
	"context"
	"errors"
)

// Collection names
const (
	Products     = "products"
	Stores       = "stores"
	Fees         = "fees"
	Properties   = "properties"
	Bookings     = "bookings"
	StockReports = "stock-reports"
)

// ErrNoDocuments is returned by FindOne when nothing matches
var ErrNoDocuments = errors.New("docstore: no documents in result")

// Filter selects documents by field equality. Keys may be dotted paths;
// a path through an array matches when any element matches. Use In for
// set membership.
type Filter map[string]any

// InValues is a set-membership condition
type InValues []any

// In matches when the field equals any of values
func In[T any](values ...T) InValues {
	out := make(InValues, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Update describes one atomic single-document update.
//
// Set paths may contain a positional segment "$[name]" bound by an entry of
// ArrayFilters whose keys are prefixed with "name.".
type Update struct {
	Set          map[string]any
	Push         map[string]any
	Pull         map[string]Filter
	ArrayFilters []Filter
}

// UpdateResult reports how many documents matched and changed
type UpdateResult struct {
	Matched  int64
	Modified int64
}

// Collection is a set of documents
type Collection interface {
	InsertOne(ctx context.Context, doc any) error
	UpdateOne(ctx context.Context, filter Filter, update Update) (UpdateResult, error)
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
	// Find decodes all matching documents into out, a pointer to a slice
	Find(ctx context.Context, filter Filter, out any) error
	// FindOne decodes the first match into out or returns ErrNoDocuments
	FindOne(ctx context.Context, filter Filter, out any) error
}

// Store is a database handle. It is owned by the process boundary and
// passed to repositories explicitly.
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
