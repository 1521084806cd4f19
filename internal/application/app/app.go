// Package app holds the per-request bundle every repository operation
// receives: the storage handle and the acting user.
package app

import (
	"errors"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
)

// Context is owned by the process boundary. Repositories never open or
// cache connections of their own.
type Context struct {
	Store docstore.Store
	Actor shared.Actor
}

// New bundles store and actor
func New(store docstore.Store, actor shared.Actor) Context {
	return Context{Store: store, Actor: actor}
}

// Validate checks that the context can scope a query
func (c Context) Validate() error {
	if c.Store == nil {
		return shared.NewPersistenceError("resolve storage", errors.New("no store configured"))
	}
	return c.Actor.Validate()
}

// Collection is a shorthand for c.Store.Collection
func (c Context) Collection(name string) docstore.Collection {
	return c.Store.Collection(name)
}

// StoreFilter selects the actor's store document
func (c Context) StoreFilter() docstore.Filter {
	return docstore.Filter{"id": c.Actor.StoreID}
}
