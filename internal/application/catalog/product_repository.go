package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/application/saga"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ProductFilter narrows product listings
type ProductFilter struct {
	Category catalog.Category `form:"category"`
	Barcode  string           `form:"barcode"`
}

// ProductRepository reads and writes products of the actor's store.
// Every write is versioned: it only lands if nobody else wrote the
// product since it was read.
type ProductRepository struct {
	logger   *zap.Logger
	settings saga.Settings
	clock    shared.Clock
	guard    shared.StockGuard
}

// ProductRepositoryOption configures a ProductRepository
type ProductRepositoryOption func(*ProductRepository)

// WithStockGuard serializes Update with the stock workflows holding the
// same product locks
func WithStockGuard(guard shared.StockGuard) ProductRepositoryOption {
	return func(r *ProductRepository) {
		if guard != nil {
			r.guard = guard
		}
	}
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(logger *zap.Logger, settings saga.Settings, opts ...ProductRepositoryOption) *ProductRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &ProductRepository{
		logger:   logger,
		settings: settings,
		clock:    settings.Now,
		guard:    shared.NoopStockGuard{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns a product listed for the actor's store
func (r *ProductRepository) Get(ctx context.Context, ac app.Context, id string) (*catalog.Product, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	var p catalog.Product
	err := ac.Collection(docstore.Products).FindOne(ctx, docstore.Filter{"id": id, "stores": ac.Actor.StoreID}, &p)
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, shared.NewNotFoundError("Product not found")
	}
	if err != nil {
		return nil, shared.NewPersistenceError("load product", err)
	}
	return &p, nil
}

// GetAll lists the products of the actor's store
func (r *ProductRepository) GetAll(ctx context.Context, ac app.Context, filter ProductFilter) ([]catalog.Product, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	f := docstore.Filter{"stores": ac.Actor.StoreID}
	if filter.Category != "" {
		f["category"] = filter.Category
	}
	if filter.Barcode != "" {
		f["barcode"] = filter.Barcode
	}

	products := []catalog.Product{}
	if err := ac.Collection(docstore.Products).Find(ctx, f, &products); err != nil {
		return nil, shared.NewPersistenceError("list products", err)
	}
	return products, nil
}

// LoadForStore fetches the given products of the actor's store keyed by
// id. Any id that is not found yields a not-found error.
func (r *ProductRepository) LoadForStore(ctx context.Context, ac app.Context, ids []string) (map[string]*catalog.Product, error) {
	var found []catalog.Product
	err := ac.Collection(docstore.Products).Find(ctx, docstore.Filter{
		"stores": ac.Actor.StoreID,
		"id":     docstore.In(ids...),
	}, &found)
	if err != nil {
		return nil, shared.NewPersistenceError("load products", err)
	}

	byID := make(map[string]*catalog.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, shared.NewNotFoundError(fmt.Sprintf("Product with '%s' id not found", id))
		}
	}
	return byID, nil
}

// Register creates a product. Name, barcode and both prices are required.
func (r *ProductRepository) Register(ctx context.Context, ac app.Context, in catalog.ProductInput) (*catalog.Product, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "product", "register",
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, ac.Actor.StoreID))
	defer span.End()

	if err := ac.Validate(); err != nil {
		return nil, err
	}
	if err := requireForCreate(in); err != nil {
		return nil, err
	}

	product := catalog.NewProductDraft(ac.Actor, r.clock)
	if err := catalog.NewProductMutator(product, catalog.WithProductClock(r.clock)).ApplyInput(in); err != nil {
		return nil, err
	}

	products := ac.Collection(docstore.Products)
	err := r.settings.New("product.register", r.logger, ac.Actor.StoreID).Add(saga.Step{
		Name:    "insert_product",
		Forward: func(ctx context.Context) error { return products.InsertOne(ctx, product) },
		Inverse: func(ctx context.Context) error {
			_, err := products.DeleteOne(ctx, docstore.Filter{"id": product.ID})
			return err
		},
		CompensateOnFailure: true,
	}).Run(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewPersistenceError("register product", err)
	}

	r.logger.Info("product registered",
		zap.String("product_id", product.ID),
		zap.String("store_id", ac.Actor.StoreID),
	)
	return product, nil
}

// Update applies in to a product all-or-nothing and writes it back
func (r *ProductRepository) Update(ctx context.Context, ac app.Context, id string, in catalog.ProductInput) (*catalog.Product, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "product", "update",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, id))
	defer span.End()

	if err := ac.Validate(); err != nil {
		return nil, err
	}
	release, err := r.guard.Acquire(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	original, err := r.Get(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	updated := original.Clone()
	if err := catalog.NewProductMutator(updated, catalog.WithProductClock(r.clock)).ApplyInput(in); err != nil {
		return nil, err
	}

	if err := r.SaveVersioned(ctx, ac, updated, original.Version); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return updated, nil
}

// SaveVersioned writes p if the stored version still equals expected.
// On success p.Version is expected+1. p.WriteID is set to a fresh id
// naming this attempt whether or not it lands.
func (r *ProductRepository) SaveVersioned(ctx context.Context, ac app.Context, p *catalog.Product, expected int64) error {
	p.Version = expected + 1
	p.WriteID = shared.NewID()
	res, err := ac.Collection(docstore.Products).UpdateOne(ctx,
		docstore.Filter{"id": p.ID, "stores": ac.Actor.StoreID, "version": expected},
		docstore.Update{Set: productFields(p)},
	)
	if err != nil {
		p.Version = expected
		return shared.NewPersistenceError(fmt.Sprintf("update product %s", p.ID), err)
	}
	if res.Matched == 0 {
		p.Version = expected
		return shared.NewConflictError(fmt.Sprintf("Product '%s' was modified by another request", p.ID))
	}
	return nil
}

// Restore puts snapshot back over the write attempted with written.
// It only replaces the document while that write is still the stored one,
// so a later writer is never overwritten. A write that never landed
// leaves the product alone.
func (r *ProductRepository) Restore(ctx context.Context, ac app.Context, snapshot, written *catalog.Product) error {
	products := ac.Collection(docstore.Products)
	res, err := products.UpdateOne(ctx,
		docstore.Filter{"id": snapshot.ID, "version": snapshot.Version + 1, "writeId": written.WriteID},
		docstore.Update{Set: productFields(snapshot)},
	)
	if err != nil {
		return fmt.Errorf("restore product %s: %w", snapshot.ID, err)
	}
	if res.Matched > 0 {
		return nil
	}

	var current catalog.Product
	if err := products.FindOne(ctx, docstore.Filter{"id": snapshot.ID}, &current); err != nil {
		return fmt.Errorf("restore product %s: %w", snapshot.ID, err)
	}
	if current.Version == snapshot.Version && current.WriteID == snapshot.WriteID {
		return nil
	}
	return shared.NewConflictError(fmt.Sprintf("Product '%s' changed to version %d before it could be restored", snapshot.ID, current.Version))
}

// WriteStep is a saga step writing updated over original with a version
// check. A write rejected by the version check never landed and is not
// undone; any other outcome is undone by restoring original.
func (r *ProductRepository) WriteStep(ac app.Context, original, updated *catalog.Product) saga.Step {
	var attempted bool
	return saga.Step{
		Name: "write_product_" + original.ID,
		Forward: func(ctx context.Context) error {
			err := r.SaveVersioned(ctx, ac, updated, original.Version)
			attempted = err == nil || shared.KindOf(err) != shared.KindConflict
			return err
		},
		Inverse: func(ctx context.Context) error {
			if !attempted {
				return nil
			}
			return r.Restore(ctx, ac, original, updated)
		},
		CompensateOnFailure: true,
	}
}

func productFields(p *catalog.Product) map[string]any {
	return map[string]any{
		"name":          p.Name,
		"barcode":       p.Barcode,
		"category":      p.Category,
		"purchasePrice": p.PurchasePrice,
		"sellPrice":     p.SellPrice,
		"profit":        p.Profit,
		"stock":         p.Stock,
		"car":           p.Car,
		"furnicture":    p.Furniture,
		"expirable":     p.Expirable,
		"version":       p.Version,
		"writeId":       p.WriteID,
	}
}

func requireForCreate(in catalog.ProductInput) error {
	switch {
	case in.Name == nil:
		return shared.NewValidationError("REQUIRED", string(catalog.FieldName), "Name is required")
	case in.Barcode == nil:
		return shared.NewValidationError("REQUIRED", string(catalog.FieldBarcode), "Barcode is required")
	case in.PurchasePrice == nil:
		return shared.NewValidationError("REQUIRED", string(catalog.FieldPurchasePrice), "Purchase price is required")
	case in.SellPrice == nil:
		return shared.NewValidationError("REQUIRED", string(catalog.FieldSellPrice), "Sell price is required")
	}
	return nil
}
