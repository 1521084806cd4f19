package trade

import (
	"context"
	"errors"
	"slices"

	"github.com/erp/backoffice/internal/application/app"
	appcatalog "github.com/erp/backoffice/internal/application/catalog"
	apppartner "github.com/erp/backoffice/internal/application/partner"
	"github.com/erp/backoffice/internal/application/saga"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// storeDebts is the projection of a store document holding its debts
type storeDebts struct {
	Debts []trade.SaleDebt `bson:"unpaid-sales"`
}

// SaleDebtRepository registers and revises sale debts. A debt and the
// stock of its products live in different documents, so both operations
// run as sagas: the debt write first, then the product writes, undone in
// reverse on failure.
type SaleDebtRepository struct {
	products  *appcatalog.ProductRepository
	customers *apppartner.CustomerRepository
	guard     shared.StockGuard
	settings  saga.Settings
	logger    *zap.Logger
}

// NewSaleDebtRepository creates a new SaleDebtRepository. A nil guard
// disables stock serialization; version checks still apply.
func NewSaleDebtRepository(
	products *appcatalog.ProductRepository,
	customers *apppartner.CustomerRepository,
	guard shared.StockGuard,
	settings saga.Settings,
	logger *zap.Logger,
) *SaleDebtRepository {
	if guard == nil {
		guard = shared.NoopStockGuard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleDebtRepository{
		products:  products,
		customers: customers,
		guard:     guard,
		settings:  settings,
		logger:    logger,
	}
}

// Get returns a debt of the actor's store
func (r *SaleDebtRepository) Get(ctx context.Context, ac app.Context, id string) (*trade.SaleDebt, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	var doc storeDebts
	err := ac.Collection(docstore.Stores).FindOne(ctx, docstore.Filter{"id": ac.Actor.StoreID, trade.UnpaidSalesField + ".id": id}, &doc)
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, shared.NewNotFoundError("Sale details not found")
	}
	if err != nil {
		return nil, shared.NewPersistenceError("load sale debt", err)
	}
	for i := range doc.Debts {
		if doc.Debts[i].ID == id {
			return &doc.Debts[i], nil
		}
	}
	return nil, shared.NewNotFoundError("Sale details not found")
}

// GetAll lists the debts of the actor's store
func (r *SaleDebtRepository) GetAll(ctx context.Context, ac app.Context, filter trade.DebtFilter) ([]trade.SaleDebt, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	var doc storeDebts
	err := ac.Collection(docstore.Stores).FindOne(ctx, ac.StoreFilter(), &doc)
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, shared.NewNotFoundError("Store not found")
	}
	if err != nil {
		return nil, shared.NewPersistenceError("list sale debts", err)
	}

	debts := make([]trade.SaleDebt, 0, len(doc.Debts))
	for _, d := range doc.Debts {
		if filter.Customer != "" && d.Customer != filter.Customer {
			continue
		}
		debts = append(debts, d)
	}
	return debts, nil
}

// Register records a new debt and takes its quantities out of stock
func (r *SaleDebtRepository) Register(ctx context.Context, ac app.Context, req trade.RegisterDebtRequest) (*trade.SaleDebt, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sale_debt", "register",
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, ac.Actor.StoreID),
		telemetry.WithAttribute(telemetry.SpanAttrItemCount, len(req.Items)),
	)
	defer span.End()

	if err := ac.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := r.customers.Get(ctx, ac, req.Customer); err != nil {
		return nil, err
	}

	ids := trade.ProductIDs(req.Items)
	release, err := r.guard.Acquire(ctx, ids...)
	if err != nil {
		return nil, err
	}
	defer release()

	originals, err := r.products.LoadForStore(ctx, ac, ids)
	if err != nil {
		return nil, err
	}
	working := cloneProducts(originals)

	cart, err := trade.PriceCart(req.Items, working, trade.OnHand)
	if err != nil {
		return nil, err
	}
	if err := cart.CheckDeclaredTotal(req.Total); err != nil {
		return nil, err
	}

	debt := trade.NewSaleDebtDraft(ac.Actor, r.settings.Now)
	if err := buildDebt(trade.NewSaleDebtMutator(debt), req, cart); err != nil {
		return nil, err
	}
	for _, it := range cart.Items {
		if err := catalog.NewProductMutator(working[it.Product.ID]).Stock().Decrement(it.Quantity); err != nil {
			return nil, err
		}
	}

	stores := ac.Collection(docstore.Stores)
	push := saga.Step{
		Name: "push_debt",
		Forward: func(ctx context.Context) error {
			res, err := stores.UpdateOne(ctx, ac.StoreFilter(), docstore.Update{
				Push: map[string]any{trade.UnpaidSalesField: debt},
			})
			if err != nil {
				return err
			}
			if res.Matched == 0 {
				return shared.NewNotFoundError("Store not found")
			}
			return nil
		},
		Inverse: func(ctx context.Context) error {
			_, err := stores.UpdateOne(ctx, ac.StoreFilter(), docstore.Update{
				Pull: map[string]docstore.Filter{trade.UnpaidSalesField: {"id": debt.ID}},
			})
			return err
		},
		CompensateOnFailure: true,
	}

	err = r.settings.New("sale_debt.register", r.logger, ac.Actor.StoreID).
		Add(push, r.productWrites(ac, originals, working, ids)).
		Run(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewPersistenceError("register sale debt", err)
	}

	r.logger.Info("sale debt registered",
		zap.String("debt_id", debt.ID),
		zap.String("store_id", ac.Actor.StoreID),
		zap.String("customer_id", debt.Customer),
		zap.String("total", debt.Total.StringFixed(2)),
	)
	return debt, nil
}

// Update replaces the cart of a debt with a revised one. Stock moves by
// the difference between old and new quantities; lines dropped from the
// cart give their whole quantity back.
func (r *SaleDebtRepository) Update(ctx context.Context, ac app.Context, req trade.UpdateDebtRequest) (*trade.SaleDebt, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sale_debt", "update",
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, ac.Actor.StoreID),
		telemetry.WithAttribute(telemetry.SpanAttrDebtID, req.ID),
	)
	defer span.End()

	if err := ac.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	original, err := r.Get(ctx, ac, req.ID)
	if err != nil {
		return nil, err
	}

	ids := trade.ProductIDs(req.Items)
	for _, it := range original.Items {
		if !slices.Contains(ids, it.Product.ID) {
			ids = append(ids, it.Product.ID)
		}
	}

	release, err := r.guard.Acquire(ctx, ids...)
	if err != nil {
		return nil, err
	}
	defer release()

	originals, err := r.products.LoadForStore(ctx, ac, ids)
	if err != nil {
		return nil, err
	}
	working := cloneProducts(originals)

	// Units already held by this debt are available to it again.
	available := func(p *catalog.Product) decimal.Decimal {
		if it, ok := original.Item(p.ID); ok {
			return p.Stock.Quantity.Add(it.Quantity)
		}
		return p.Stock.Quantity
	}
	cart, err := trade.PriceCart(req.Items, working, available)
	if err != nil {
		return nil, err
	}

	updated := original.Clone()
	m := trade.NewSaleDebtMutator(updated)
	if err := m.ApplyCart(cart); err != nil {
		return nil, err
	}
	if err := m.SetTotalReceived(req.TotalReceived); err != nil {
		return nil, err
	}
	m.SetChanges(req.TotalReceived.Sub(updated.Total))

	changed := make([]string, 0, len(ids))
	for _, id := range ids {
		var before decimal.Decimal
		if it, ok := original.Item(id); ok {
			before = it.Quantity
		}
		delta := before.Sub(cart.Quantity(id))
		if delta.IsZero() {
			continue
		}
		if err := catalog.NewProductMutator(working[id]).Stock().Adjust(delta); err != nil {
			return nil, err
		}
		changed = append(changed, id)
	}

	stores := ac.Collection(docstore.Stores)
	setDebt := func(d *trade.SaleDebt) func(context.Context) error {
		return func(ctx context.Context) error {
			res, err := stores.UpdateOne(ctx, ac.StoreFilter(), docstore.Update{
				Set:          map[string]any{trade.UnpaidSalesField + ".$[debt]": d},
				ArrayFilters: []docstore.Filter{{"debt.id": d.ID}},
			})
			if err != nil {
				return err
			}
			if res.Matched == 0 {
				return shared.NewNotFoundError("Sale details not found")
			}
			return nil
		}
	}

	err = r.settings.New("sale_debt.update", r.logger, ac.Actor.StoreID).
		Add(
			saga.Step{
				Name:                "set_debt",
				Forward:             setDebt(updated),
				Inverse:             setDebt(original),
				CompensateOnFailure: true,
			},
			r.productWrites(ac, originals, working, changed),
		).
		Run(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewPersistenceError("update sale debt", err)
	}

	r.logger.Info("sale debt updated",
		zap.String("debt_id", updated.ID),
		zap.String("store_id", ac.Actor.StoreID),
		zap.Int("products_changed", len(changed)),
	)
	return updated, nil
}

func (r *SaleDebtRepository) productWrites(ac app.Context, originals, working map[string]*catalog.Product, ids []string) saga.Step {
	writes := make([]saga.Step, 0, len(ids))
	for _, id := range ids {
		writes = append(writes, r.products.WriteStep(ac, originals[id], working[id]))
	}
	return saga.Parallel("write_products", writes...)
}

func buildDebt(m *trade.SaleDebtMutator, req trade.RegisterDebtRequest, cart *trade.PricedCart) error {
	if err := m.SetCustomer(req.Customer); err != nil {
		return err
	}
	if err := m.ApplyCart(cart); err != nil {
		return err
	}
	if err := m.SetTotalReceived(req.TotalReceived); err != nil {
		return err
	}
	m.SetChanges(req.TotalReceived.Sub(m.Debt().Total))
	if err := m.SetPaymentMethods(req.PaymentMethods); err != nil {
		return err
	}
	if err := m.SetDueDate(req.DueDate); err != nil {
		return err
	}
	m.SetLatePaymentFine(req.LatePaymentFine)
	return nil
}

func cloneProducts(in map[string]*catalog.Product) map[string]*catalog.Product {
	out := make(map[string]*catalog.Product, len(in))
	for id, p := range in {
		out[id] = p.Clone()
	}
	return out
}
