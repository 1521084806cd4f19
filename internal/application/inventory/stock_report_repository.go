// Package inventory holds the stock entry workflow. A stock report and the
// stock of its products live in different documents, so an entry runs as
// a saga: the report insert first, then the product writes.
package inventory

import (
	"context"
	"errors"

	"github.com/erp/backoffice/internal/application/app"
	appcatalog "github.com/erp/backoffice/internal/application/catalog"
	"github.com/erp/backoffice/internal/application/saga"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// StockReportRepository registers stock entries and reads their reports
type StockReportRepository struct {
	products *appcatalog.ProductRepository
	guard    shared.StockGuard
	settings saga.Settings
	logger   *zap.Logger
}

// NewStockReportRepository creates a new StockReportRepository. A nil
// guard disables stock serialization; version checks still apply.
func NewStockReportRepository(
	products *appcatalog.ProductRepository,
	guard shared.StockGuard,
	settings saga.Settings,
	logger *zap.Logger,
) *StockReportRepository {
	if guard == nil {
		guard = shared.NoopStockGuard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockReportRepository{
		products: products,
		guard:    guard,
		settings: settings,
		logger:   logger,
	}
}

// Get returns a stock report of the actor's store
func (r *StockReportRepository) Get(ctx context.Context, ac app.Context, id string) (*inventory.StockReport, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	var report inventory.StockReport
	err := ac.Collection(docstore.StockReports).FindOne(ctx, docstore.Filter{"id": id, "store": ac.Actor.StoreID}, &report)
	if errors.Is(err, docstore.ErrNoDocuments) {
		return nil, shared.NewNotFoundError("Stock report not found")
	}
	if err != nil {
		return nil, shared.NewPersistenceError("load stock report", err)
	}
	return &report, nil
}

// GetAll lists the stock reports of the actor's store
func (r *StockReportRepository) GetAll(ctx context.Context, ac app.Context, filter inventory.ReportFilter) ([]inventory.StockReport, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	f := docstore.Filter{"store": ac.Actor.StoreID}
	if filter.Product != "" {
		f["items.product.id"] = filter.Product
	}

	reports := []inventory.StockReport{}
	if err := ac.Collection(docstore.StockReports).Find(ctx, f, &reports); err != nil {
		return nil, shared.NewPersistenceError("list stock reports", err)
	}
	return reports, nil
}

// Register checks an entry against purchase prices, records its report
// and adds its quantities to stock
func (r *StockReportRepository) Register(ctx context.Context, ac app.Context, req inventory.RegisterStockRequest) (*inventory.StockReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_report", "register",
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

	ids := req.ProductIDs()
	release, err := r.guard.Acquire(ctx, ids...)
	if err != nil {
		return nil, err
	}
	defer release()

	originals, err := r.products.LoadForStore(ctx, ac, ids)
	if err != nil {
		return nil, err
	}

	entry, err := inventory.PriceEntry(req.Items, originals)
	if err != nil {
		return nil, err
	}
	if err := entry.CheckDeclaredTotal(req.Total); err != nil {
		return nil, err
	}
	report, err := inventory.NewStockReport(ac.Actor, r.settings.Now, req, entry)
	if err != nil {
		return nil, err
	}

	writes := make([]saga.Step, 0, len(entry.Items))
	for _, it := range entry.Items {
		working := originals[it.ID].Clone()
		if err := catalog.NewProductMutator(working).Stock().Adjust(it.Quantity); err != nil {
			return nil, err
		}
		writes = append(writes, r.products.WriteStep(ac, originals[it.ID], working))
	}

	reports := ac.Collection(docstore.StockReports)
	err = r.settings.New("stock_report.register", r.logger, ac.Actor.StoreID).
		Add(
			saga.Step{
				Name:    "insert_report",
				Forward: func(ctx context.Context) error { return reports.InsertOne(ctx, report) },
				Inverse: func(ctx context.Context) error {
					_, err := reports.DeleteOne(ctx, docstore.Filter{"id": report.ID})
					return err
				},
				CompensateOnFailure: true,
			},
			saga.Parallel("write_products", writes...),
		).
		Run(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewPersistenceError("register stock entry", err)
	}

	r.logger.Info("stock entry registered",
		zap.String("report_id", report.ID),
		zap.String("store_id", ac.Actor.StoreID),
		zap.Int("items", len(report.Items)),
		zap.String("total", report.Total.StringFixed(2)),
	)
	return report, nil
}
