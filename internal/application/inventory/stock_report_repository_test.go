package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/application/app"
	appcatalog "github.com/erp/backoffice/internal/application/catalog"
	"github.com/erp/backoffice/internal/application/saga"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type busyGuard struct{}

func (busyGuard) Acquire(context.Context, ...string) (func(), error) {
	return nil, shared.ErrStockBusy
}

type recordingGuard struct {
	keys     []string
	released bool
}

func (g *recordingGuard) Acquire(_ context.Context, keys ...string) (func(), error) {
	g.keys = append(g.keys, keys...)
	return func() { g.released = true }, nil
}

type fixture struct {
	store    *docstore.MemoryStore
	ac       app.Context
	products *appcatalog.ProductRepository
	reports  *StockReportRepository
}

func newFixture(t *testing.T, guard shared.StockGuard) *fixture {
	t.Helper()
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Seed(docstore.Products,
		product("p1", 5, 100, 60),
		product("p2", 10, 25, 20),
		product("p3", 1, 10, 10),
		&catalog.Product{ID: "p9", Stores: []string{"s2"}, Name: "Elsewhere", PurchasePrice: decimal.NewFromInt(1), SellPrice: decimal.NewFromInt(2), Version: 1},
	))

	settings := saga.Settings{Clock: func() time.Time { return fixedNow }}
	products := appcatalog.NewProductRepository(nil, settings)
	return &fixture{
		store:    store,
		ac:       app.New(store, shared.Actor{StoreID: "s1", Username: "ana"}),
		products: products,
		reports:  NewStockReportRepository(products, guard, settings, nil),
	}
}

func product(id string, stock, sell, purchase int64) *catalog.Product {
	return &catalog.Product{
		ID:            id,
		Stores:        []string{"s1"},
		Name:          "Product " + id,
		Barcode:       "bc-" + id,
		Category:      catalog.CategoryGeneric,
		PurchasePrice: decimal.NewFromInt(purchase),
		SellPrice:     decimal.NewFromInt(sell),
		Profit:        decimal.NewFromInt(sell - purchase),
		Stock:         catalog.Stock{Quantity: decimal.NewFromInt(stock)},
		Version:       1,
	}
}

// purchasePrices mirrors the seeded products
var purchasePrices = map[string]int64{"p1": 60, "p2": 20, "p3": 10, "p9": 1}

func entryLine(id string, qty int64) inventory.EntryItem {
	total := decimal.NewFromInt(qty * purchasePrices[id])
	return inventory.EntryItem{Product: inventory.EntryItemRef{ID: id}, Quantity: decimal.NewFromInt(qty), Total: &total}
}

func entryRequest(total int64, items ...inventory.EntryItem) inventory.RegisterStockRequest {
	return inventory.RegisterStockRequest{
		Items:     items,
		Total:     decimal.NewFromInt(total),
		Reference: "INV-001",
		Date:      "2024-02-28",
	}
}

func (f *fixture) stock(t *testing.T, id string) (decimal.Decimal, int64) {
	t.Helper()
	p, err := f.products.Get(context.Background(), f.ac, id)
	require.NoError(t, err)
	return p.Stock.Quantity, p.Version
}

func (f *fixture) storedReports(t *testing.T) []inventory.StockReport {
	t.Helper()
	reports, err := f.reports.GetAll(context.Background(), f.ac, inventory.ReportFilter{})
	require.NoError(t, err)
	return reports
}

func assertDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got)
}

func TestStockReportRepository_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("records the report and adds stock", func(t *testing.T) {
		guard := &recordingGuard{}
		f := newFixture(t, guard)

		report, err := f.reports.Register(ctx, f.ac, entryRequest(220, entryLine("p1", 3), entryLine("p2", 2)))
		require.NoError(t, err)

		assertDecimal(t, 220, report.Total)
		assert.Equal(t, "s1", report.Store)
		assert.Equal(t, "INV-001", report.Reference)
		assert.Equal(t, "2024-02-28T00:00:00.000Z", report.Date)
		assert.Equal(t, "2024-03-01T12:00:00.000Z", report.CreatedAt)
		require.Len(t, report.Items, 2)
		assertDecimal(t, 60, report.Items[0].Product.PurchasePrice)

		qty, version := f.stock(t, "p1")
		assertDecimal(t, 8, qty)
		assert.Equal(t, int64(2), version)
		qty, version = f.stock(t, "p2")
		assertDecimal(t, 12, qty)
		assert.Equal(t, int64(2), version)

		stored, err := f.reports.Get(ctx, f.ac, report.ID)
		require.NoError(t, err)
		assert.Equal(t, report.Reference, stored.Reference)

		assert.ElementsMatch(t, []string{"p1", "p2"}, guard.keys)
		assert.True(t, guard.released)
	})

	tests := []struct {
		name  string
		req   inventory.RegisterStockRequest
		check func(t *testing.T, err error)
	}{
		{
			name: "declared total differs",
			req:  entryRequest(219, entryLine("p1", 3), entryLine("p2", 2)),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, shared.ErrTotalMismatch)
			},
		},
		{
			name: "line priced at sell price",
			req: func() inventory.RegisterStockRequest {
				req := entryRequest(300, entryLine("p1", 3))
				total := decimal.NewFromInt(300)
				req.Items[0].Total = &total
				return req
			}(),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, shared.ErrTotalMismatch)
			},
		},
		{
			name: "purchase price not below sell price",
			req:  entryRequest(10, entryLine("p3", 1)),
			check: func(t *testing.T, err error) {
				assert.True(t, shared.IsValidation(err))
				assert.Contains(t, err.Error(), "sell price")
			},
		},
		{
			name: "entry dated tomorrow",
			req: func() inventory.RegisterStockRequest {
				req := entryRequest(60, entryLine("p1", 1))
				req.Date = "2024-03-02"
				return req
			}(),
			check: func(t *testing.T, err error) {
				assert.True(t, shared.IsValidation(err))
			},
		},
		{
			name: "blank reference",
			req: func() inventory.RegisterStockRequest {
				req := entryRequest(60, entryLine("p1", 1))
				req.Reference = "  "
				return req
			}(),
			check: func(t *testing.T, err error) {
				assert.True(t, shared.IsValidation(err))
			},
		},
		{
			name: "product of another store",
			req:  entryRequest(1, entryLine("p9", 1)),
			check: func(t *testing.T, err error) {
				assert.True(t, shared.IsNotFound(err))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			_, err := f.reports.Register(ctx, f.ac, tt.req)
			require.Error(t, err)
			tt.check(t, err)

			assert.Empty(t, f.storedReports(t))
			qty, version := f.stock(t, "p1")
			assertDecimal(t, 5, qty)
			assert.Equal(t, int64(1), version)
		})
	}

	t.Run("busy stock", func(t *testing.T) {
		f := newFixture(t, busyGuard{})

		_, err := f.reports.Register(ctx, f.ac, entryRequest(60, entryLine("p1", 1)))
		assert.ErrorIs(t, err, shared.ErrStockBusy)
		assert.Empty(t, f.storedReports(t))
	})

	t.Run("missing store", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.reports.Register(ctx, app.New(nil, f.ac.Actor), entryRequest(60, entryLine("p1", 1)))
		assert.Equal(t, shared.KindPersistence, shared.KindOf(err))
	})
}

func TestStockReportRepository_Register_Rollback(t *testing.T) {
	ctx := context.Background()

	t.Run("failed stock write removes the report", func(t *testing.T) {
		f := newFixture(t, nil)
		// p1 and p2 are written concurrently; fail whichever goes second.
		f.store.FailOn(docstore.OpUpdate, docstore.Products, 2)

		_, err := f.reports.Register(ctx, f.ac, entryRequest(220, entryLine("p1", 3), entryLine("p2", 2)))
		require.Error(t, err)
		assert.ErrorIs(t, err, docstore.ErrInjected)

		assert.Empty(t, f.storedReports(t))
		qty, version := f.stock(t, "p1")
		assertDecimal(t, 5, qty)
		assert.Equal(t, int64(1), version)
		qty, version = f.stock(t, "p2")
		assertDecimal(t, 10, qty)
		assert.Equal(t, int64(1), version)
	})

	t.Run("failed report insert writes no stock", func(t *testing.T) {
		f := newFixture(t, nil)
		f.store.FailOn(docstore.OpInsert, docstore.StockReports, 1)

		_, err := f.reports.Register(ctx, f.ac, entryRequest(60, entryLine("p1", 1)))
		require.Error(t, err)

		for _, c := range f.store.Calls() {
			if c.Collection == docstore.Products {
				assert.NotEqual(t, docstore.OpUpdate, c.Op)
			}
		}
		assert.Empty(t, f.storedReports(t))
		qty, _ := f.stock(t, "p1")
		assertDecimal(t, 5, qty)
	})
}

func TestStockReportRepository_GetAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	first, err := f.reports.Register(ctx, f.ac, entryRequest(180, entryLine("p1", 3)))
	require.NoError(t, err)
	_, err = f.reports.Register(ctx, f.ac, entryRequest(40, entryLine("p2", 2)))
	require.NoError(t, err)

	assert.Len(t, f.storedReports(t), 2)

	byProduct, err := f.reports.GetAll(ctx, f.ac, inventory.ReportFilter{Product: "p1"})
	require.NoError(t, err)
	require.Len(t, byProduct, 1)
	assert.Equal(t, first.ID, byProduct[0].ID)

	other := app.New(f.store, shared.Actor{StoreID: "s2", Username: "bob"})
	reports, err := f.reports.GetAll(ctx, other, inventory.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, reports)

	_, err = f.reports.Get(ctx, other, first.ID)
	assert.True(t, shared.IsNotFound(err))
}
