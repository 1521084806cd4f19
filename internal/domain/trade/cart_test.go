package trade

import (
	"testing"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func product(id, purchase, sell, stock string) *catalog.Product {
	return &catalog.Product{
		ID:            id,
		Stores:        []string{"store-1"},
		Name:          "Product " + id,
		Category:      catalog.CategoryGeneric,
		PurchasePrice: dec(purchase),
		SellPrice:     dec(sell),
		Profit:        dec(sell).Sub(dec(purchase)),
		Stock:         catalog.Stock{Quantity: dec(stock)},
		Version:       1,
	}
}

func catalogOf(ps ...*catalog.Product) map[string]*catalog.Product {
	m := make(map[string]*catalog.Product, len(ps))
	for _, p := range ps {
		m[p.ID] = p
	}
	return m
}

func line(id, qty string, total *decimal.Decimal) CartItem {
	return CartItem{Product: CartItemRef{ID: id}, Quantity: dec(qty), Total: total}
}

func TestPriceCart(t *testing.T) {
	products := catalogOf(product("p1", "60", "100", "5"), product("p2", "0.10", "0.30", "10"))

	t.Run("computes totals and profit", func(t *testing.T) {
		cart, err := PriceCart([]CartItem{
			line("p1", "2", decPtr("200")),
			line("p2", "3", decPtr("0.9")),
		}, products, nil)
		require.NoError(t, err)

		assert.Equal(t, "200.9", cart.Total.Amount().String())
		assert.Equal(t, "80.6", cart.Profit.Amount().String())
		require.Len(t, cart.Items, 2)
		assert.Equal(t, SaleItem{
			ID:       "p1",
			Product:  ItemProduct{ID: "p1", Price: dec("100")},
			Quantity: dec("2"),
			Total:    dec("200"),
		}, cart.Items[0])
		assert.Equal(t, "3", cart.Quantity("p2").String())
		assert.True(t, cart.Quantity("p9").IsZero())

		require.NoError(t, cart.CheckDeclaredTotal(dec("200.90")))
		err = cart.CheckDeclaredTotal(dec("200.89"))
		assert.ErrorIs(t, err, shared.ErrTotalMismatch)
	})

	t.Run("line total is required", func(t *testing.T) {
		_, err := PriceCart([]CartItem{line("p1", "1", nil)}, products, nil)
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
		assert.Contains(t, err.Error(), "is required")
	})

	t.Run("amounts below the minor unit are rejected", func(t *testing.T) {
		_, err := PriceCart([]CartItem{line("p1", "2", decPtr("199.995"))}, products, nil)
		assert.ErrorIs(t, err, shared.ErrTotalMismatch)
		_, err = PriceCart([]CartItem{line("p1", "2", decPtr("200.004"))}, products, nil)
		assert.ErrorIs(t, err, shared.ErrTotalMismatch)

		cart, err := PriceCart([]CartItem{line("p1", "2", decPtr("200.00"))}, products, nil)
		require.NoError(t, err)
		assert.ErrorIs(t, cart.CheckDeclaredTotal(dec("200.004")), shared.ErrTotalMismatch)
		assert.ErrorIs(t, cart.CheckDeclaredTotal(dec("199.995")), shared.ErrTotalMismatch)
		assert.NoError(t, cart.CheckDeclaredTotal(dec("200")))
	})

	t.Run("fractional quantities match at the cent", func(t *testing.T) {
		fruit := catalogOf(product("f1", "0.50", "0.99", "10"))
		cart, err := PriceCart([]CartItem{line("f1", "1.5", decPtr("1.49"))}, fruit, nil)
		require.NoError(t, err)
		require.NoError(t, cart.CheckDeclaredTotal(dec("1.49")))
	})

	t.Run("rejects a wrong line total", func(t *testing.T) {
		_, err := PriceCart([]CartItem{line("p1", "2", decPtr("199"))}, products, nil)
		assert.ErrorIs(t, err, shared.ErrTotalMismatch)
	})

	t.Run("rejects quantities above stock", func(t *testing.T) {
		_, err := PriceCart([]CartItem{line("p1", "6", nil)}, products, nil)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})

	t.Run("available function widens the limit", func(t *testing.T) {
		plusTwo := func(p *catalog.Product) decimal.Decimal { return p.Stock.Quantity.Add(dec("2")) }
		_, err := PriceCart([]CartItem{line("p1", "7", decPtr("700"))}, products, plusTwo)
		assert.NoError(t, err)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := PriceCart([]CartItem{line("p1", "0", nil)}, products, nil)
		assert.True(t, shared.IsValidation(err))
		_, err = PriceCart([]CartItem{line("p1", "-1", nil)}, products, nil)
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		_, err := PriceCart([]CartItem{line("p9", "1", nil)}, products, nil)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("duplicate and empty carts", func(t *testing.T) {
		_, err := PriceCart([]CartItem{line("p1", "1", decPtr("100")), line("p1", "1", decPtr("100"))}, products, nil)
		assert.True(t, shared.IsValidation(err))
		_, err = PriceCart(nil, products, nil)
		assert.True(t, shared.IsValidation(err))
	})
}

func TestProductIDs(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, ProductIDs([]CartItem{line("b", "1", nil), line("a", "1", nil)}))
}

func TestRegisterDebtRequest_Validate(t *testing.T) {
	valid := RegisterDebtRequest{
		Customer: "c-1",
		Items:    []CartItem{line("p1", "2", decPtr("200"))},
		Total:    dec("200"),
		DueDate:  "2024-07-01",
	}
	require.NoError(t, valid.Validate())

	t.Run("missing customer", func(t *testing.T) {
		r := valid
		r.Customer = ""
		err := r.Validate()
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "customer", de.Field)
	})

	t.Run("empty items", func(t *testing.T) {
		r := valid
		r.Items = []CartItem{}
		assert.Error(t, r.Validate())
	})

	t.Run("item without product id", func(t *testing.T) {
		r := valid
		r.Items = []CartItem{{Quantity: dec("1")}}
		err := r.Validate()
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Contains(t, de.Field, "items[0].product")
	})

	t.Run("negative total", func(t *testing.T) {
		r := valid
		r.Total = dec("-1")
		assert.Error(t, r.Validate())
	})

	t.Run("negative payment", func(t *testing.T) {
		r := valid
		r.PaymentMethods = []PaymentMethod{{Type: "cash", Amount: dec("-5")}}
		assert.Error(t, r.Validate())
	})
}
