package trade

import (
	"fmt"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CartItemRef identifies the product of a cart line
type CartItemRef struct {
	ID string `json:"id" validate:"required"`
}

// CartItem is a requested cart line. Total is the caller's line total; it
// is required and must equal quantity × sell price to the cent.
type CartItem struct {
	Product  CartItemRef      `json:"product" validate:"required"`
	Quantity decimal.Decimal  `json:"quantity"`
	Total    *decimal.Decimal `json:"total"`
}

// ProductIDs lists the product ids of items in cart order
func ProductIDs(items []CartItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.Product.ID)
	}
	return ids
}

// PricedCart is a cart checked against current product data
type PricedCart struct {
	Items  []SaleItem
	Total  valueobject.Money
	Profit valueobject.Money
}

// Quantity returns the priced quantity for productID, zero when absent
func (c *PricedCart) Quantity(productID string) decimal.Decimal {
	for _, it := range c.Items {
		if it.Product.ID == productID {
			return it.Quantity
		}
	}
	return decimal.Zero
}

// AvailableFunc returns how many units of p a cart may take
type AvailableFunc func(p *catalog.Product) decimal.Decimal

// OnHand is the AvailableFunc of a new sale: the product's stock
func OnHand(p *catalog.Product) decimal.Decimal {
	return p.Stock.Quantity
}

// PriceCart validates every line and computes totals:
// total = Σ sellPrice × qty and profit = Σ unit profit × qty.
// products is keyed by product id.
func PriceCart(items []CartItem, products map[string]*catalog.Product, available AvailableFunc) (*PricedCart, error) {
	if len(items) == 0 {
		return nil, shared.NewValidationError(shared.ErrInvalidInput.Code, "items", "Cart cannot be empty")
	}
	if available == nil {
		available = OnHand
	}

	cart := &PricedCart{
		Items:  make([]SaleItem, 0, len(items)),
		Total:  valueobject.Zero(valueobject.DefaultCurrency),
		Profit: valueobject.Zero(valueobject.DefaultCurrency),
	}
	seen := make(map[string]struct{}, len(items))

	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		if _, dup := seen[it.Product.ID]; dup {
			return nil, shared.NewValidationError(shared.ErrInvalidInput.Code, field, fmt.Sprintf("Product '%s' appears more than once", it.Product.ID))
		}
		seen[it.Product.ID] = struct{}{}

		if !it.Quantity.IsPositive() {
			return nil, shared.NewValidationError("INVALID_QUANTITY", field+".quantity", "Quantity must not be less than or equal to zero")
		}
		product, ok := products[it.Product.ID]
		if !ok {
			return nil, shared.NewNotFoundError(fmt.Sprintf("Product with '%s' id not found", it.Product.ID))
		}
		if it.Quantity.GreaterThan(available(product)) {
			return nil, &shared.DomainError{
				Kind:    shared.KindValidation,
				Code:    shared.ErrInsufficientStock.Code,
				Field:   field + ".quantity",
				Message: shared.ErrInsufficientStock.Message,
			}
		}

		if it.Total == nil {
			return nil, shared.NewValidationError("REQUIRED", field+".total",
				fmt.Sprintf("Total price of product '%s' is required", product.ID))
		}
		lineTotal := product.SellPriceMoney().Multiply(it.Quantity)
		if !lineTotal.MatchesDeclared(*it.Total) {
			return nil, shared.NewValidationError(shared.ErrTotalMismatch.Code, field+".total",
				fmt.Sprintf("Total price of product '%s' is not correct", product.ID))
		}

		cart.Items = append(cart.Items, SaleItem{
			ID:       product.ID,
			Product:  ItemProduct{ID: product.ID, Price: product.SellPrice},
			Quantity: it.Quantity,
			Total:    lineTotal.Amount(),
		})
		cart.Total = cart.Total.MustAdd(lineTotal)
		cart.Profit = cart.Profit.MustAdd(product.ProfitMoney().Multiply(it.Quantity))
	}
	return cart, nil
}

// CheckDeclaredTotal compares the caller's total with the priced total
// exactly at the currency minor unit
func (c *PricedCart) CheckDeclaredTotal(declared decimal.Decimal) error {
	if !c.Total.MatchesDeclared(declared) {
		return shared.NewValidationError(shared.ErrTotalMismatch.Code, "total", "Total price is not correct.")
	}
	return nil
}
