// Package inventory holds stock entries: purchases that add units to
// products and leave a stock report behind.
package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// EntryItemRef identifies the product of an entry line
type EntryItemRef struct {
	ID string `json:"id" validate:"required"`
}

// EntryItem is a requested entry line. Total is required and must equal
// quantity × purchase price to the cent.
type EntryItem struct {
	Product  EntryItemRef     `json:"product" validate:"required"`
	Quantity decimal.Decimal  `json:"quantity"`
	Total    *decimal.Decimal `json:"total"`
}

// RegisterStockRequest is the payload of a new stock entry
type RegisterStockRequest struct {
	Items     []EntryItem     `json:"items" validate:"required,min=1,dive"`
	Total     decimal.Decimal `json:"total" validate:"gte=0"`
	Reference string          `json:"reference" validate:"required,max=100"`
	Date      string          `json:"date" validate:"required"`
}

// Validate checks the payload shape
func (r *RegisterStockRequest) Validate() error {
	return shared.ValidateStruct(r)
}

// ProductIDs lists the product ids of the entry in request order
func (r *RegisterStockRequest) ProductIDs() []string {
	ids := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		ids = append(ids, it.Product.ID)
	}
	return ids
}

// ReportProduct freezes the product and its prices at entry time
type ReportProduct struct {
	ID            string          `bson:"id" json:"id"`
	Name          string          `bson:"name" json:"name"`
	Barcode       string          `bson:"barcode" json:"barcode"`
	PurchasePrice decimal.Decimal `bson:"purchasePrice" json:"purchasePrice"`
	SellPrice     decimal.Decimal `bson:"sellPrice" json:"sellPrice"`
}

// ReportItem is one line of a stock report
type ReportItem struct {
	ID       string          `bson:"id" json:"id"`
	Product  ReportProduct   `bson:"product" json:"product"`
	Quantity decimal.Decimal `bson:"quantity" json:"quantity"`
	Total    decimal.Decimal `bson:"total" json:"total"`
}

// StockReport records one stock entry of a store
type StockReport struct {
	ID        string          `bson:"id" json:"id"`
	Store     string          `bson:"store" json:"store"`
	Reference string          `bson:"reference" json:"reference"`
	Date      string          `bson:"date" json:"date"`
	Items     []ReportItem    `bson:"items" json:"items"`
	Total     decimal.Decimal `bson:"total" json:"total"`
	CreatedAt string          `bson:"createdAt" json:"createdAt"`
	CreatedBy string          `bson:"createdBy" json:"createdBy"`
}

// ReportFilter narrows stock report listings
type ReportFilter struct {
	Product string `form:"product"`
}

// PricedEntry is an entry checked against current product data
type PricedEntry struct {
	Items []ReportItem
	Total valueobject.Money
}

// PriceEntry validates every line against the purchase price of its
// product and sums the line totals. products is keyed by product id.
func PriceEntry(items []EntryItem, products map[string]*catalog.Product) (*PricedEntry, error) {
	if len(items) == 0 {
		return nil, shared.NewValidationError(shared.ErrInvalidInput.Code, "items", "Stock entry cannot be empty")
	}

	entry := &PricedEntry{
		Items: make([]ReportItem, 0, len(items)),
		Total: valueobject.Zero(valueobject.DefaultCurrency),
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
		if !product.PurchasePrice.LessThan(product.SellPrice) {
			return nil, shared.NewValidationError("INVALID_PRICE", field+".product",
				fmt.Sprintf("Purchase price of product '%s' must not be greater than or equal to sell price", product.ID))
		}
		if it.Total == nil {
			return nil, shared.NewValidationError("REQUIRED", field+".total",
				fmt.Sprintf("Total price of product '%s' is required", product.ID))
		}
		lineTotal := valueobject.Of(product.PurchasePrice).Multiply(it.Quantity)
		if !lineTotal.MatchesDeclared(*it.Total) {
			return nil, shared.NewValidationError(shared.ErrTotalMismatch.Code, field+".total",
				"Item's total price does not match with product's purchasePrice multiplied by item's quantity")
		}

		entry.Items = append(entry.Items, ReportItem{
			ID: product.ID,
			Product: ReportProduct{
				ID:            product.ID,
				Name:          product.Name,
				Barcode:       product.Barcode,
				PurchasePrice: product.PurchasePrice,
				SellPrice:     product.SellPrice,
			},
			Quantity: it.Quantity,
			Total:    lineTotal.Amount(),
		})
		entry.Total = entry.Total.MustAdd(lineTotal)
	}
	return entry, nil
}

// CheckDeclaredTotal compares the caller's total with the summed line
// totals exactly at the currency minor unit
func (e *PricedEntry) CheckDeclaredTotal(declared decimal.Decimal) error {
	if !e.Total.MatchesDeclared(declared) {
		return shared.NewValidationError(shared.ErrTotalMismatch.Code, "total", "Entry's total is not equal to sum of all entry items")
	}
	return nil
}

// NewStockReport builds the report of a priced entry. The reference must
// not be blank and the entry date must not be later than today.
func NewStockReport(actor shared.Actor, clock shared.Clock, req RegisterStockRequest, entry *PricedEntry) (*StockReport, error) {
	if clock == nil {
		clock = shared.SystemClock
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, shared.NewValidationError(shared.ErrInvalidInput.Code, "reference", "Invalid reference")
	}
	date, err := EntryDate(req.Date, clock())
	if err != nil {
		return nil, err
	}
	return &StockReport{
		ID:        shared.NewID(),
		Store:     actor.StoreID,
		Reference: reference,
		Date:      shared.Timestamp(date),
		Items:     entry.Items,
		Total:     entry.Total.RoundMinor().Amount(),
		CreatedAt: shared.Timestamp(clock()),
		CreatedBy: actor.Username,
	}, nil
}

// EntryDate parses the date of an entry; days after now are rejected
func EntryDate(s string, now time.Time) (time.Time, error) {
	date, err := shared.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, shared.NewValidationError("INVALID_DATE", "date", "Invalid date")
	}
	tomorrow := startOfDay(now.UTC()).AddDate(0, 0, 1)
	if !date.UTC().Before(tomorrow) {
		return time.Time{}, shared.NewValidationError("INVALID_DATE", "date",
			fmt.Sprintf("Invalid date, date must not be greater than or equal to %s", tomorrow.Format(time.DateOnly)))
	}
	return date, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
