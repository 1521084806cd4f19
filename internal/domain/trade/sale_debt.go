package trade

import (
	"slices"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// UnpaidSalesField is the array of the store document holding sale debts
const UnpaidSalesField = "unpaid-sales"

// PaymentMethod records one part of the amount received
type PaymentMethod struct {
	Type   string          `bson:"type" json:"type" validate:"required"`
	Amount decimal.Decimal `bson:"amount" json:"amount" validate:"gte=0"`
}

// ItemProduct freezes the product reference and unit price at sale time
type ItemProduct struct {
	ID    string          `bson:"id" json:"id"`
	Price decimal.Decimal `bson:"price" json:"price"`
}

// SaleItem is one cart line of a sale debt
type SaleItem struct {
	ID       string          `bson:"id" json:"id"`
	Product  ItemProduct     `bson:"product" json:"product"`
	Quantity decimal.Decimal `bson:"quantity" json:"quantity"`
	Total    decimal.Decimal `bson:"total" json:"total"`
}

// SaleDebt is a sale paid partially or not at all, embedded in the
// store document under unpaid-sales
type SaleDebt struct {
	ID              string          `bson:"id" json:"id"`
	Customer        string          `bson:"customer" json:"customer"`
	Items           []SaleItem      `bson:"items" json:"items"`
	Total           decimal.Decimal `bson:"total" json:"total"`
	Profit          decimal.Decimal `bson:"profit" json:"profit"`
	PaymentMethods  []PaymentMethod `bson:"paymentMethods" json:"paymentMethods"`
	TotalReceived   decimal.Decimal `bson:"totalReceived" json:"totalReceived"`
	RemainingAmount decimal.Decimal `bson:"remainingAmount" json:"remainingAmount"`
	Changes         decimal.Decimal `bson:"changes" json:"changes"`
	DueDate         string          `bson:"dueDate" json:"dueDate"`
	LatePaymentFine bool            `bson:"latePaymentFine" json:"latePaymentFine"`
	CreatedAt       string          `bson:"createdAt" json:"createdAt"`
	CreatedBy       string          `bson:"createdBy" json:"createdBy"`
}

// NewSaleDebtDraft returns an empty debt created by actor. Amounts are zero
// until set through SaleDebtMutator.
func NewSaleDebtDraft(actor shared.Actor, clock shared.Clock) *SaleDebt {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &SaleDebt{
		ID:              shared.NewID(),
		Items:           []SaleItem{},
		Total:           decimal.Zero,
		Profit:          decimal.Zero,
		PaymentMethods:  []PaymentMethod{},
		TotalReceived:   decimal.Zero,
		RemainingAmount: decimal.Zero,
		Changes:         decimal.Zero,
		CreatedAt:       shared.Timestamp(clock()),
		CreatedBy:       actor.Username,
	}
}

// Clone returns a deep copy of d
func (d *SaleDebt) Clone() *SaleDebt {
	c := *d
	c.Items = slices.Clone(d.Items)
	c.PaymentMethods = slices.Clone(d.PaymentMethods)
	return &c
}

// Item returns the line for productID
func (d *SaleDebt) Item(productID string) (SaleItem, bool) {
	for _, it := range d.Items {
		if it.Product.ID == productID {
			return it, true
		}
	}
	return SaleItem{}, false
}

// ItemsTotal sums the line totals
func (d *SaleDebt) ItemsTotal() valueobject.Money {
	totals := make([]decimal.Decimal, 0, len(d.Items))
	for _, it := range d.Items {
		totals = append(totals, it.Total)
	}
	return valueobject.Sum(totals...)
}
