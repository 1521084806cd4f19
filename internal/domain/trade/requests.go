package trade

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RegisterDebtRequest is the payload of a new sale debt
type RegisterDebtRequest struct {
	Customer        string          `json:"customer" validate:"required"`
	Items           []CartItem      `json:"items" validate:"required,min=1,dive"`
	Total           decimal.Decimal `json:"total" validate:"gte=0"`
	TotalReceived   decimal.Decimal `json:"totalReceived" validate:"gte=0"`
	PaymentMethods  []PaymentMethod `json:"paymentMethods" validate:"dive"`
	DueDate         string          `json:"dueDate" validate:"required"`
	LatePaymentFine bool            `json:"latePaymentFine"`
}

// Validate checks the payload shape
func (r *RegisterDebtRequest) Validate() error {
	return shared.ValidateStruct(r)
}

// UpdateDebtRequest is a revised cart for an existing debt. Quantities are
// the new absolute quantities; lines missing from Items are removed.
type UpdateDebtRequest struct {
	ID            string          `json:"id" validate:"required"`
	Items         []CartItem      `json:"items" validate:"required,min=1,dive"`
	TotalReceived decimal.Decimal `json:"totalReceived" validate:"gte=0"`
}

// Validate checks the payload shape
func (r *UpdateDebtRequest) Validate() error {
	return shared.ValidateStruct(r)
}

// DebtFilter narrows SaleDebt listings
type DebtFilter struct {
	Customer string `form:"customer"`
}
