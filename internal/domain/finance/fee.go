package finance

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FeeType is the kind of fee charged
type FeeType string

const (
	FeeTypeEnrollment FeeType = "enrollment"
	FeeTypeMonthly    FeeType = "monthly"
	FeeTypeAnnual     FeeType = "annual"
	FeeTypeExam       FeeType = "exam"
	FeeTypeOther      FeeType = "other"
)

// IsValid checks if the type is a known FeeType
func (t FeeType) IsValid() bool {
	switch t {
	case FeeTypeEnrollment, FeeTypeMonthly, FeeTypeAnnual, FeeTypeExam, FeeTypeOther:
		return true
	}
	return false
}

// PaymentMethod is how a fee payment was made
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodMobile   PaymentMethod = "mobile"
)

// IsValid checks if the method is a known PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodMobile:
		return true
	}
	return false
}

// FeeStatus represents whether a fee is settled
type FeeStatus string

const (
	FeeStatusPending FeeStatus = "pending"
	FeeStatusPaid    FeeStatus = "paid"
)

// FeePayment is the payment attached to a fee
type FeePayment struct {
	Method    PaymentMethod   `bson:"method" json:"method" validate:"required,oneof=cash card transfer mobile"`
	Amount    decimal.Decimal `bson:"amount" json:"amount" validate:"gte=0"`
	Reference string          `bson:"reference" json:"reference" validate:"max=100"`
}

// Fee is a charge registered against a store
type Fee struct {
	ID              string          `bson:"id" json:"id"`
	StoreID         string          `bson:"storeId" json:"storeId"`
	Type            FeeType         `bson:"type" json:"type"`
	Payment         *FeePayment     `bson:"payment" json:"payment"`
	LatePaymentFine bool            `bson:"latePaymentFine" json:"latePaymentFine"`
	Price           decimal.Decimal `bson:"price" json:"price"`
	Total           decimal.Decimal `bson:"total" json:"total"`
	Status          FeeStatus       `bson:"status" json:"status"`
	CreatedAt       string          `bson:"createdAt" json:"createdAt"`
	RegisteredBy    string          `bson:"registeredBy" json:"registeredBy"`
}

// NewFeeDraft returns a fee with defaults: no type, no payment, zero price
func NewFeeDraft(actor shared.Actor, clock shared.Clock) *Fee {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Fee{
		ID:           shared.NewID(),
		StoreID:      actor.StoreID,
		Price:        decimal.Zero,
		Total:        decimal.Zero,
		Status:       FeeStatusPending,
		CreatedAt:    shared.Timestamp(clock()),
		RegisteredBy: actor.Username,
	}
}

// Tariffs maps each fee type to its price
type Tariffs map[FeeType]decimal.Decimal

// DefaultTariff is charged for types without a configured tariff
var DefaultTariff = decimal.NewFromInt(8500)

// PriceOf returns the price of t
func (t Tariffs) PriceOf(ft FeeType) decimal.Decimal {
	if p, ok := t[ft]; ok {
		return p
	}
	return DefaultTariff
}

// RegisterFeeRequest is the payload of a new fee
type RegisterFeeRequest struct {
	Type    FeeType     `json:"type" validate:"required,oneof=enrollment monthly annual exam other"`
	Payment *FeePayment `json:"payment" validate:"omitempty"`
}

// Validate checks the payload shape
func (r *RegisterFeeRequest) Validate() error {
	return shared.ValidateStruct(r)
}

// FeeFilter narrows fee listings
type FeeFilter struct {
	Type   FeeType   `form:"type"`
	Status FeeStatus `form:"status"`
}
