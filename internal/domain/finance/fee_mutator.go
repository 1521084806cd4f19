package finance

import (
	"fmt"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
)

// FeeMutator is the only write path to a Fee. Price and total follow the
// tariff of the type; status follows the payment.
type FeeMutator struct {
	fee     *Fee
	tariffs Tariffs
}

// NewFeeMutator wraps f, pricing types with tariffs
func NewFeeMutator(f *Fee, tariffs Tariffs) *FeeMutator {
	return &FeeMutator{fee: f, tariffs: tariffs}
}

// Fee returns the wrapped fee
func (m *FeeMutator) Fee() *Fee {
	return m.fee
}

// SetType sets the fee type and prices it
func (m *FeeMutator) SetType(t FeeType) error {
	if !t.IsValid() {
		return shared.NewValidationError("INVALID_FEE_TYPE", "type", fmt.Sprintf("Unknown fee type %q", t))
	}
	price := m.tariffs.PriceOf(t)
	if price.IsNegative() {
		return shared.NewValidationError("INVALID_PRICE", "price", "Tariff cannot be negative")
	}
	m.fee.Type = t
	m.fee.Price = price
	m.fee.Total = price
	m.reconcileStatus()
	return nil
}

// ApplyTypePolicy sets the late-payment-fine flag for t: enrollment fees
// carry no fine, every other type does
func (m *FeeMutator) ApplyTypePolicy(t FeeType) {
	m.fee.LatePaymentFine = t != FeeTypeEnrollment
}

// SetPayment attaches a payment. nil removes it.
func (m *FeeMutator) SetPayment(p *FeePayment) error {
	if p == nil {
		m.fee.Payment = nil
		m.reconcileStatus()
		return nil
	}
	if !p.Method.IsValid() {
		return shared.NewValidationError("INVALID_PAYMENT", "payment.method", fmt.Sprintf("Unknown payment method %q", p.Method))
	}
	if p.Amount.IsNegative() {
		return shared.NewValidationError("INVALID_PAYMENT", "payment.amount", "Amount cannot be negative")
	}
	c := *p
	c.Reference = strings.TrimSpace(c.Reference)
	m.fee.Payment = &c
	m.reconcileStatus()
	return nil
}

func (m *FeeMutator) reconcileStatus() {
	if m.fee.Payment != nil && m.fee.Type != "" && m.fee.Payment.Amount.GreaterThanOrEqual(m.fee.Total) {
		m.fee.Status = FeeStatusPaid
		return
	}
	m.fee.Status = FeeStatusPending
}
