package trade

import (
	"fmt"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SaleDebtField names a mutable debt field for the Apply dispatcher
type SaleDebtField string

const (
	FieldTotal         SaleDebtField = "total"
	FieldTotalReceived SaleDebtField = "totalReceived"
	FieldProfit        SaleDebtField = "profit"
	FieldChanges       SaleDebtField = "changes"
	FieldDueDate       SaleDebtField = "dueDate"
	FieldCustomer      SaleDebtField = "customer"
)

// SaleDebtMutator is the only write path to a SaleDebt. After every
// successful change remainingAmount equals max(total - totalReceived, 0).
type SaleDebtMutator struct {
	debt *SaleDebt
}

// NewSaleDebtMutator wraps d
func NewSaleDebtMutator(d *SaleDebt) *SaleDebtMutator {
	return &SaleDebtMutator{debt: d}
}

// Debt returns the wrapped debt
func (m *SaleDebtMutator) Debt() *SaleDebt {
	return m.debt
}

// SetCustomer sets the customer id
func (m *SaleDebtMutator) SetCustomer(customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return shared.NewValidationError(shared.ErrInvalidInput.Code, string(FieldCustomer), "Customer is required")
	}
	m.debt.Customer = customerID
	return nil
}

// SetTotal sets the debt total
func (m *SaleDebtMutator) SetTotal(total decimal.Decimal) error {
	if err := nonNegative(FieldTotal, total); err != nil {
		return err
	}
	if len(m.debt.Items) > 0 && !m.debt.ItemsTotal().Equals(valueobject.Of(total)) {
		return shared.NewValidationError(shared.ErrTotalMismatch.Code, string(FieldTotal), "Total must equal the sum of item totals")
	}
	m.debt.Total = total
	m.recompute()
	return nil
}

// SetTotalReceived sets the amount already paid
func (m *SaleDebtMutator) SetTotalReceived(received decimal.Decimal) error {
	if err := nonNegative(FieldTotalReceived, received); err != nil {
		return err
	}
	m.debt.TotalReceived = received
	m.recompute()
	return nil
}

// SetProfit sets the debt profit
func (m *SaleDebtMutator) SetProfit(profit decimal.Decimal) error {
	if err := nonNegative(FieldProfit, profit); err != nil {
		return err
	}
	m.debt.Profit = profit
	return nil
}

// SetChanges sets the over-payment returned to the customer. Any sign is allowed.
func (m *SaleDebtMutator) SetChanges(changes decimal.Decimal) {
	m.debt.Changes = changes
}

// SetDueDate sets the payment due date
func (m *SaleDebtMutator) SetDueDate(dueDate string) error {
	if _, err := shared.ParseTimestamp(dueDate); err != nil {
		return shared.NewValidationError(shared.ErrInvalidInput.Code, string(FieldDueDate), "Due date is not a valid date")
	}
	m.debt.DueDate = strings.TrimSpace(dueDate)
	return nil
}

// SetLatePaymentFine sets whether a fine applies after the due date
func (m *SaleDebtMutator) SetLatePaymentFine(fine bool) {
	m.debt.LatePaymentFine = fine
}

// SetPaymentMethods replaces the payment breakdown
func (m *SaleDebtMutator) SetPaymentMethods(methods []PaymentMethod) error {
	for i, pm := range methods {
		if strings.TrimSpace(pm.Type) == "" {
			return shared.NewValidationError(shared.ErrInvalidInput.Code, fmt.Sprintf("paymentMethods[%d].type", i), "Payment type is required")
		}
		if pm.Amount.IsNegative() {
			return shared.NewValidationError("INVALID_AMOUNT", fmt.Sprintf("paymentMethods[%d].amount", i), "Amount cannot be negative")
		}
	}
	m.debt.PaymentMethods = append([]PaymentMethod{}, methods...)
	return nil
}

// SetTotals replaces items, total and profit together. The line totals must
// add up to total.
func (m *SaleDebtMutator) SetTotals(items []SaleItem, total, profit decimal.Decimal) error {
	if err := nonNegative(FieldTotal, total); err != nil {
		return err
	}
	if err := nonNegative(FieldProfit, profit); err != nil {
		return err
	}
	sum := make([]decimal.Decimal, 0, len(items))
	for i, it := range items {
		if !it.Quantity.IsPositive() {
			return shared.NewValidationError("INVALID_QUANTITY", fmt.Sprintf("items[%d].quantity", i), "Quantity must be greater than zero")
		}
		sum = append(sum, it.Total)
	}
	if !valueobject.Sum(sum...).Equals(valueobject.Of(total)) {
		return shared.NewValidationError(shared.ErrTotalMismatch.Code, string(FieldTotal), "Total must equal the sum of item totals")
	}
	m.debt.Items = append([]SaleItem{}, items...)
	m.debt.Total = total
	m.debt.Profit = profit
	m.recompute()
	return nil
}

// ApplyCart sets items and amounts from a priced cart
func (m *SaleDebtMutator) ApplyCart(cart *PricedCart) error {
	return m.SetTotals(cart.Items, cart.Total.Amount(), cart.Profit.Amount())
}

// Apply sets one field by tag
func (m *SaleDebtMutator) Apply(field SaleDebtField, value any) error {
	switch field {
	case FieldCustomer, FieldDueDate:
		s, ok := value.(string)
		if !ok {
			return shared.NewValidationError("INVALID_TYPE", string(field), fmt.Sprintf("Unexpected value of type %T", value))
		}
		if field == FieldCustomer {
			return m.SetCustomer(s)
		}
		return m.SetDueDate(s)
	case FieldTotal, FieldTotalReceived, FieldProfit, FieldChanges:
		d, ok := value.(decimal.Decimal)
		if !ok {
			return shared.NewValidationError("INVALID_TYPE", string(field), fmt.Sprintf("Unexpected value of type %T", value))
		}
		switch field {
		case FieldTotal:
			return m.SetTotal(d)
		case FieldTotalReceived:
			return m.SetTotalReceived(d)
		case FieldProfit:
			return m.SetProfit(d)
		default:
			m.SetChanges(d)
			return nil
		}
	}
	return shared.NewValidationError("UNKNOWN_FIELD", string(field), "Field cannot be set")
}

func (m *SaleDebtMutator) recompute() {
	remaining := m.debt.Total.Sub(m.debt.TotalReceived)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	m.debt.RemainingAmount = remaining
}

func nonNegative(field SaleDebtField, v decimal.Decimal) error {
	if v.IsNegative() {
		return shared.NewValidationError("INVALID_AMOUNT", string(field), "Amount cannot be negative")
	}
	return nil
}
