package catalog

import (
	"fmt"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductField names a mutable product field for the Apply dispatcher
type ProductField string

const (
	FieldBarcode       ProductField = "barcode"
	FieldCategory      ProductField = "category"
	FieldName          ProductField = "name"
	FieldPurchasePrice ProductField = "purchasePrice"
	FieldSellPrice     ProductField = "sellPrice"
	FieldProfit        ProductField = "profit"
	FieldQuantity      ProductField = "stock.quantity"
	FieldCar           ProductField = "car"
	FieldFurniture     ProductField = "furnicture"
	FieldExpirable     ProductField = "expirable"
)

// ProductMutator is the only write path to a Product. Every setter validates
// first and leaves the product untouched when it returns an error.
type ProductMutator struct {
	product *Product
	clock   shared.Clock
}

// ProductMutatorOption configures a ProductMutator
type ProductMutatorOption func(*ProductMutator)

// WithProductClock overrides the clock used for date rules
func WithProductClock(clock shared.Clock) ProductMutatorOption {
	return func(m *ProductMutator) {
		m.clock = clock
	}
}

// NewProductMutator wraps p
func NewProductMutator(p *Product, opts ...ProductMutatorOption) *ProductMutator {
	m := &ProductMutator{product: p, clock: shared.SystemClock}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Product returns the wrapped product
func (m *ProductMutator) Product() *Product {
	return m.product
}

// SetBarcode sets the trimmed barcode
func (m *ProductMutator) SetBarcode(barcode string) error {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return shared.NewValidationError("INVALID_BARCODE", string(FieldBarcode), "Barcode cannot be empty")
	}
	m.product.Barcode = barcode
	return nil
}

// SetName sets the trimmed product name
func (m *ProductMutator) SetName(name string) error {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return err
	}
	m.product.Name = name
	return nil
}

// SetCategory changes the category. A category whose details do not match
// the attached sub-record is rejected; clear the sub-record first.
func (m *ProductMutator) SetCategory(category Category) error {
	if !category.IsValid() {
		return shared.NewValidationError("INVALID_CATEGORY", string(FieldCategory), fmt.Sprintf("Unknown category %q", category))
	}
	if attached, ok := m.product.attachedCategory(); ok && attached != category {
		return categoryMismatch(string(FieldCategory), fmt.Sprintf("Cannot change category to %s while %s details are attached", category, attached))
	}
	m.product.Category = category
	return nil
}

// SetPurchasePrice sets the purchase price; it must stay below the sell price
func (m *ProductMutator) SetPurchasePrice(price decimal.Decimal) error {
	if err := validatePrices(price, m.product.SellPrice, FieldPurchasePrice); err != nil {
		return err
	}
	m.product.PurchasePrice = price
	m.product.Profit = m.product.SellPrice.Sub(price)
	return nil
}

// SetSellPrice sets the sell price; it must stay above the purchase price
func (m *ProductMutator) SetSellPrice(price decimal.Decimal) error {
	if err := validatePrices(m.product.PurchasePrice, price, FieldSellPrice); err != nil {
		return err
	}
	m.product.SellPrice = price
	m.product.Profit = price.Sub(m.product.PurchasePrice)
	return nil
}

// SetPrices sets both prices at once and recomputes profit
func (m *ProductMutator) SetPrices(purchase, sell decimal.Decimal) error {
	if err := validatePrices(purchase, sell, FieldSellPrice); err != nil {
		return err
	}
	m.product.PurchasePrice = purchase
	m.product.SellPrice = sell
	m.product.Profit = sell.Sub(purchase)
	return nil
}

// SetProfit overrides the stored unit profit
func (m *ProductMutator) SetProfit(profit decimal.Decimal) error {
	if profit.IsNegative() {
		return shared.NewValidationError("INVALID_PROFIT", string(FieldProfit), "Profit cannot be negative")
	}
	m.product.Profit = profit
	return nil
}

// SetCar attaches car details. nil clears them.
func (m *ProductMutator) SetCar(car *CarDetails) error {
	if car == nil {
		m.product.Car = nil
		return nil
	}
	if err := m.requireCategory(CategoryCars, FieldCar); err != nil {
		return err
	}
	if err := car.Validate(m.clock()); err != nil {
		return err
	}
	c := *car
	c.Color = strings.TrimSpace(c.Color)
	c.Make = strings.TrimSpace(c.Make)
	c.Model = strings.TrimSpace(c.Model)
	m.product.Car = &c
	return nil
}

// SetFurniture attaches furniture details. nil clears them.
func (m *ProductMutator) SetFurniture(f *FurnitureDetails) error {
	if f == nil {
		m.product.Furniture = nil
		return nil
	}
	if err := m.requireCategory(CategoryFurniture, FieldFurniture); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}
	c := *f
	c.Material = strings.TrimSpace(c.Material)
	m.product.Furniture = &c
	return nil
}

// SetExpirable attaches expiry dates. nil clears them.
func (m *ProductMutator) SetExpirable(e *ExpirableDetails) error {
	if e == nil {
		m.product.Expirable = nil
		return nil
	}
	if err := m.requireCategory(CategoryExpirable, FieldExpirable); err != nil {
		return err
	}
	if err := e.Validate(m.clock()); err != nil {
		return err
	}
	c := *e
	m.product.Expirable = &c
	return nil
}

// Stock returns the mutator of the nested stock record
func (m *ProductMutator) Stock() *StockMutator {
	return &StockMutator{product: m.product}
}

// Apply sets one field by tag. value must have the field's type; nil
// clears a details sub-record.
func (m *ProductMutator) Apply(field ProductField, value any) error {
	switch field {
	case FieldBarcode, FieldName:
		s, ok := value.(string)
		if !ok {
			return wrongType(field, value)
		}
		if field == FieldBarcode {
			return m.SetBarcode(s)
		}
		return m.SetName(s)
	case FieldCategory:
		switch c := value.(type) {
		case Category:
			return m.SetCategory(c)
		case string:
			return m.SetCategory(Category(c))
		}
		return wrongType(field, value)
	case FieldPurchasePrice, FieldSellPrice, FieldProfit, FieldQuantity:
		d, err := toDecimal(field, value)
		if err != nil {
			return err
		}
		switch field {
		case FieldPurchasePrice:
			return m.SetPurchasePrice(d)
		case FieldSellPrice:
			return m.SetSellPrice(d)
		case FieldProfit:
			return m.SetProfit(d)
		default:
			return m.Stock().SetQuantity(d)
		}
	case FieldCar:
		switch v := value.(type) {
		case nil:
			return m.SetCar(nil)
		case *CarDetails:
			return m.SetCar(v)
		case CarDetails:
			return m.SetCar(&v)
		}
		return wrongType(field, value)
	case FieldFurniture:
		switch v := value.(type) {
		case nil:
			return m.SetFurniture(nil)
		case *FurnitureDetails:
			return m.SetFurniture(v)
		case FurnitureDetails:
			return m.SetFurniture(&v)
		}
		return wrongType(field, value)
	case FieldExpirable:
		switch v := value.(type) {
		case nil:
			return m.SetExpirable(nil)
		case *ExpirableDetails:
			return m.SetExpirable(v)
		case ExpirableDetails:
			return m.SetExpirable(&v)
		}
		return wrongType(field, value)
	}
	return shared.NewValidationError("UNKNOWN_FIELD", string(field), "Field cannot be set")
}

// ProductInput carries caller-supplied product changes. nil fields are left
// alone; Unset lists details sub-records to clear before anything else.
type ProductInput struct {
	Name          *string           `json:"name"`
	Barcode       *string           `json:"barcode"`
	Category      *Category         `json:"category"`
	PurchasePrice *decimal.Decimal  `json:"purchasePrice"`
	SellPrice     *decimal.Decimal  `json:"sellPrice"`
	Quantity      *decimal.Decimal  `json:"quantity"`
	Car           *CarDetails       `json:"car"`
	Furniture     *FurnitureDetails `json:"furnicture"`
	Expirable     *ExpirableDetails `json:"expirable"`
	Unset         []ProductField    `json:"unset"`
}

// ApplyInput applies every supplied field in a fixed order. It is
// all-or-nothing: on error the product is unchanged.
func (m *ProductMutator) ApplyInput(in ProductInput) error {
	work := NewProductMutator(m.product.Clone(), WithProductClock(m.clock))

	for _, f := range in.Unset {
		if f != FieldCar && f != FieldFurniture && f != FieldExpirable {
			return shared.NewValidationError("UNKNOWN_FIELD", string(f), "Only details records can be unset")
		}
		if err := work.Apply(f, nil); err != nil {
			return err
		}
	}
	if in.Name != nil {
		if err := work.SetName(*in.Name); err != nil {
			return err
		}
	}
	if in.Barcode != nil {
		if err := work.SetBarcode(*in.Barcode); err != nil {
			return err
		}
	}
	if in.Category != nil {
		if err := work.SetCategory(*in.Category); err != nil {
			return err
		}
	}
	switch {
	case in.PurchasePrice != nil && in.SellPrice != nil:
		if err := work.SetPrices(*in.PurchasePrice, *in.SellPrice); err != nil {
			return err
		}
	case in.PurchasePrice != nil:
		if err := work.SetPurchasePrice(*in.PurchasePrice); err != nil {
			return err
		}
	case in.SellPrice != nil:
		if err := work.SetSellPrice(*in.SellPrice); err != nil {
			return err
		}
	}
	if in.Car != nil {
		if err := work.SetCar(in.Car); err != nil {
			return err
		}
	}
	if in.Furniture != nil {
		if err := work.SetFurniture(in.Furniture); err != nil {
			return err
		}
	}
	if in.Expirable != nil {
		if err := work.SetExpirable(in.Expirable); err != nil {
			return err
		}
	}
	if in.Quantity != nil {
		if err := work.Stock().SetQuantity(*in.Quantity); err != nil {
			return err
		}
	}

	*m.product = *work.product
	return nil
}

// StockMutator validates changes to a product's stock record
type StockMutator struct {
	product *Product
}

// Quantity returns the on-hand quantity
func (s *StockMutator) Quantity() decimal.Decimal {
	return s.product.Stock.Quantity
}

// SetQuantity sets the on-hand quantity
func (s *StockMutator) SetQuantity(q decimal.Decimal) error {
	if q.IsNegative() {
		return shared.NewValidationError("INVALID_QUANTITY", string(FieldQuantity), "Quantity cannot be negative")
	}
	s.product.Stock.Quantity = q
	return nil
}

// Decrement removes q units; q must be positive and available
func (s *StockMutator) Decrement(q decimal.Decimal) error {
	if !q.IsPositive() {
		return shared.NewValidationError("INVALID_QUANTITY", string(FieldQuantity), "Quantity must be greater than zero")
	}
	if q.GreaterThan(s.product.Stock.Quantity) {
		return &shared.DomainError{
			Kind:    shared.KindValidation,
			Code:    shared.ErrInsufficientStock.Code,
			Field:   string(FieldQuantity),
			Message: shared.ErrInsufficientStock.Message,
		}
	}
	s.product.Stock.Quantity = s.product.Stock.Quantity.Sub(q)
	return nil
}

// Adjust applies a signed delta; the result must not be negative
func (s *StockMutator) Adjust(delta decimal.Decimal) error {
	next := s.product.Stock.Quantity.Add(delta)
	if next.IsNegative() {
		return &shared.DomainError{
			Kind:    shared.KindValidation,
			Code:    shared.ErrInsufficientStock.Code,
			Field:   string(FieldQuantity),
			Message: shared.ErrInsufficientStock.Message,
		}
	}
	s.product.Stock.Quantity = next
	return nil
}

func (m *ProductMutator) requireCategory(want Category, field ProductField) error {
	if m.product.Category != want {
		return categoryMismatch(string(field), fmt.Sprintf("You cannot set value to %s using %s category", field, m.product.Category))
	}
	return nil
}

func validatePrices(purchase, sell decimal.Decimal, field ProductField) error {
	if purchase.IsNegative() {
		return shared.NewValidationError("INVALID_PRICE", string(FieldPurchasePrice), "Purchase price cannot be negative")
	}
	if sell.IsNegative() {
		return shared.NewValidationError("INVALID_PRICE", string(FieldSellPrice), "Sell price cannot be negative")
	}
	if !purchase.LessThan(sell) {
		return shared.NewValidationError("INVALID_PRICE", string(field), "Purchase price must be lower than sell price")
	}
	return nil
}

func categoryMismatch(field, message string) error {
	return &shared.DomainError{
		Kind:    shared.KindValidation,
		Code:    shared.ErrCategoryMismatch.Code,
		Field:   field,
		Message: message,
	}
}

func wrongType(field ProductField, value any) error {
	return shared.NewValidationError("INVALID_TYPE", string(field), fmt.Sprintf("Unexpected value of type %T", value))
}

func toDecimal(field ProductField, value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, shared.NewValidationError("INVALID_NUMBER", string(field), "Value is not a number")
		}
		return d, nil
	}
	return decimal.Zero, wrongType(field, value)
}
