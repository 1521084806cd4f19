package catalog

import (
	"slices"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Category is the closed set of product kinds. Each kind except generic
// owns one optional details sub-record.
type Category string

const (
	CategoryCars      Category = "cars"
	CategoryFurniture Category = "furniture"
	CategoryExpirable Category = "expirable"
	CategoryGeneric   Category = "generic"
)

// IsValid reports whether c is one of the known categories
func (c Category) IsValid() bool {
	switch c {
	case CategoryCars, CategoryFurniture, CategoryExpirable, CategoryGeneric:
		return true
	}
	return false
}

// Stock holds the on-hand quantity of a product
type Stock struct {
	Quantity decimal.Decimal `bson:"quantity" json:"quantity"`
}

// Product is a sellable item shared by one or more stores.
// Fields are only changed through ProductMutator. Version and WriteID are
// owned by the repository: WriteID names the last write attempted with
// this value.
type Product struct {
	ID            string            `bson:"id" json:"id"`
	Stores        []string          `bson:"stores" json:"stores"`
	Name          string            `bson:"name" json:"name"`
	Barcode       string            `bson:"barcode" json:"barcode"`
	Category      Category          `bson:"category" json:"category"`
	PurchasePrice decimal.Decimal   `bson:"purchasePrice" json:"purchasePrice"`
	SellPrice     decimal.Decimal   `bson:"sellPrice" json:"sellPrice"`
	Profit        decimal.Decimal   `bson:"profit" json:"profit"`
	Stock         Stock             `bson:"stock" json:"stock"`
	Car           *CarDetails       `bson:"car" json:"car"`
	Furniture     *FurnitureDetails `bson:"furnicture" json:"furnicture"`
	Expirable     *ExpirableDetails `bson:"expirable" json:"expirable"`
	Version       int64             `bson:"version" json:"version"`
	WriteID       string            `bson:"writeId,omitempty" json:"-"`
	CreatedAt     string            `bson:"createdAt" json:"createdAt"`
	CreatedBy     string            `bson:"createdBy" json:"createdBy"`
}

// NewProductDraft returns an empty generic product owned by storeID.
// The draft is not valid until names and prices are applied.
func NewProductDraft(actor shared.Actor, clock shared.Clock) *Product {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Product{
		ID:            shared.NewID(),
		Stores:        []string{actor.StoreID},
		Category:      CategoryGeneric,
		PurchasePrice: decimal.Zero,
		SellPrice:     decimal.Zero,
		Profit:        decimal.Zero,
		Stock:         Stock{Quantity: decimal.Zero},
		Version:       1,
		CreatedAt:     shared.Timestamp(clock()),
		CreatedBy:     actor.Username,
	}
}

// Clone returns a deep copy that shares no memory with p
func (p *Product) Clone() *Product {
	c := *p
	c.Stores = slices.Clone(p.Stores)
	if p.Car != nil {
		car := *p.Car
		c.Car = &car
	}
	if p.Furniture != nil {
		f := *p.Furniture
		c.Furniture = &f
	}
	if p.Expirable != nil {
		e := *p.Expirable
		c.Expirable = &e
	}
	return &c
}

// BelongsTo reports whether the product is listed for storeID
func (p *Product) BelongsTo(storeID string) bool {
	return slices.Contains(p.Stores, storeID)
}

// SellPriceMoney returns sell price as Money value object
func (p *Product) SellPriceMoney() valueobject.Money {
	return valueobject.Of(p.SellPrice)
}

// ProfitMoney returns the unit profit as Money value object
func (p *Product) ProfitMoney() valueobject.Money {
	return valueobject.Of(p.Profit)
}

// attachedCategory returns the category owning the attached sub-record, if any
func (p *Product) attachedCategory() (Category, bool) {
	switch {
	case p.Car != nil:
		return CategoryCars, true
	case p.Furniture != nil:
		return CategoryFurniture, true
	case p.Expirable != nil:
		return CategoryExpirable, true
	}
	return "", false
}
