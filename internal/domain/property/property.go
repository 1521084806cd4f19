package property

import (
	"slices"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RoomsField is the array of the store document holding property backlinks
const RoomsField = "rooms"

// Type is the kind of rentable property
type Type string

const (
	TypeRoom      Type = "room"
	TypeApartment Type = "apartment"
	TypeHouse     Type = "house"
)

// IsValid checks if the type is a known property Type
func (t Type) IsValid() bool {
	switch t {
	case TypeRoom, TypeApartment, TypeHouse:
		return true
	}
	return false
}

// Status of a property listing
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// Address locates a property
type Address struct {
	Country  string `bson:"country" json:"country"`
	Province string `bson:"province" json:"province"`
	City     string `bson:"city" json:"city"`
	Street   string `bson:"street" json:"street"`
	Block    string `bson:"block" json:"block"`
	House    string `bson:"house" json:"house"`
}

// Price lists the rates of a property per period
type Price struct {
	Hourly  decimal.Decimal `bson:"hourly" json:"hourly"`
	Daily   decimal.Decimal `bson:"daily" json:"daily"`
	Nightly decimal.Decimal `bson:"nightly" json:"nightly"`
}

// Bedroom describes sleeping arrangements
type Bedroom struct {
	Quantity int    `bson:"quantity" json:"quantity"`
	Bed      string `bson:"bed" json:"bed"`
}

// Availability is the period a property can be booked
type Availability struct {
	From string `bson:"from" json:"from"`
	To   string `bson:"to" json:"to"`
}

// Property is a rentable room, apartment or house owned by a store
type Property struct {
	ID           string        `bson:"id" json:"id"`
	Owner        string        `bson:"owner" json:"owner"`
	Name         string        `bson:"name" json:"name"`
	Description  string        `bson:"description" json:"description"`
	Type         Type          `bson:"type" json:"type"`
	Address      *Address      `bson:"address" json:"address"`
	Price        *Price        `bson:"price" json:"price"`
	Amenities    []string      `bson:"amenities" json:"amenities"`
	Bedroom      *Bedroom      `bson:"bedroom" json:"bedroom"`
	Images       []string      `bson:"images" json:"images"`
	Availability *Availability `bson:"availability" json:"availability"`
	Status       Status        `bson:"status" json:"status"`
	CreatedAt    string        `bson:"createdAt" json:"createdAt"`
}

// RoomLink is the backlink a store keeps for each of its properties
type RoomLink struct {
	ID        string `bson:"id" json:"id"`
	CreatedAt string `bson:"createdAt" json:"createdAt"`
}

// NewPropertyDraft returns an active property owned by the actor's store
// with every optional field empty
func NewPropertyDraft(actor shared.Actor, clock shared.Clock) *Property {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Property{
		ID:        shared.NewID(),
		Owner:     actor.StoreID,
		Amenities: []string{},
		Images:    []string{},
		Status:    StatusActive,
		CreatedAt: shared.Timestamp(clock()),
	}
}

// Clone returns a deep copy of p
func (p *Property) Clone() *Property {
	c := *p
	c.Amenities = slices.Clone(p.Amenities)
	c.Images = slices.Clone(p.Images)
	if p.Address != nil {
		a := *p.Address
		c.Address = &a
	}
	if p.Price != nil {
		pr := *p.Price
		c.Price = &pr
	}
	if p.Bedroom != nil {
		b := *p.Bedroom
		c.Bedroom = &b
	}
	if p.Availability != nil {
		av := *p.Availability
		c.Availability = &av
	}
	return &c
}

// Link returns the store backlink of p
func (p *Property) Link() RoomLink {
	return RoomLink{ID: p.ID, CreatedAt: p.CreatedAt}
}

// Filter narrows property listings
type Filter struct {
	Type   Type   `form:"type"`
	Status Status `form:"status"`
}
