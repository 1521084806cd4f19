package property

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// BookingType is the billing period of a booking
type BookingType string

const (
	BookingHourly  BookingType = "hourly"
	BookingDaily   BookingType = "daily"
	BookingNightly BookingType = "nightly"
)

// IsValid checks if the type is a known BookingType
func (t BookingType) IsValid() bool {
	switch t {
	case BookingHourly, BookingDaily, BookingNightly:
		return true
	}
	return false
}

// ErrAlreadyBooked is returned when a new booking overlaps an existing one
var ErrAlreadyBooked = &shared.DomainError{Kind: shared.KindConflict, Code: "ALREADY_BOOKED", Message: "Property is already booked for that period"}

// RegisterBookingRequest is the payload of a new booking. Guest is the id
// of a customer of the store.
type RegisterBookingRequest struct {
	Property   string          `json:"property" validate:"required"`
	Guest      string          `json:"guest" validate:"required"`
	Type       BookingType     `json:"type" validate:"required,oneof=hourly daily nightly"`
	CheckIn    string          `json:"checkIn" validate:"required"`
	CheckOut   string          `json:"checkOut" validate:"required"`
	TotalPrice decimal.Decimal `json:"totalPrice" validate:"gt=0"`
}

// Validate checks the payload shape
func (r *RegisterBookingRequest) Validate() error {
	return shared.ValidateStruct(r)
}

// Booking reserves a property for a guest over [CheckIn, CheckOut)
type Booking struct {
	ID         string          `bson:"id" json:"id"`
	Property   string          `bson:"property" json:"property"`
	Owner      string          `bson:"owner" json:"owner"`
	Guest      string          `bson:"guest" json:"guest"`
	Type       BookingType     `bson:"type" json:"type"`
	CheckIn    string          `bson:"checkIn" json:"checkIn"`
	CheckOut   string          `bson:"checkOut" json:"checkOut"`
	TotalPrice decimal.Decimal `bson:"totalPrice" json:"totalPrice"`
	CreatedAt  string          `bson:"createdAt" json:"createdAt"`
	CreatedBy  string          `bson:"createdBy" json:"createdBy"`
}

// BookingFilter narrows booking listings
type BookingFilter struct {
	Property string `form:"property"`
}

// Period is the half-open stay of a booking
type Period struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewPeriod parses a stay. Check-in must be later than now and check-out
// later than check-in.
func NewPeriod(checkIn, checkOut string, now time.Time) (Period, error) {
	in, err := shared.ParseTimestamp(checkIn)
	if err != nil {
		return Period{}, shared.NewValidationError("INVALID_DATE", "checkIn", "Check-in is not a valid date")
	}
	out, err := shared.ParseTimestamp(checkOut)
	if err != nil {
		return Period{}, shared.NewValidationError("INVALID_DATE", "checkOut", "Check-out is not a valid date")
	}
	if !in.After(now) {
		return Period{}, shared.NewValidationError("INVALID_DATE", "checkIn", "Check-in must be in the future")
	}
	if !out.After(in) {
		return Period{}, shared.NewValidationError("INVALID_DATE", "checkOut", "Check-out must be after check-in")
	}
	return Period{CheckIn: in, CheckOut: out}, nil
}

// Overlaps reports whether both stays share any instant
func (p Period) Overlaps(other Period) bool {
	return p.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(p.CheckOut)
}

// Units counts the billed periods of the stay: started hours, started
// days of 24 hours, or calendar nights with a minimum of one
func (p Period) Units(t BookingType) int64 {
	d := p.CheckOut.Sub(p.CheckIn)
	switch t {
	case BookingHourly:
		return int64((d + time.Hour - 1) / time.Hour)
	case BookingDaily:
		return int64((d + 24*time.Hour - 1) / (24 * time.Hour))
	case BookingNightly:
		nights := int64(dayOf(p.CheckOut).Sub(dayOf(p.CheckIn)) / (24 * time.Hour))
		return max(nights, 1)
	}
	return 0
}

// Period returns the stored stay of b
func (b *Booking) Period() (Period, error) {
	in, err := shared.ParseTimestamp(b.CheckIn)
	if err != nil {
		return Period{}, err
	}
	out, err := shared.ParseTimestamp(b.CheckOut)
	if err != nil {
		return Period{}, err
	}
	return Period{CheckIn: in, CheckOut: out}, nil
}

// Quote prices a stay at p's rate for t. The property must be active,
// priced for t, and available over the whole stay.
func (p *Property) Quote(t BookingType, stay Period) (valueobject.Money, error) {
	if p.Status != StatusActive {
		return valueobject.Money{}, shared.NewValidationError("PROPERTY_INACTIVE", "property", "Property is not available for booking")
	}
	var rate decimal.Decimal
	if p.Price != nil {
		switch t {
		case BookingHourly:
			rate = p.Price.Hourly
		case BookingDaily:
			rate = p.Price.Daily
		case BookingNightly:
			rate = p.Price.Nightly
		}
	}
	if !rate.IsPositive() {
		return valueobject.Money{}, shared.NewValidationError("INVALID_PRICE", "type", fmt.Sprintf("Property has no %s price", t))
	}
	if err := p.checkAvailability(stay); err != nil {
		return valueobject.Money{}, err
	}
	return valueobject.Of(rate).Multiply(decimal.NewFromInt(stay.Units(t))), nil
}

// checkAvailability rejects stays outside the availability window. A
// date-only bound covers its whole day.
func (p *Property) checkAvailability(stay Period) error {
	if p.Availability == nil {
		return nil
	}
	if from := strings.TrimSpace(p.Availability.From); from != "" {
		start, err := shared.ParseTimestamp(from)
		if err == nil && stay.CheckIn.Before(start) {
			return shared.NewValidationError("UNAVAILABLE", "checkIn", "Property is not available from "+from)
		}
	}
	if to := strings.TrimSpace(p.Availability.To); to != "" {
		end, err := shared.ParseTimestamp(to)
		if err != nil {
			return nil
		}
		if end.Equal(dayOf(end)) {
			end = end.AddDate(0, 0, 1)
		}
		if stay.CheckOut.After(end) {
			return shared.NewValidationError("UNAVAILABLE", "checkOut", "Property is not available after "+to)
		}
	}
	return nil
}

// NewBooking returns a booking of p for the actor's store
func NewBooking(actor shared.Actor, clock shared.Clock, p *Property, req RegisterBookingRequest, stay Period, total valueobject.Money) *Booking {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Booking{
		ID:         shared.NewID(),
		Property:   p.ID,
		Owner:      actor.StoreID,
		Guest:      req.Guest,
		Type:       req.Type,
		CheckIn:    shared.Timestamp(stay.CheckIn),
		CheckOut:   shared.Timestamp(stay.CheckOut),
		TotalPrice: total.RoundMinor().Amount(),
		CreatedAt:  shared.Timestamp(clock()),
		CreatedBy:  actor.Username,
	}
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
