package property

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/erp/backoffice/internal/domain/shared"
)

// Input carries caller-supplied property changes. nil fields are left alone.
type Input struct {
	ID           string        `json:"id"`
	Name         *string       `json:"name"`
	Description  *string       `json:"description"`
	Type         *Type         `json:"type"`
	Address      *Address      `json:"address"`
	Price        *Price        `json:"price"`
	Amenities    []string      `json:"amenities"`
	Bedroom      *Bedroom      `json:"bedroom"`
	Images       []string      `json:"images"`
	Availability *Availability `json:"availability"`
	Status       *Status       `json:"status"`
}

// ValidateForCreate checks that a new property names itself, its type and
// its price
func (in Input) ValidateForCreate() error {
	switch {
	case in.Name == nil:
		return shared.NewValidationError(shared.ErrInvalidInput.Code, "name", "This field is required")
	case in.Type == nil:
		return shared.NewValidationError(shared.ErrInvalidInput.Code, "type", "This field is required")
	case in.Price == nil:
		return shared.NewValidationError(shared.ErrInvalidInput.Code, "price", "This field is required")
	}
	return nil
}

// Mutator is the only write path to a Property
type Mutator struct {
	property *Property
}

// NewMutator wraps p
func NewMutator(p *Property) *Mutator {
	return &Mutator{property: p}
}

// Property returns the wrapped property
func (m *Mutator) Property() *Property {
	return m.property
}

// SetName sets the trimmed property name
func (m *Mutator) SetName(name string) error {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < 2 || n > 200 {
		return shared.NewValidationError("INVALID_NAME", "name", "Name must have between 2 and 200 characters")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return shared.NewValidationError("INVALID_NAME", "name", "Name cannot contain control characters")
		}
	}
	m.property.Name = name
	return nil
}

// SetDescription sets the free-text description
func (m *Mutator) SetDescription(description string) {
	m.property.Description = description
}

// SetType sets the property type
func (m *Mutator) SetType(t Type) error {
	if !t.IsValid() {
		return shared.NewValidationError("INVALID_TYPE", "type", fmt.Sprintf("Unknown property type %q", t))
	}
	m.property.Type = t
	return nil
}

// SetAddress sets the address; city and street are required
func (m *Mutator) SetAddress(a Address) error {
	if strings.TrimSpace(a.City) == "" {
		return shared.NewValidationError("INVALID_ADDRESS", "address.city", "City cannot be empty")
	}
	if strings.TrimSpace(a.Street) == "" {
		return shared.NewValidationError("INVALID_ADDRESS", "address.street", "Street cannot be empty")
	}
	m.property.Address = &a
	return nil
}

// SetPrice sets the rates. None may be negative and at least one must be positive.
func (m *Mutator) SetPrice(p Price) error {
	switch {
	case p.Hourly.IsNegative():
		return shared.NewValidationError("INVALID_PRICE", "price.hourly", "Price cannot be negative")
	case p.Daily.IsNegative():
		return shared.NewValidationError("INVALID_PRICE", "price.daily", "Price cannot be negative")
	case p.Nightly.IsNegative():
		return shared.NewValidationError("INVALID_PRICE", "price.nightly", "Price cannot be negative")
	}
	if !p.Hourly.IsPositive() && !p.Daily.IsPositive() && !p.Nightly.IsPositive() {
		return shared.NewValidationError("INVALID_PRICE", "price", "At least one rate must be greater than zero")
	}
	m.property.Price = &p
	return nil
}

// SetAmenities replaces the amenities with the trimmed, de-duplicated list
func (m *Mutator) SetAmenities(amenities []string) error {
	out, err := cleanList("amenities", amenities)
	if err != nil {
		return err
	}
	m.property.Amenities = out
	return nil
}

// SetImages replaces the image references
func (m *Mutator) SetImages(images []string) error {
	out, err := cleanList("images", images)
	if err != nil {
		return err
	}
	m.property.Images = out
	return nil
}

// SetBedroom sets the bedroom description
func (m *Mutator) SetBedroom(b Bedroom) error {
	if b.Quantity < 0 {
		return shared.NewValidationError("INVALID_BEDROOM", "bedroom.quantity", "Quantity cannot be negative")
	}
	b.Bed = strings.TrimSpace(b.Bed)
	m.property.Bedroom = &b
	return nil
}

// SetAvailability sets the bookable period; from must precede to
func (m *Mutator) SetAvailability(a Availability) error {
	from, err := shared.ParseTimestamp(a.From)
	if err != nil {
		return shared.NewValidationError("INVALID_AVAILABILITY", "availability.from", "Not a valid date")
	}
	to, err := shared.ParseTimestamp(a.To)
	if err != nil {
		return shared.NewValidationError("INVALID_AVAILABILITY", "availability.to", "Not a valid date")
	}
	if !from.Before(to) {
		return shared.NewValidationError("INVALID_AVAILABILITY", "availability.to", "End must be after start")
	}
	m.property.Availability = &a
	return nil
}

// SetStatus sets the listing status
func (m *Mutator) SetStatus(s Status) error {
	if !s.IsValid() {
		return shared.NewValidationError("INVALID_STATUS", "status", fmt.Sprintf("Unknown status %q", s))
	}
	m.property.Status = s
	return nil
}

// Apply applies every supplied field in a fixed order. It is all-or-nothing:
// on error the property is unchanged.
func (m *Mutator) Apply(in Input) error {
	work := NewMutator(m.property.Clone())

	steps := []func() error{
		func() error {
			if in.Name == nil {
				return nil
			}
			return work.SetName(*in.Name)
		},
		func() error {
			if in.Type == nil {
				return nil
			}
			return work.SetType(*in.Type)
		},
		func() error {
			if in.Address == nil {
				return nil
			}
			return work.SetAddress(*in.Address)
		},
		func() error {
			if in.Price == nil {
				return nil
			}
			return work.SetPrice(*in.Price)
		},
		func() error {
			if in.Amenities == nil {
				return nil
			}
			return work.SetAmenities(in.Amenities)
		},
		func() error {
			if in.Bedroom == nil {
				return nil
			}
			return work.SetBedroom(*in.Bedroom)
		},
		func() error {
			if in.Images == nil {
				return nil
			}
			return work.SetImages(in.Images)
		},
		func() error {
			if in.Availability == nil {
				return nil
			}
			return work.SetAvailability(*in.Availability)
		},
		func() error {
			if in.Status == nil {
				return nil
			}
			return work.SetStatus(*in.Status)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	*m.property = *work.property
	return nil
}

func cleanList(field string, in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, shared.NewValidationError("INVALID_LIST", fmt.Sprintf("%s[%d]", field, i), "Value cannot be empty")
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
