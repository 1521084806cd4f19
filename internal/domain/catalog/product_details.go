package catalog

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Transmission of a car
type Transmission string

const (
	TransmissionAutomatic Transmission = "automatic"
	TransmissionManual    Transmission = "manual"
)

// FirstCarYear is the earliest model year accepted for a car
const FirstCarYear = 1886

const maxCarTextLength = 50

// CarDetails is the sub-record of products in the cars category
type CarDetails struct {
	Color        string       `bson:"color" json:"color"`
	Make         string       `bson:"make" json:"make"`
	Model        string       `bson:"model" json:"model"`
	Transmission Transmission `bson:"transmission" json:"transmission"`
	Year         int          `bson:"year" json:"year"`
}

// Validate checks every car attribute. now bounds the model year.
func (c CarDetails) Validate(now time.Time) error {
	color := strings.TrimSpace(c.Color)
	if color == "" {
		return shared.NewValidationError("INVALID_CAR", "car.color", "Color cannot be empty")
	}
	for _, r := range color {
		if !unicode.IsLetter(r) && r != ' ' {
			return shared.NewValidationError("INVALID_CAR", "car.color", "Color can only contain letters and spaces")
		}
	}
	if err := validateCarText("car.make", "Make", c.Make); err != nil {
		return err
	}
	if err := validateCarText("car.model", "Model", c.Model); err != nil {
		return err
	}
	switch c.Transmission {
	case TransmissionAutomatic, TransmissionManual:
	default:
		return shared.NewValidationError("INVALID_CAR", "car.transmission", "Transmission must be automatic or manual")
	}
	if c.Year < FirstCarYear || c.Year > now.Year()+1 {
		return shared.NewValidationError("INVALID_CAR", "car.year", "Year is out of range")
	}
	return nil
}

func validateCarText(field, label, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return shared.NewValidationError("INVALID_CAR", field, label+" cannot be empty")
	}
	if utf8.RuneCountInString(v) > maxCarTextLength {
		return shared.NewValidationError("INVALID_CAR", field, label+" cannot exceed 50 characters")
	}
	return nil
}

// Dimensions of a furniture item
type Dimensions struct {
	Length decimal.Decimal `bson:"length" json:"length"`
	Width  decimal.Decimal `bson:"width" json:"width"`
	Height decimal.Decimal `bson:"height" json:"height"`
}

// FurnitureDetails is the sub-record of products in the furniture category
type FurnitureDetails struct {
	Material   string     `bson:"material" json:"material"`
	Dimensions Dimensions `bson:"dimensions" json:"dimensions"`
}

// Validate checks material and dimensions
func (f FurnitureDetails) Validate() error {
	if strings.TrimSpace(f.Material) == "" {
		return shared.NewValidationError("INVALID_FURNITURE", "furnicture.material", "Material cannot be empty")
	}
	dims := []struct {
		field string
		value decimal.Decimal
	}{
		{"furnicture.dimensions.length", f.Dimensions.Length},
		{"furnicture.dimensions.width", f.Dimensions.Width},
		{"furnicture.dimensions.height", f.Dimensions.Height},
	}
	for _, d := range dims {
		if !d.value.IsPositive() {
			return shared.NewValidationError("INVALID_FURNITURE", d.field, "Dimension must be greater than zero")
		}
	}
	return nil
}

// ExpirableDetails is the sub-record of products in the expirable category.
// Dates are ISO-8601 strings.
type ExpirableDetails struct {
	ManufactureDate string `bson:"manufactureDate" json:"manufactureDate"`
	ExpirationDate  string `bson:"expirationDate" json:"expirationDate"`
}

// Validate checks that the manufacture date is not in the future and
// precedes the expiration date
func (e ExpirableDetails) Validate(now time.Time) error {
	made, err := shared.ParseTimestamp(e.ManufactureDate)
	if err != nil {
		return shared.NewValidationError("INVALID_EXPIRABLE", "expirable.manufactureDate", "Manufacture date is not a valid date")
	}
	expires, err := shared.ParseTimestamp(e.ExpirationDate)
	if err != nil {
		return shared.NewValidationError("INVALID_EXPIRABLE", "expirable.expirationDate", "Expiration date is not a valid date")
	}
	if made.After(now) {
		return shared.NewValidationError("INVALID_EXPIRABLE", "expirable.manufactureDate", "Manufacture date cannot be in the future")
	}
	if !made.Before(expires) {
		return shared.NewValidationError("INVALID_EXPIRABLE", "expirable.expirationDate", "Expiration date must be after manufacture date")
	}
	return nil
}

// validateProductName validates the product name
func validateProductName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 2 {
		return shared.NewValidationError("INVALID_NAME", "name", "Product name must have at least 2 characters")
	}
	if n > 200 {
		return shared.NewValidationError("INVALID_NAME", "name", "Product name cannot exceed 200 characters")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return shared.NewValidationError("INVALID_NAME", "name", "Product name cannot contain control characters")
		}
	}
	return nil
}
