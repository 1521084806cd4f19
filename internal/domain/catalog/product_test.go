package catalog

import (
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newPricedProduct(t *testing.T) *Product {
	t.Helper()
	p := NewProductDraft(shared.Actor{StoreID: "store-1", Username: "ana"}, fixedClock)
	m := NewProductMutator(p, WithProductClock(fixedClock))
	require.NoError(t, m.SetName("Desk lamp"))
	require.NoError(t, m.SetBarcode("7890001"))
	require.NoError(t, m.SetPrices(dec("60"), dec("100")))
	require.NoError(t, m.Stock().SetQuantity(dec("5")))
	return p
}

func TestNewProductDraft(t *testing.T) {
	p := NewProductDraft(shared.Actor{StoreID: "store-1", Username: "ana"}, fixedClock)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, []string{"store-1"}, p.Stores)
	assert.Equal(t, CategoryGeneric, p.Category)
	assert.True(t, p.Stock.Quantity.IsZero())
	assert.Equal(t, int64(1), p.Version)
	assert.Equal(t, "2024-06-01T12:00:00.000Z", p.CreatedAt)
	assert.Equal(t, "ana", p.CreatedBy)
	assert.True(t, p.BelongsTo("store-1"))
	assert.False(t, p.BelongsTo("store-2"))
}

func TestProduct_CloneIsDeep(t *testing.T) {
	p := newPricedProduct(t)
	p.Category = CategoryCars
	p.Car = &CarDetails{Color: "Red", Make: "Ford", Model: "T", Transmission: TransmissionManual, Year: 1920}

	c := p.Clone()
	c.Stores[0] = "other"
	c.Car.Color = "Blue"

	assert.Equal(t, "store-1", p.Stores[0])
	assert.Equal(t, "Red", p.Car.Color)
}

func TestCarDetails_Validate(t *testing.T) {
	valid := CarDetails{Color: "Dark Blue", Make: "Toyota", Model: "Corolla", Transmission: TransmissionAutomatic, Year: 2020}
	require.NoError(t, valid.Validate(fixedNow))

	tests := []struct {
		name  string
		edit  func(c *CarDetails)
		field string
	}{
		{"digits in color", func(c *CarDetails) { c.Color = "Red2" }, "car.color"},
		{"empty make", func(c *CarDetails) { c.Make = " " }, "car.make"},
		{"model too long", func(c *CarDetails) { c.Model = string(make([]byte, 51)) }, "car.model"},
		{"unknown transmission", func(c *CarDetails) { c.Transmission = "cvt" }, "car.transmission"},
		{"year before first car", func(c *CarDetails) { c.Year = 1885 }, "car.year"},
		{"year too far ahead", func(c *CarDetails) { c.Year = 2026 }, "car.year"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.edit(&c)
			err := c.Validate(fixedNow)
			require.Error(t, err)
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.field, de.Field)
		})
	}

	t.Run("next model year is accepted", func(t *testing.T) {
		c := valid
		c.Year = 2025
		assert.NoError(t, c.Validate(fixedNow))
	})
}

func TestFurnitureDetails_Validate(t *testing.T) {
	f := FurnitureDetails{Material: "oak", Dimensions: Dimensions{Length: dec("1.2"), Width: dec("0.6"), Height: dec("0.75")}}
	require.NoError(t, f.Validate())

	f.Dimensions.Width = decimal.Zero
	err := f.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "furnicture.dimensions.width")

	f.Dimensions.Width = dec("1")
	f.Material = ""
	assert.Error(t, f.Validate())
}

func TestExpirableDetails_Validate(t *testing.T) {
	assert.NoError(t, ExpirableDetails{ManufactureDate: "2024-01-01", ExpirationDate: "2025-01-01"}.Validate(fixedNow))
	assert.Error(t, ExpirableDetails{ManufactureDate: "2024-07-01", ExpirationDate: "2025-01-01"}.Validate(fixedNow))
	assert.Error(t, ExpirableDetails{ManufactureDate: "2024-01-01", ExpirationDate: "2024-01-01"}.Validate(fixedNow))
	assert.Error(t, ExpirableDetails{ManufactureDate: "soon", ExpirationDate: "2025-01-01"}.Validate(fixedNow))
}
