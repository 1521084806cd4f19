package property

import (
	"context"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/application/saga"
	"github.com/erp/backoffice/internal/domain/property"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func ptr[T any](v T) *T { return &v }

func newRepository(t *testing.T) (*PropertyRepository, *docstore.MemoryStore, app.Context) {
	t.Helper()
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Seed(docstore.Stores, bson.M{
		"id":           "s1",
		"name":         "Main",
		"unpaid-sales": bson.A{},
		"clients":      bson.A{},
		"rooms":        bson.A{},
	}))
	settings := saga.Settings{Clock: func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }}
	return NewPropertyRepository(settings, nil), store, app.New(store, shared.Actor{StoreID: "s1", Username: "host"})
}

func validInput() property.Input {
	return property.Input{
		Name:        ptr("Sea view room"),
		Description: ptr("Second floor"),
		Type:        ptr(property.TypeRoom),
		Address:     &property.Address{Country: "PT", City: "Porto", Street: "Rua Nova"},
		Price:       &property.Price{Nightly: decimal.NewFromInt(45)},
		Amenities:   []string{"wifi", "wifi", "balcony"},
	}
}

func rooms(t *testing.T, store *docstore.MemoryStore) bson.A {
	t.Helper()
	docs := store.Snapshot(docstore.Stores)
	require.Len(t, docs, 1)
	r, _ := docs[0]["rooms"].(bson.A)
	return r
}

func TestPropertyRepository_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("stores property and backlink", func(t *testing.T) {
		repo, store, ac := newRepository(t)

		p, err := repo.Register(ctx, ac, validInput())
		require.NoError(t, err)

		assert.Equal(t, property.StatusActive, p.Status)
		assert.Equal(t, "s1", p.Owner)
		assert.Equal(t, "Second floor", p.Description)
		assert.Equal(t, []string{"wifi", "balcony"}, p.Amenities)
		assert.Equal(t, "2024-06-01T00:00:00.000Z", p.CreatedAt)

		links := rooms(t, store)
		require.Len(t, links, 1)
		assert.Equal(t, p.ID, links[0].(bson.M)["id"])

		got, err := repo.Get(ctx, ac, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Name, got.Name)
	})

	t.Run("price is required", func(t *testing.T) {
		repo, store, ac := newRepository(t)
		in := validInput()
		in.Price = nil

		_, err := repo.Register(ctx, ac, in)
		assert.True(t, shared.IsValidation(err))
		assert.Empty(t, store.Snapshot(docstore.Properties))
	})

	t.Run("invalid field", func(t *testing.T) {
		repo, _, ac := newRepository(t)
		in := validInput()
		in.Type = ptr(property.Type("castle"))

		_, err := repo.Register(ctx, ac, in)
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("failed backlink removes the property", func(t *testing.T) {
		repo, store, ac := newRepository(t)
		store.FailOn(docstore.OpUpdate, docstore.Stores, 1)

		_, err := repo.Register(ctx, ac, validInput())
		require.Error(t, err)
		assert.ErrorIs(t, err, docstore.ErrInjected)
		assert.Empty(t, store.Snapshot(docstore.Properties))
		assert.Empty(t, rooms(t, store))
	})

	t.Run("unknown store", func(t *testing.T) {
		repo, store, _ := newRepository(t)
		ac := app.New(store, shared.Actor{StoreID: "ghost"})

		_, err := repo.Register(ctx, ac, validInput())
		assert.True(t, shared.IsNotFound(err))
		assert.Empty(t, store.Snapshot(docstore.Properties))
	})
}

func TestPropertyRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("applies changes", func(t *testing.T) {
		repo, _, ac := newRepository(t)
		p, err := repo.Register(ctx, ac, validInput())
		require.NoError(t, err)

		updated, err := repo.Update(ctx, ac, p.ID, property.Input{
			Description: ptr("Renovated"),
			Status:      ptr(property.StatusInactive),
		})
		require.NoError(t, err)
		assert.Equal(t, "Renovated", updated.Description)
		assert.Equal(t, property.StatusInactive, updated.Status)

		got, err := repo.Get(ctx, ac, p.ID)
		require.NoError(t, err)
		assert.Equal(t, property.StatusInactive, got.Status)
		assert.Equal(t, p.Name, got.Name)
	})

	t.Run("invalid change leaves property untouched", func(t *testing.T) {
		repo, _, ac := newRepository(t)
		p, err := repo.Register(ctx, ac, validInput())
		require.NoError(t, err)

		_, err = repo.Update(ctx, ac, p.ID, property.Input{
			Description: ptr("changed"),
			Price:       &property.Price{},
		})
		assert.True(t, shared.IsValidation(err))

		got, err := repo.Get(ctx, ac, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Second floor", got.Description)
	})

	t.Run("failed write restores original", func(t *testing.T) {
		repo, store, ac := newRepository(t)
		p, err := repo.Register(ctx, ac, validInput())
		require.NoError(t, err)
		store.FailOn(docstore.OpUpdate, docstore.Properties, 1)

		_, err = repo.Update(ctx, ac, p.ID, property.Input{Name: ptr("Renamed room")})
		require.Error(t, err)

		got, err := repo.Get(ctx, ac, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Sea view room", got.Name)
	})

	t.Run("property of another store", func(t *testing.T) {
		repo, store, ac := newRepository(t)
		p, err := repo.Register(ctx, ac, validInput())
		require.NoError(t, err)

		_, err = repo.Update(ctx, app.New(store, shared.Actor{StoreID: "s2"}), p.ID, property.Input{Name: ptr("Mine now")})
		require.Error(t, err)
		assert.True(t, shared.IsNotFound(err))
		assert.Contains(t, err.Error(), "Property not found")
	})
}

func TestPropertyRepository_GetAll(t *testing.T) {
	ctx := context.Background()
	repo, _, ac := newRepository(t)

	_, err := repo.Register(ctx, ac, validInput())
	require.NoError(t, err)
	house := validInput()
	house.Type = ptr(property.TypeHouse)
	_, err = repo.Register(ctx, ac, house)
	require.NoError(t, err)

	all, err := repo.GetAll(ctx, ac, property.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	houses, err := repo.GetAll(ctx, ac, property.Filter{Type: property.TypeHouse})
	require.NoError(t, err)
	assert.Len(t, houses, 1)
}
