package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/erp/backoffice/internal/application/app"
	appcatalog "github.com/erp/backoffice/internal/application/catalog"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) Get(ctx context.Context, ac app.Context, id string) (*catalog.Product, error) {
	args := m.Called(ctx, ac, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductService) GetAll(ctx context.Context, ac app.Context, filter appcatalog.ProductFilter) ([]catalog.Product, error) {
	args := m.Called(ctx, ac, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductService) Register(ctx context.Context, ac app.Context, in catalog.ProductInput) (*catalog.Product, error) {
	args := m.Called(ctx, ac, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, ac app.Context, id string, in catalog.ProductInput) (*catalog.Product, error) {
	args := m.Called(ctx, ac, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func TestProductHandler_List_ByCategory(t *testing.T) {
	svc := new(MockProductService)
	r := newTestEngine(NewProductHandler(nil, svc), testStoreID, testUsername)

	svc.On("GetAll", mock.Anything, mock.Anything, appcatalog.ProductFilter{Category: catalog.CategoryCars}).
		Return([]catalog.Product{{ID: "car-1", Category: catalog.CategoryCars}}, nil)

	w := doRequest(t, r, http.MethodGet, "/api/v1/products?category=cars", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "car-1")
	svc.AssertExpectations(t)
}

func TestProductHandler_Register_DecodesDecimals(t *testing.T) {
	svc := new(MockProductService)
	r := newTestEngine(NewProductHandler(nil, svc), testStoreID, testUsername)

	svc.On("Register", mock.Anything, mock.Anything, mock.MatchedBy(func(in catalog.ProductInput) bool {
		return in.SellPrice != nil && in.SellPrice.Equal(decimal.RequireFromString("12.50")) &&
			in.Category != nil && *in.Category == catalog.CategoryGeneric
	})).Return(&catalog.Product{ID: "p-1"}, nil)

	w := doRequest(t, r, http.MethodPost, "/api/v1/products",
		`{"name":"Soap","category":"generic","purchasePrice":"8","sellPrice":"12.50","quantity":"3"}`)

	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestProductHandler_Update_Conflict(t *testing.T) {
	svc := new(MockProductService)
	r := newTestEngine(NewProductHandler(nil, svc), testStoreID, testUsername)

	svc.On("Update", mock.Anything, mock.Anything, "p-1", mock.Anything).
		Return(nil, shared.NewConflictError("Product was modified concurrently"))

	w := doRequest(t, r, http.MethodPut, "/api/v1/products/p-1", map[string]any{"name": "Soap"})

	assert.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, shared.ErrConcurrencyConflict.Code, env.Error.Code)
}
