package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/domain/property"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) Get(ctx context.Context, ac app.Context, id string) (*property.Property, error) {
	args := m.Called(ctx, ac, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*property.Property), args.Error(1)
}

func (m *MockPropertyService) GetAll(ctx context.Context, ac app.Context, filter property.Filter) ([]property.Property, error) {
	args := m.Called(ctx, ac, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]property.Property), args.Error(1)
}

func (m *MockPropertyService) Register(ctx context.Context, ac app.Context, in property.Input) (*property.Property, error) {
	args := m.Called(ctx, ac, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*property.Property), args.Error(1)
}

func (m *MockPropertyService) Update(ctx context.Context, ac app.Context, id string, in property.Input) (*property.Property, error) {
	args := m.Called(ctx, ac, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*property.Property), args.Error(1)
}

func TestPropertyHandler_List(t *testing.T) {
	svc := new(MockPropertyService)
	r := newTestEngine(NewPropertyHandler(nil, svc), testStoreID, testUsername)

	svc.On("GetAll", mock.Anything, mock.Anything, property.Filter{Type: property.TypeHouse}).
		Return([]property.Property{{ID: "h-1", Type: property.TypeHouse}}, nil)

	w := doRequest(t, r, http.MethodGet, "/api/v1/properties?type=house", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var list []property.Property
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "h-1", list[0].ID)
}

func TestPropertyHandler_Get(t *testing.T) {
	svc := new(MockPropertyService)
	r := newTestEngine(NewPropertyHandler(nil, svc), testStoreID, testUsername)

	svc.On("Get", mock.Anything, mock.Anything, "h-1").Return(&property.Property{ID: "h-1", Name: "Sea view"}, nil)

	w := doRequest(t, r, http.MethodGet, "/api/v1/properties/h-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sea view")
}

func TestPropertyHandler_Register(t *testing.T) {
	svc := new(MockPropertyService)
	r := newTestEngine(NewPropertyHandler(nil, svc), testStoreID, testUsername)

	svc.On("Register", mock.Anything, actorIs(testStoreID, testUsername), mock.MatchedBy(func(in property.Input) bool {
		return in.Name != nil && *in.Name == "Loft" && in.Type != nil && *in.Type == property.TypeApartment
	})).Return(&property.Property{ID: "p-1"}, nil)

	w := doRequest(t, r, http.MethodPost, "/api/v1/properties", map[string]any{
		"name": "Loft",
		"type": "apartment",
	})

	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestPropertyHandler_Update(t *testing.T) {
	svc := new(MockPropertyService)
	r := newTestEngine(NewPropertyHandler(nil, svc), testStoreID, testUsername)

	svc.On("Update", mock.Anything, mock.Anything, "p-1", mock.MatchedBy(func(in property.Input) bool {
		return in.Status != nil && *in.Status == property.StatusInactive && in.Name == nil
	})).Return(&property.Property{ID: "p-1", Status: property.StatusInactive}, nil)

	w := doRequest(t, r, http.MethodPut, "/api/v1/properties/p-1", map[string]any{"status": "inactive"})

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}
