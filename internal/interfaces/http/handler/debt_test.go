package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDebtService struct {
	mock.Mock
}

func (m *MockDebtService) Get(ctx context.Context, ac app.Context, id string) (*trade.SaleDebt, error) {
	args := m.Called(ctx, ac, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.SaleDebt), args.Error(1)
}

func (m *MockDebtService) GetAll(ctx context.Context, ac app.Context, filter trade.DebtFilter) ([]trade.SaleDebt, error) {
	args := m.Called(ctx, ac, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]trade.SaleDebt), args.Error(1)
}

func (m *MockDebtService) Register(ctx context.Context, ac app.Context, req trade.RegisterDebtRequest) (*trade.SaleDebt, error) {
	args := m.Called(ctx, ac, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.SaleDebt), args.Error(1)
}

func (m *MockDebtService) Update(ctx context.Context, ac app.Context, req trade.UpdateDebtRequest) (*trade.SaleDebt, error) {
	args := m.Called(ctx, ac, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.SaleDebt), args.Error(1)
}

func TestDebtHandler_List(t *testing.T) {
	svc := new(MockDebtService)
	r := newTestEngine(NewDebtHandler(nil, svc), testStoreID, testUsername)

	svc.On("GetAll", mock.Anything, actorIs(testStoreID, testUsername), trade.DebtFilter{Customer: "c-1"}).
		Return([]trade.SaleDebt{{ID: "d-1", Customer: "c-1"}}, nil)

	w := doRequest(t, r, http.MethodGet, "/api/v1/debts?customer=c-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.True(t, env.Success)
	var debts []trade.SaleDebt
	require.NoError(t, json.Unmarshal(env.Data, &debts))
	require.Len(t, debts, 1)
	assert.Equal(t, "d-1", debts[0].ID)
	svc.AssertExpectations(t)
}

func TestDebtHandler_Get_NotFound(t *testing.T) {
	svc := new(MockDebtService)
	r := newTestEngine(NewDebtHandler(nil, svc), testStoreID, testUsername)

	svc.On("Get", mock.Anything, mock.Anything, "missing").
		Return(nil, shared.NewNotFoundError("Sale debt not found"))

	w := doRequest(t, r, http.MethodGet, "/api/v1/debts/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.NotEmpty(t, env.Error.RequestID)
}

func TestDebtHandler_Register(t *testing.T) {
	svc := new(MockDebtService)
	r := newTestEngine(NewDebtHandler(nil, svc), testStoreID, testUsername)

	body := map[string]any{
		"customer":      "c-1",
		"items":         []map[string]any{{"product": map[string]any{"id": "p-1"}, "quantity": "2"}},
		"total":         "20",
		"totalReceived": "5",
		"dueDate":       "2026-11-01",
	}
	svc.On("Register", mock.Anything, actorIs(testStoreID, testUsername), mock.MatchedBy(func(req trade.RegisterDebtRequest) bool {
		return req.Customer == "c-1" && len(req.Items) == 1 && req.TotalReceived.Equal(decimal.NewFromInt(5))
	})).Return(&trade.SaleDebt{ID: "d-9", Customer: "c-1"}, nil)

	w := doRequest(t, r, http.MethodPost, "/api/v1/debts", body)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decode(t, w)
	var debt trade.SaleDebt
	require.NoError(t, json.Unmarshal(env.Data, &debt))
	assert.Equal(t, "d-9", debt.ID)
	svc.AssertExpectations(t)
}

func TestDebtHandler_Register_InvalidJSON(t *testing.T) {
	svc := new(MockDebtService)
	r := newTestEngine(NewDebtHandler(nil, svc), testStoreID, testUsername)

	w := doRequest(t, r, http.MethodPost, "/api/v1/debts", "{not json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_JSON", env.Error.Code)
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
}

func TestDebtHandler_Register_RejectedAtBinding(t *testing.T) {
	tests := []struct {
		name      string
		body      map[string]any
		wantField string
	}{
		{
			name: "missing customer",
			body: map[string]any{
				"items":   []map[string]any{{"product": map[string]any{"id": "p-1"}, "quantity": "1"}},
				"dueDate": "2026-11-01",
			},
			wantField: "customer",
		},
		{
			name: "empty cart",
			body: map[string]any{
				"customer": "c-1",
				"items":    []map[string]any{},
				"dueDate":  "2026-11-01",
			},
			wantField: "items",
		},
		{
			name: "negative amount received",
			body: map[string]any{
				"customer":      "c-1",
				"items":         []map[string]any{{"product": map[string]any{"id": "p-1"}, "quantity": "1"}},
				"totalReceived": "-1",
				"dueDate":       "2026-11-01",
			},
			wantField: "totalReceived",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDebtService)
			r := newTestEngine(NewDebtHandler(nil, svc), testStoreID, testUsername)

			w := doRequest(t, r, http.MethodPost, "/api/v1/debts", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
			require.NotEmpty(t, env.Error.Details)
			assert.Equal(t, tt.wantField, env.Error.Details[0].Field)
			svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDebtHandler_Update_UsesPathID(t *testing.T) {
	svc := new(MockDebtService)
	r := newTestEngine(NewDebtHandler(nil, svc), testStoreID, testUsername)

	svc.On("Update", mock.Anything, mock.Anything, mock.MatchedBy(func(req trade.UpdateDebtRequest) bool {
		return req.ID == "d-1"
	})).Return(&trade.SaleDebt{ID: "d-1"}, nil)

	w := doRequest(t, r, http.MethodPut, "/api/v1/debts/d-1", map[string]any{
		"id":            "other",
		"items":         []map[string]any{{"product": map[string]any{"id": "p-1"}, "quantity": "1"}},
		"totalReceived": "0",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestDebtHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"unauthorized", shared.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"validation", shared.NewValidationError("INVALID_INPUT", "items", "too few"), http.StatusBadRequest, "INVALID_INPUT"},
		{"stock busy", shared.ErrStockBusy, http.StatusConflict, "STOCK_BUSY"},
		{"persistence", shared.NewPersistenceError("update store", errors.New("socket closed")), http.StatusBadGateway, "PERSISTENCE_ERROR"},
		{"compensation", shared.NewCompensationError(errors.New("boom"), []error{errors.New("restock failed")}), http.StatusInternalServerError, "COMPENSATION_FAILED"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDebtService)
			r := newTestEngine(NewDebtHandler(nil, svc), testStoreID, testUsername)
			svc.On("GetAll", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			w := doRequest(t, r, http.MethodGet, "/api/v1/debts", nil)

			assert.Equal(t, tt.wantCode, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
			assert.NotContains(t, env.Error.Message, "boom")
		})
	}
}
