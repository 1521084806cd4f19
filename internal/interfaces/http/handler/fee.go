package handler

import (
	"context"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/gin-gonic/gin"
)

// FeeService is the fee repository as seen by the HTTP layer
type FeeService interface {
	GetAll(ctx context.Context, ac app.Context, filter finance.FeeFilter) ([]finance.Fee, error)
	Register(ctx context.Context, ac app.Context, req finance.RegisterFeeRequest) (*finance.Fee, error)
}

// FeeHandler serves /fees
type FeeHandler struct {
	BaseHandler
	fees FeeService
}

// NewFeeHandler creates a FeeHandler
func NewFeeHandler(store docstore.Store, fees FeeService) *FeeHandler {
	return &FeeHandler{BaseHandler: NewBaseHandler(store), fees: fees}
}

// RegisterRoutes mounts the fee routes on rg
func (h *FeeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/fees", h.List)
	rg.POST("/fees", h.Register)
}

// List returns fees filtered by type and status
func (h *FeeHandler) List(c *gin.Context) {
	var filter finance.FeeFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	fees, err := h.fees.GetAll(c.Request.Context(), h.appContext(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, fees)
}

// Register charges a fee at the configured tariff
func (h *FeeHandler) Register(c *gin.Context) {
	var req finance.RegisterFeeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	fee, err := h.fees.Register(c.Request.Context(), h.appContext(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, fee)
}
