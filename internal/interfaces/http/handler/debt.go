package handler

import (
	"context"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/domain/trade"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/gin-gonic/gin"
)

// DebtService is the sale debt repository as seen by the HTTP layer
type DebtService interface {
	Get(ctx context.Context, ac app.Context, id string) (*trade.SaleDebt, error)
	GetAll(ctx context.Context, ac app.Context, filter trade.DebtFilter) ([]trade.SaleDebt, error)
	Register(ctx context.Context, ac app.Context, req trade.RegisterDebtRequest) (*trade.SaleDebt, error)
	Update(ctx context.Context, ac app.Context, req trade.UpdateDebtRequest) (*trade.SaleDebt, error)
}

// DebtHandler serves /debts
type DebtHandler struct {
	BaseHandler
	debts DebtService
}

// NewDebtHandler creates a DebtHandler
func NewDebtHandler(store docstore.Store, debts DebtService) *DebtHandler {
	return &DebtHandler{BaseHandler: NewBaseHandler(store), debts: debts}
}

// RegisterRoutes mounts the debt routes on rg
func (h *DebtHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/debts")
	g.GET("", h.List)
	g.POST("", h.Register)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
}

// List returns the debts of the store, optionally of one customer
func (h *DebtHandler) List(c *gin.Context) {
	var filter trade.DebtFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	debts, err := h.debts.GetAll(c.Request.Context(), h.appContext(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, debts)
}

// Get returns one debt
func (h *DebtHandler) Get(c *gin.Context) {
	debt, err := h.debts.Get(c.Request.Context(), h.appContext(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, debt)
}

// Register records a sale on credit and takes its items out of stock
func (h *DebtHandler) Register(c *gin.Context) {
	var req trade.RegisterDebtRequest
	if !h.bindJSON(c, &req) {
		return
	}
	debt, err := h.debts.Register(c.Request.Context(), h.appContext(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, debt)
}

// Update revises the cart and payment of a debt. The path id wins over
// any id in the body.
func (h *DebtHandler) Update(c *gin.Context) {
	req := trade.UpdateDebtRequest{ID: c.Param("id")}
	if !h.bindJSON(c, &req) {
		return
	}
	req.ID = c.Param("id")
	debt, err := h.debts.Update(c.Request.Context(), h.appContext(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, debt)
}
