package handler

import (
	"context"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/domain/partner"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/gin-gonic/gin"
)

// CustomerService is the customer repository as seen by the HTTP layer
type CustomerService interface {
	Get(ctx context.Context, ac app.Context, id string) (*partner.Customer, error)
	GetAll(ctx context.Context, ac app.Context) ([]partner.Customer, error)
	Register(ctx context.Context, ac app.Context, req partner.RegisterCustomerRequest) (*partner.Customer, error)
}

// CustomerHandler serves /customers
type CustomerHandler struct {
	BaseHandler
	customers CustomerService
}

// NewCustomerHandler creates a CustomerHandler
func NewCustomerHandler(store docstore.Store, customers CustomerService) *CustomerHandler {
	return &CustomerHandler{BaseHandler: NewBaseHandler(store), customers: customers}
}

// RegisterRoutes mounts the customer routes on rg
func (h *CustomerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/customers")
	g.GET("", h.List)
	g.POST("", h.Register)
	g.GET("/:id", h.Get)
}

// List returns the store's customers
func (h *CustomerHandler) List(c *gin.Context) {
	customers, err := h.customers.GetAll(c.Request.Context(), h.appContext(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customers)
}

// Get returns one customer
func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.customers.Get(c.Request.Context(), h.appContext(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// Register adds a customer to the store
func (h *CustomerHandler) Register(c *gin.Context) {
	var req partner.RegisterCustomerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	customer, err := h.customers.Register(c.Request.Context(), h.appContext(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, customer)
}
