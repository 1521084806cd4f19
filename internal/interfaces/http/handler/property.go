package handler

import (
	"context"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/domain/property"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/gin-gonic/gin"
)

// PropertyService is the property repository as seen by the HTTP layer
type PropertyService interface {
	Get(ctx context.Context, ac app.Context, id string) (*property.Property, error)
	GetAll(ctx context.Context, ac app.Context, filter property.Filter) ([]property.Property, error)
	Register(ctx context.Context, ac app.Context, in property.Input) (*property.Property, error)
	Update(ctx context.Context, ac app.Context, id string, in property.Input) (*property.Property, error)
}

// PropertyHandler serves /properties
type PropertyHandler struct {
	BaseHandler
	properties PropertyService
}

// NewPropertyHandler creates a PropertyHandler
func NewPropertyHandler(store docstore.Store, properties PropertyService) *PropertyHandler {
	return &PropertyHandler{BaseHandler: NewBaseHandler(store), properties: properties}
}

// RegisterRoutes mounts the property routes on rg
func (h *PropertyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/properties")
	g.GET("", h.List)
	g.POST("", h.Register)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
}

// List returns the store's properties
func (h *PropertyHandler) List(c *gin.Context) {
	var filter property.Filter
	if !h.bindQuery(c, &filter) {
		return
	}
	list, err := h.properties.GetAll(c.Request.Context(), h.appContext(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// Get returns one property of the store
func (h *PropertyHandler) Get(c *gin.Context) {
	p, err := h.properties.Get(c.Request.Context(), h.appContext(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Register lists a new property for rent
func (h *PropertyHandler) Register(c *gin.Context) {
	var in property.Input
	if !h.bindJSON(c, &in) {
		return
	}
	p, err := h.properties.Register(c.Request.Context(), h.appContext(c), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// Update applies the supplied fields to a property
func (h *PropertyHandler) Update(c *gin.Context) {
	var in property.Input
	if !h.bindJSON(c, &in) {
		return
	}
	p, err := h.properties.Update(c.Request.Context(), h.appContext(c), c.Param("id"), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}
