package handler

import (
	"context"

	"github.com/erp/backoffice/internal/application/app"
	appcatalog "github.com/erp/backoffice/internal/application/catalog"
	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/gin-gonic/gin"
)

// ProductService is the product repository as seen by the HTTP layer
type ProductService interface {
	Get(ctx context.Context, ac app.Context, id string) (*catalog.Product, error)
	GetAll(ctx context.Context, ac app.Context, filter appcatalog.ProductFilter) ([]catalog.Product, error)
	Register(ctx context.Context, ac app.Context, in catalog.ProductInput) (*catalog.Product, error)
	Update(ctx context.Context, ac app.Context, id string, in catalog.ProductInput) (*catalog.Product, error)
}

// ProductHandler serves /products
type ProductHandler struct {
	BaseHandler
	products ProductService
}

// NewProductHandler creates a ProductHandler
func NewProductHandler(store docstore.Store, products ProductService) *ProductHandler {
	return &ProductHandler{BaseHandler: NewBaseHandler(store), products: products}
}

// RegisterRoutes mounts the product routes on rg
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/products")
	g.GET("", h.List)
	g.POST("", h.Register)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
}

// List returns the products sold by the store
func (h *ProductHandler) List(c *gin.Context) {
	var filter appcatalog.ProductFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	products, err := h.products.GetAll(c.Request.Context(), h.appContext(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// Get returns one product
func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.products.Get(c.Request.Context(), h.appContext(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Register creates a product
func (h *ProductHandler) Register(c *gin.Context) {
	var in catalog.ProductInput
	if !h.bindJSON(c, &in) {
		return
	}
	p, err := h.products.Register(c.Request.Context(), h.appContext(c), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// Update applies the supplied fields to a product, all or nothing
func (h *ProductHandler) Update(c *gin.Context) {
	var in catalog.ProductInput
	if !h.bindJSON(c, &in) {
		return
	}
	p, err := h.products.Update(c.Request.Context(), h.appContext(c), c.Param("id"), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}
