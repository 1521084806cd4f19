package handler

import (
	"context"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/gin-gonic/gin"
)

// StockReportService is the stock report repository as seen by the HTTP layer
type StockReportService interface {
	Get(ctx context.Context, ac app.Context, id string) (*inventory.StockReport, error)
	GetAll(ctx context.Context, ac app.Context, filter inventory.ReportFilter) ([]inventory.StockReport, error)
	Register(ctx context.Context, ac app.Context, req inventory.RegisterStockRequest) (*inventory.StockReport, error)
}

// StockReportHandler serves /stock-reports
type StockReportHandler struct {
	BaseHandler
	reports StockReportService
}

// NewStockReportHandler creates a StockReportHandler
func NewStockReportHandler(store docstore.Store, reports StockReportService) *StockReportHandler {
	return &StockReportHandler{BaseHandler: NewBaseHandler(store), reports: reports}
}

// RegisterRoutes mounts the stock report routes on rg
func (h *StockReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/stock-reports")
	reports.GET("", h.List)
	reports.GET("/:id", h.Get)
	reports.POST("", h.Register)
}

// List returns stock reports, optionally those touching one product
func (h *StockReportHandler) List(c *gin.Context) {
	var filter inventory.ReportFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	reports, err := h.reports.GetAll(c.Request.Context(), h.appContext(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reports)
}

// Get returns one stock report
func (h *StockReportHandler) Get(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), h.appContext(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Register records a stock entry and adds its quantities to stock
func (h *StockReportHandler) Register(c *gin.Context) {
	var req inventory.RegisterStockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	report, err := h.reports.Register(c.Request.Context(), h.appContext(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, report)
}
