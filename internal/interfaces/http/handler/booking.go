package handler

import (
	"context"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/domain/property"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/gin-gonic/gin"
)

// BookingService is the booking repository as seen by the HTTP layer
type BookingService interface {
	GetAll(ctx context.Context, ac app.Context, filter property.BookingFilter) ([]property.Booking, error)
	Register(ctx context.Context, ac app.Context, req property.RegisterBookingRequest) (*property.Booking, error)
}

// BookingHandler serves /bookings
type BookingHandler struct {
	BaseHandler
	bookings BookingService
}

// NewBookingHandler creates a BookingHandler
func NewBookingHandler(store docstore.Store, bookings BookingService) *BookingHandler {
	return &BookingHandler{BaseHandler: NewBaseHandler(store), bookings: bookings}
}

// RegisterRoutes mounts the booking routes on rg
func (h *BookingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookings", h.List)
	rg.POST("/bookings", h.Register)
}

// List returns bookings, optionally of one property
func (h *BookingHandler) List(c *gin.Context) {
	var filter property.BookingFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	bookings, err := h.bookings.GetAll(c.Request.Context(), h.appContext(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bookings)
}

// Register books a property
func (h *BookingHandler) Register(c *gin.Context) {
	var req property.RegisterBookingRequest
	if !h.bindJSON(c, &req) {
		return
	}
	booking, err := h.bookings.Register(c.Request.Context(), h.appContext(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, booking)
}
