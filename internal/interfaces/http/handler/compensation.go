package handler

import (
	"context"

	"github.com/erp/backoffice/internal/application/saga"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// FailureJournal lists and resolves rollback steps that could not be applied
type FailureJournal interface {
	ListUnresolved(ctx context.Context, storeID string) ([]saga.JournalEntry, error)
	Resolve(ctx context.Context, storeID, id, resolvedBy string) error
}

// CompensationHandler lets operators see and close the store's open
// compensation failures after repairing the data by hand
type CompensationHandler struct {
	BaseHandler
	journal FailureJournal
}

// NewCompensationHandler creates a CompensationHandler
func NewCompensationHandler(store docstore.Store, journal FailureJournal) *CompensationHandler {
	return &CompensationHandler{BaseHandler: NewBaseHandler(store), journal: journal}
}

// RegisterRoutes mounts the journal routes on rg
func (h *CompensationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/compensation-failures", h.List)
	rg.POST("/compensation-failures/:id/resolve", h.Resolve)
}

// List returns open failures, oldest first
func (h *CompensationHandler) List(c *gin.Context) {
	actor := middleware.GetActor(c)
	if err := actor.Validate(); err != nil {
		h.HandleError(c, err)
		return
	}
	entries, err := h.journal.ListUnresolved(c.Request.Context(), actor.StoreID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Resolve closes one failure in the name of the acting user
func (h *CompensationHandler) Resolve(c *gin.Context) {
	actor := middleware.GetActor(c)
	if err := actor.Validate(); err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.journal.Resolve(c.Request.Context(), actor.StoreID, c.Param("id"), actor.Username); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"id": c.Param("id"), "resolvedBy": actor.Username})
}
