// Package handler adapts HTTP requests to repository operations. Handlers
// only parse payloads, resolve the actor and map errors to status codes.
package handler

import (
	"errors"
	"net/http"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BaseHandler provides common handler utilities. It owns nothing but the
// storage handle that every request context is built from.
type BaseHandler struct {
	store docstore.Store
}

// NewBaseHandler creates a BaseHandler over store
func NewBaseHandler(store docstore.Store) BaseHandler {
	return BaseHandler{store: store}
}

// appContext bundles the storage handle with the authenticated actor
func (h *BaseHandler) appContext(c *gin.Context) app.Context {
	return app.New(h.store, middleware.GetActor(c))
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// HandleError maps err to a status code and error envelope. Server-side
// failures are logged with the request logger.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	status, resp := dto.FromError(err, c.GetString(middleware.RequestIDKey))
	if status >= http.StatusInternalServerError {
		level := zapcore.WarnLevel
		if status == http.StatusInternalServerError {
			level = zapcore.ErrorLevel
		}
		logger.L(c.Request.Context()).Log(level, "request failed",
			zap.Int("status", status),
			zap.String("code", resp.Error.Code),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.JSON(status, resp)
}

// bindJSON decodes the body into dst, answering 400 when it cannot
func (h *BaseHandler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		requestID := c.GetString(middleware.RequestIDKey)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", requestID, middleware.ValidationDetails(verrs)))
			return false
		}
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidJSON, "Request body is not valid JSON for this endpoint", requestID))
		return false
	}
	return true
}

// bindQuery decodes query parameters into dst, answering 400 when it cannot
func (h *BaseHandler) bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeValidation, "Invalid query parameters", c.GetString(middleware.RequestIDKey)))
		return false
	}
	return true
}
