package dto

import (
	"errors"
	"net/http"

	"github.com/erp/backoffice/internal/domain/shared"
)

// Error codes produced by the HTTP layer itself. Domain errors keep their own
// codes (NOT_FOUND, INSUFFICIENT_STOCK, TOTAL_MISMATCH, ...).
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
)

var kindStatus = map[shared.ErrorKind]int{
	shared.KindValidation:   http.StatusBadRequest,
	shared.KindNotFound:     http.StatusNotFound,
	shared.KindConflict:     http.StatusConflict,
	shared.KindPersistence:  http.StatusBadGateway,
	shared.KindCompensation: http.StatusInternalServerError,
}

// StatusForKind returns the HTTP status of an error kind
func StatusForKind(kind shared.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError maps err to a status code and error body. Errors that are not
// DomainErrors are reported as internal errors without their message.
func FromError(err error, requestID string) (int, Response) {
	if errors.Is(err, shared.ErrUnauthorized) {
		return http.StatusUnauthorized, NewErrorResponse(ErrCodeUnauthorized, shared.ErrUnauthorized.Message, requestID)
	}

	var de *shared.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, NewErrorResponse(ErrCodeInternal, "An unexpected error occurred", requestID)
	}

	resp := NewErrorResponse(de.Code, de.Message, requestID)
	resp.Error.Field = de.Field
	return StatusForKind(de.Kind), resp
}
