package shared

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a DomainError for callers that only need to decide
// how to react (reject, report missing, retry, alert).
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindPersistence  ErrorKind = "persistence"
	KindCompensation ErrorKind = "compensation"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
// Sentinels such as ErrNotFound match every error carrying their code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new validation-kind domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error for a single field
func NewValidationError(code, field, message string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    code,
		Field:   field,
		Message: message,
	}
}

// NewNotFoundError creates a not-found error with a specific message
func NewNotFoundError(message string) *DomainError {
	return &DomainError{
		Kind:    KindNotFound,
		Code:    ErrNotFound.Code,
		Message: message,
	}
}

// NewConflictError creates a concurrency conflict error
func NewConflictError(message string) *DomainError {
	return &DomainError{
		Kind:    KindConflict,
		Code:    ErrConcurrencyConflict.Code,
		Message: message,
	}
}

// NewPersistenceError wraps a storage failure. The operation describes what
// was attempted, e.g. "insert fee".
func NewPersistenceError(operation string, cause error) *DomainError {
	var de *DomainError
	if errors.As(cause, &de) && de.Kind != KindPersistence {
		// Conflicts and not-founds raised by the storage layer keep their kind.
		return de
	}
	return &DomainError{
		Kind:    KindPersistence,
		Code:    "PERSISTENCE_ERROR",
		Message: "failed to " + operation,
		Cause:   cause,
	}
}

// NewCompensationError reports that rolling back after original failed
// left storage partially written. original stays reachable through Unwrap.
func NewCompensationError(original error, failures []error) *DomainError {
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, f.Error())
	}
	return &DomainError{
		Kind:    KindCompensation,
		Code:    "COMPENSATION_FAILED",
		Message: fmt.Sprintf("rollback incomplete, %d step(s) failed [%s]", len(failures), strings.Join(parts, "; ")),
		Cause:   original,
	}
}

// KindOf returns the kind of the first DomainError in err's chain.
// Errors that carry no kind are reported as persistence failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindPersistence
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// Common domain errors
var (
	ErrNotFound            = &DomainError{Kind: KindNotFound, Code: "NOT_FOUND", Message: "Resource not found"}
	ErrAlreadyExists       = &DomainError{Kind: KindConflict, Code: "ALREADY_EXISTS", Message: "Resource already exists"}
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = &DomainError{Kind: KindConflict, Code: "CONCURRENCY_CONFLICT", Message: "Resource was modified by another process"}
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Quantity is greater than available stock")
	ErrCategoryMismatch    = NewDomainError("CATEGORY_MISMATCH", "Value does not belong to the product category")
	ErrTotalMismatch       = NewDomainError("TOTAL_MISMATCH", "Total price is not correct")
)
