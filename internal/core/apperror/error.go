// Package apperror provides structured errors for the inventory core.
// Every rejection surfaced to a caller is an AppError so that the offending
// document, line and reason reach the API response intact.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Inventory rule violations
	CodeShortage               = "SHORTAGE"
	CodeStateConflict          = "STATE_CONFLICT"
	CodeIrreversible           = "IRREVERSIBLE"
	CodeReferential            = "REFERENTIAL"
	CodeRecipeCycle            = "RECIPE_CYCLE"
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeDuplicate           = "DUPLICATE_ENTRY"
	CodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	CodeIdempotencyMismatch = "IDEMPOTENCY_MISMATCH"
)

// AppError is the standard error type of the service.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details names the offending line, item, warehouse or document
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithLine records the zero-based index of the document line that caused the error.
func (e *AppError) WithLine(index int) *AppError {
	return e.WithDetail("line", index)
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewShortage is returned when a consuming line requests more than the balance holds.
func NewShortage(warehouseID, itemID string, required, available string) *AppError {
	return &AppError{
		Code:       CodeShortage,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"warehouse_id": warehouseID,
			"item_id":      itemID,
			"required":     required,
			"available":    available,
		},
	}
}

// NewStateConflict is returned when an operation is not allowed from the current status.
func NewStateConflict(entity string, id any, status, operation string) *AppError {
	return &AppError{
		Code:       CodeStateConflict,
		Message:    fmt.Sprintf("cannot %s %s in status %s", operation, entity, status),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"entity":    entity,
			"id":        id,
			"status":    status,
			"operation": operation,
		},
	}
}

// NewIrreversible is returned when reverting would drive a balance negative.
func NewIrreversible(warehouseID, itemID string, needed, available string) *AppError {
	return &AppError{
		Code:       CodeIrreversible,
		Message:    "Document cannot be reverted: stock has been consumed since confirmation",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"warehouse_id": warehouseID,
			"item_id":      itemID,
			"needed":       needed,
			"available":    available,
		},
	}
}

// NewReferential is returned when a line references a missing or inactive catalog entry.
func NewReferential(entity string, id any, reason string) *AppError {
	return &AppError{
		Code:       CodeReferential,
		Message:    fmt.Sprintf("%s %s", entity, reason),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewRecipeCycle is returned when a recipe transitively consumes its own output.
func NewRecipeCycle(path []string) *AppError {
	return &AppError{
		Code:       CodeRecipeCycle,
		Message:    "Recipe consumes its own output",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"path": path},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(message string) *AppError {
	return &AppError{
		Code:       CodeBusinessRule,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// NewIdempotencyConflict is returned while a request with the same key is still running.
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotencyConflict,
		Message:    "A request with this idempotency key is in progress",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when a key is reused for a different request.
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotencyMismatch,
		Message:    "Idempotency key was already used for a different request",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}
