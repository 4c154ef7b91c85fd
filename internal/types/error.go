package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by the coordination layer wraps exactly one of these,
// so callers can branch with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrConsistency = errors.New("consistency error")
	ErrForbidden   = errors.New("forbidden")
)

// CustomError is a classified failure with the HTTP status it maps to.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`

	kind error
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// Unwrap exposes the error kind.
func (e *CustomError) Unwrap() error {
	return e.kind
}

// ValidationError reports malformed input.
func ValidationError(format string, args ...any) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Message: fmt.Sprintf(format, args...),
		Type:    "validation",
		kind:    ErrValidation,
	}
}

// NotFoundError reports a referenced entity that does not exist.
func NotFoundError(format string, args ...any) *CustomError {
	return &CustomError{
		Code:    http.StatusNotFound,
		Message: fmt.Sprintf(format, args...),
		Type:    "notFound",
		kind:    ErrNotFound,
	}
}

// ConflictError reports a uniqueness or state conflict.
func ConflictError(format string, args ...any) *CustomError {
	return &CustomError{
		Code:    http.StatusConflict,
		Message: fmt.Sprintf(format, args...),
		Type:    "conflict",
		kind:    ErrConflict,
	}
}

// ForbiddenError reports a request rejected by route authorization
func ForbiddenError(errorType, format string, args ...any) *CustomError {
	return &CustomError{
		Code:    http.StatusForbidden,
		Message: fmt.Sprintf(format, args...),
		Type:    errorType,
		kind:    ErrForbidden,
	}
}

// ConsistencyError reports that the ledger and the topology graph disagreed after a partial write.
// Cause is the failure of the later write; CompensationErr is set when undoing the earlier
// writes failed too, in which case the entity is left partially written.
type ConsistencyError struct {
	Op              string
	Key             string
	Cause           error
	CompensationErr error
}

func (e *ConsistencyError) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("%s %q degraded, partially written: %v; compensation failed: %v",
			e.Op, e.Key, e.Cause, e.CompensationErr)
	}
	return fmt.Sprintf("%s %q failed and was compensated: %v", e.Op, e.Key, e.Cause)
}

// Unwrap exposes ErrConsistency along with the underlying causes.
func (e *ConsistencyError) Unwrap() []error {
	errs := []error{ErrConsistency}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.CompensationErr != nil {
		errs = append(errs, e.CompensationErr)
	}
	return errs
}

// Degraded reports whether compensation failed and the stores may disagree.
func (e *ConsistencyError) Degraded() bool {
	return e.CompensationErr != nil
}

// StatusCode maps any error to an HTTP status.
func StatusCode(err error) int {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return http.StatusInternalServerError
}

// TypeOf returns the short error type used in API responses.
func TypeOf(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Type
	}
	if errors.Is(err, ErrConsistency) {
		return "consistency"
	}
	return "unknown"
}
