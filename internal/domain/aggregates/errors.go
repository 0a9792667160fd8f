package aggregates

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrorCode standardizes aggregate failure semantics across the order lifecycle.
type ErrorCode string

const (
	CodeValidation             ErrorCode = "validation"
	CodeInsufficientStock      ErrorCode = "insufficient_stock"
	CodeInvalidStateTransition ErrorCode = "invalid_state_transition"
	CodeNotFound               ErrorCode = "not_found"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeConflict               ErrorCode = "conflict"
	CodeAlreadyExists          ErrorCode = "already_exists"
	CodeInvariantViolation     ErrorCode = "invariant_violation"
	CodePreconditionFailed     ErrorCode = "precondition_failed"
	CodeRetryable              ErrorCode = "retryable"
	CodeInternal               ErrorCode = "internal"
)

// Error is the canonical aggregate error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an aggregate error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with aggregate error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or wrapped err) carries the given aggregate code.
func IsCode(err error, code ErrorCode) bool {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return false
	}
	return aggErr.Code == code
}

// CodeOf extracts the aggregate error code when available.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// StockShortage is the cause attached to CodeInsufficientStock errors.
type StockShortage struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (s *StockShortage) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d", s.ProductID, s.Available, s.Requested)
}

// InsufficientStock builds the typed shortage error naming the offending product.
func InsufficientStock(op string, productID uuid.UUID, requested, available int) error {
	shortage := &StockShortage{ProductID: productID, Requested: requested, Available: available}
	return NewError(CodeInsufficientStock, op, shortage.Error(), shortage)
}

// ShortageOf extracts the StockShortage from err when present.
func ShortageOf(err error) (*StockShortage, bool) {
	var s *StockShortage
	if errors.As(err, &s) {
		return s, true
	}
	return nil, false
}
