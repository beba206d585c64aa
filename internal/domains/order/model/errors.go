package model

import (
	"errors"
	"fmt"
)

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeOrderNotFound     = "ORD001"
	ErrCodeInvalidStatus     = "ORD002"
	ErrCodeTerminalStatus    = "ORD003"
	ErrCodeTotalMismatch     = "ORD004"
	ErrCodeInvalidOrder      = "ORD005"
	ErrCodeUnauthorized      = "ORD006"
	ErrCodeVersionMismatch   = "ORD007"
	ErrCodeEmptyItems        = "ORD008"
	ErrCodeNegativeAmount    = "ORD009"
	ErrCodeSameStatus        = "ORD010"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrTerminalStatus  = errors.New("order is in a terminal status")
	ErrTotalMismatch   = errors.New("total amount does not match the monetary breakdown")
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrVersionMismatch = errors.New("concurrent modification detected")
	ErrEmptyItems      = errors.New("order has no items")
	ErrNegativeAmount  = errors.New("monetary amounts must be non-negative")
)

// =====================================================
// CUSTOM ERROR TYPE
// =====================================================
type OrderError struct {
	Code    string
	Message string
	Err     error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

func NewOrderError(code, message string, err error) *OrderError {
	return &OrderError{Code: code, Message: message, Err: err}
}
