package model

import (
	"errors"
	"fmt"
)

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
// Redemption checks run in a fixed order; the first failure wins:
// not-found/inactive, expired, already-used, usage-limit.
const (
	ErrCodeCouponNotFound    = "CPN001"
	ErrCodeCouponInactive    = "CPN002"
	ErrCodeCouponExpired     = "CPN003"
	ErrCodeAlreadyUsed       = "CPN004"
	ErrCodeUsageLimitReached = "CPN005"
	ErrCodeInvalidCoupon     = "CPN006"
	ErrCodeDuplicateCode     = "CPN007"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponInactive    = errors.New("coupon is not active")
	ErrCouponExpired     = errors.New("coupon is outside its validity window")
	ErrAlreadyUsed       = errors.New("coupon already redeemed by this user")
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	ErrDuplicateCode     = errors.New("coupon code already exists")
)

// =====================================================
// CUSTOM ERROR TYPE
// =====================================================
type CouponError struct {
	Code    string
	Message string
	Err     error
}

func (e *CouponError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *CouponError) Unwrap() error {
	return e.Err
}

func NewCouponError(code, message string, err error) *CouponError {
	return &CouponError{Code: code, Message: message, Err: err}
}
