package model

import (
	"time"

	"github.com/google/uuid"
)

// =====================================================
// NOTIFICATION TYPE CONSTANTS
// =====================================================
const (
	TypeOrderNew       = "order_new"
	TypeOrderUpdate    = "order_update"
	TypeCouponExpiry   = "coupon_expiry"
	TypeStockAlert     = "stock_alert"
	TypePaymentSuccess = "payment_success"
	TypeSystem         = "system"
)

var validTypes = map[string]bool{
	TypeOrderNew:       true,
	TypeOrderUpdate:    true,
	TypeCouponExpiry:   true,
	TypeStockAlert:     true,
	TypePaymentSuccess: true,
	TypeSystem:         true,
}

func IsValidType(t string) bool {
	return validTypes[t]
}

// =====================================================
// ENTITY: Notification
// =====================================================
type Notification struct {
	ID        uuid.UUID              `json:"id"`
	UserID    uuid.UUID              `json:"user_id"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}
