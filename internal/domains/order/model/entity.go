package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// ORDER STATUS CONSTANTS
// =====================================================
const (
	OrderStatusCreated         = "created"
	OrderStatusConfirmed       = "confirmed"
	OrderStatusPickupScheduled = "pickup_scheduled"
	OrderStatusPickedUp        = "picked_up"
	OrderStatusInTransit       = "in_transit"
	OrderStatusDelivered       = "delivered"
	OrderStatusCompleted       = "completed"
	OrderStatusCancelled       = "cancelled"
)

var validStatuses = map[string]bool{
	OrderStatusCreated:         true,
	OrderStatusConfirmed:       true,
	OrderStatusPickupScheduled: true,
	OrderStatusPickedUp:        true,
	OrderStatusInTransit:       true,
	OrderStatusDelivered:       true,
	OrderStatusCompleted:       true,
	OrderStatusCancelled:       true,
}

// IsValidStatus reports whether s is a known order status.
func IsValidStatus(s string) bool {
	return validStatuses[s]
}

// IsTerminalStatus reports whether an order in status s accepts no further
// transitions. Any non-terminal status may move to any other status,
// including cancelled.
func IsTerminalStatus(s string) bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// =====================================================
// ENTITY: Order
// =====================================================
// Buyer/seller references are nullable: account deletion nulls them out
// instead of cascading into the order ledger.
type Order struct {
	ID             uuid.UUID       `json:"id"`
	BuyerID        *uuid.UUID      `json:"buyer_id,omitempty"`
	SellerID       *uuid.UUID      `json:"seller_id,omitempty"`
	BaseAmount     decimal.Decimal `json:"base_amount"`
	ConvenienceFee decimal.Decimal `json:"convenience_fee"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	Discount       decimal.Decimal `json:"discount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	CouponID       *uuid.UUID      `json:"coupon_id,omitempty"`
	Status         string          `json:"status"`
	InvoiceURL     *string         `json:"invoice_url,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// CheckTotal verifies total_amount == base + convenience_fee + delivery_fee - discount.
func (o *Order) CheckTotal() bool {
	expected := o.BaseAmount.Add(o.ConvenienceFee).Add(o.DeliveryFee).Sub(o.Discount)
	return o.TotalAmount.Equal(expected)
}

// =====================================================
// ENTITY: OrderItem
// =====================================================
// Price is frozen at order time; ProductID is nulled if the product is
// later deleted.
type OrderItem struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID *uuid.UUID      `json:"product_id,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}

// =====================================================
// ENTITY: OrderStatusHistory
// =====================================================
// Append-only audit row. PreviousStatus is nil for the row recorded at
// order creation.
type OrderStatusHistory struct {
	ID             uuid.UUID  `json:"id"`
	OrderID        uuid.UUID  `json:"order_id"`
	PreviousStatus *string    `json:"previous_status,omitempty"`
	NewStatus      string     `json:"new_status"`
	ChangedByID    *uuid.UUID `json:"changed_by_id,omitempty"`
	Remarks        *string    `json:"remarks,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
