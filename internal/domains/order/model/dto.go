package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// CREATE ORDER REQUEST
// =====================================================
type CreateOrderRequest struct {
	BuyerID        uuid.UUID         `json:"buyer_id"`
	SellerID       uuid.UUID         `json:"seller_id"`
	BaseAmount     decimal.Decimal   `json:"base_amount"`
	ConvenienceFee decimal.Decimal   `json:"convenience_fee"`
	DeliveryFee    decimal.Decimal   `json:"delivery_fee"`
	Discount       decimal.Decimal   `json:"discount"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	CouponCode     *string           `json:"coupon_code,omitempty"`
	Items          []CreateOrderItem `json:"items"`
}

type CreateOrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (req CreateOrderRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.BuyerID, validation.Required, validation.By(notNilUUID)),
		validation.Field(&req.SellerID, validation.Required, validation.By(notNilUUID)),
		validation.Field(&req.Items, validation.Required, validation.Length(1, 0)),
	)
}

func (item CreateOrderItem) Validate() error {
	return validation.ValidateStruct(&item,
		validation.Field(&item.ProductID, validation.Required, validation.By(notNilUUID)),
		validation.Field(&item.Quantity, validation.Required, validation.Min(1)),
	)
}

func notNilUUID(value interface{}) error {
	id, _ := value.(uuid.UUID)
	if id == uuid.Nil {
		return validation.NewError("validation_uuid", "must be a non-nil UUID")
	}
	return nil
}

// =====================================================
// CHANGE STATUS REQUEST
// =====================================================
type ChangeStatusRequest struct {
	Status  string  `json:"status"`
	Remarks *string `json:"remarks,omitempty"`
}

func (req ChangeStatusRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Status, validation.Required, validation.By(func(v interface{}) error {
			s, _ := v.(string)
			if !IsValidStatus(s) {
				return validation.NewError("validation_status", "unknown order status")
			}
			return nil
		})),
	)
}

// =====================================================
// RESPONSES
// =====================================================
type CreateOrderResponse struct {
	OrderID     uuid.UUID       `json:"order_id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type OrderDetailResponse struct {
	Order   *Order               `json:"order"`
	Items   []OrderItem          `json:"items"`
	History []OrderStatusHistory `json:"history"`
}

type OrderListItem struct {
	ID          uuid.UUID       `json:"id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}
