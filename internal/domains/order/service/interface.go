package service

import (
	"context"

	"github.com/google/uuid"

	"marketplace-backend/internal/domains/order/model"
)

// OrderService drives the order lifecycle. All writes go through here so
// the history trail and the async side effects stay consistent.
type OrderService interface {
	CreateOrder(ctx context.Context, actorID uuid.UUID, req model.CreateOrderRequest) (*model.CreateOrderResponse, error)
	ChangeStatus(ctx context.Context, orderID, actorID uuid.UUID, req model.ChangeStatusRequest) (*model.Order, error)
	GetOrder(ctx context.Context, orderID, actorID uuid.UUID, role string) (*model.OrderDetailResponse, error)
	ListOrdersForBuyer(ctx context.Context, buyerID uuid.UUID, status string, limit, offset int) ([]model.OrderListItem, error)
	ListOrdersForSeller(ctx context.Context, sellerID uuid.UUID, status string, limit, offset int) ([]model.OrderListItem, error)
}
