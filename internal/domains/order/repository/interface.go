package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"marketplace-backend/internal/domains/order/model"
)

// SalesSummary is the aggregate produced by the daily analytics job.
type SalesSummary struct {
	Day             time.Time       `json:"day"`
	OrdersCreated   int             `json:"orders_created"`
	OrdersCompleted int             `json:"orders_completed"`
	OrdersCancelled int             `json:"orders_cancelled"`
	GrossRevenue    decimal.Decimal `json:"gross_revenue"`
	TotalDiscount   decimal.Decimal `json:"total_discount"`
}

// OrderRepository is the persistence boundary for orders, their items and
// their status-history audit trail. Transition writes go through explicit
// transactions so the history row and the status update commit atomically.
type OrderRepository interface {
	// Transaction management
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CommitTx(ctx context.Context, tx pgx.Tx) error
	RollbackTx(ctx context.Context, tx pgx.Tx) error

	// Orders
	CreateOrderWithTx(ctx context.Context, tx pgx.Tx, order *model.Order) error
	CreateOrderItemsWithTx(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
	// GetOrderForUpdate locks the order row for the duration of tx.
	GetOrderForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*model.Order, error)
	UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status string, completedAt *time.Time) error
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, status string, limit, offset int) ([]model.OrderListItem, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, status string, limit, offset int) ([]model.OrderListItem, error)

	// Items
	GetItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)

	// Status history
	InsertHistoryWithTx(ctx context.Context, tx pgx.Tx, entry *model.OrderStatusHistory) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error)

	// Analytics
	SalesSummaryForDay(ctx context.Context, day time.Time) (*SalesSummary, error)
}
