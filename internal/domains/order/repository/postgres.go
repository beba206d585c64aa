package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace-backend/internal/domains/order/model"
)

// =====================================================
// POSTGRES REPOSITORY IMPLEMENTATION
// =====================================================
type postgresOrderRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &postgresOrderRepository{
		pool: pool,
	}
}

// =====================================================
// TRANSACTION MANAGEMENT
// =====================================================

func (r *postgresOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *postgresOrderRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return tx.Commit(ctx)
}

func (r *postgresOrderRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return tx.Rollback(ctx)
}

// =====================================================
// CREATE ORDER
// =====================================================

func (r *postgresOrderRepository) CreateOrderWithTx(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, buyer_id, seller_id,
			base_amount, convenience_fee, delivery_fee, discount, total_amount,
			coupon_id, status, invoice_url, version
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8,
			$9, $10, $11, $12
		)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		order.ID,
		order.BuyerID,
		order.SellerID,
		order.BaseAmount,
		order.ConvenienceFee,
		order.DeliveryFee,
		order.Discount,
		order.TotalAmount,
		order.CouponID,
		order.Status,
		order.InvoiceURL,
		order.Version,
	).Scan(&order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (r *postgresOrderRepository) CreateOrderItemsWithTx(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, price, quantity)
		VALUES ($1, $2, $3, $4, $5)
	`

	for i := range items {
		if _, err := tx.Exec(ctx, query,
			items[i].ID,
			items[i].OrderID,
			items[i].ProductID,
			items[i].Price,
			items[i].Quantity,
		); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

// =====================================================
// GET ORDER
// =====================================================

const orderColumns = `
	id, buyer_id, seller_id,
	base_amount, convenience_fee, delivery_fee, discount, total_amount,
	coupon_id, status, invoice_url, completed_at,
	created_at, updated_at, version
`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.BuyerID, &o.SellerID,
		&o.BaseAmount, &o.ConvenienceFee, &o.DeliveryFee, &o.Discount, &o.TotalAmount,
		&o.CouponID, &o.Status, &o.InvoiceURL, &o.CompletedAt,
		&o.CreatedAt, &o.UpdatedAt, &o.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return &o, nil
}

func (r *postgresOrderRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.pool.QueryRow(ctx, query, orderID))
}

// GetOrderForUpdate takes a row lock so concurrent transitions on the same
// order serialize and the history trail keeps a total order.
func (r *postgresOrderRepository) GetOrderForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return scanOrder(tx.QueryRow(ctx, query, orderID))
}

// =====================================================
// UPDATE STATUS
// =====================================================

func (r *postgresOrderRepository) UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status string, completedAt *time.Time) error {
	query := `
		UPDATE orders
		SET status = $2,
		    completed_at = COALESCE($3, completed_at),
		    updated_at = NOW(),
		    version = version + 1
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, orderID, status, completedAt)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// =====================================================
// LISTING
// =====================================================

func (r *postgresOrderRepository) listByParty(ctx context.Context, column string, partyID uuid.UUID, status string, limit, offset int) ([]model.OrderListItem, error) {
	query := fmt.Sprintf(`
		SELECT id, status, total_amount, created_at
		FROM orders
		WHERE %s = $1
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, column)

	rows, err := r.pool.Query(ctx, query, partyID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var items []model.OrderListItem
	for rows.Next() {
		var it model.OrderListItem
		if err := rows.Scan(&it.ID, &it.Status, &it.TotalAmount, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

func (r *postgresOrderRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, status string, limit, offset int) ([]model.OrderListItem, error) {
	return r.listByParty(ctx, "buyer_id", buyerID, status, limit, offset)
}

func (r *postgresOrderRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, status string, limit, offset int) ([]model.OrderListItem, error) {
	return r.listByParty(ctx, "seller_id", sellerID, status, limit, offset)
}

func (r *postgresOrderRepository) GetItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, price, quantity, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Price, &it.Quantity, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

// =====================================================
// STATUS HISTORY
// =====================================================

func (r *postgresOrderRepository) InsertHistoryWithTx(ctx context.Context, tx pgx.Tx, entry *model.OrderStatusHistory) error {
	query := `
		INSERT INTO order_status_history (id, order_id, previous_status, new_status, changed_by_id, remarks)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := tx.QueryRow(ctx, query,
		entry.ID,
		entry.OrderID,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.ChangedByID,
		entry.Remarks,
	).Scan(&entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert status history: %w", err)
	}

	return nil
}

func (r *postgresOrderRepository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error) {
	query := `
		SELECT id, order_id, previous_status, new_status, changed_by_id, remarks, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	var entries []model.OrderStatusHistory
	for rows.Next() {
		var e model.OrderStatusHistory
		if err := rows.Scan(&e.ID, &e.OrderID, &e.PreviousStatus, &e.NewStatus, &e.ChangedByID, &e.Remarks, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// =====================================================
// ANALYTICS
// =====================================================

func (r *postgresOrderRepository) SalesSummaryForDay(ctx context.Context, day time.Time) (*SalesSummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	query := `
		SELECT
			COUNT(*) FILTER (WHERE created_at >= $1 AND created_at < $2),
			COUNT(*) FILTER (WHERE status = 'completed' AND completed_at >= $1 AND completed_at < $2),
			COUNT(*) FILTER (WHERE status = 'cancelled' AND updated_at >= $1 AND updated_at < $2),
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'completed' AND completed_at >= $1 AND completed_at < $2), 0),
			COALESCE(SUM(discount) FILTER (WHERE status = 'completed' AND completed_at >= $1 AND completed_at < $2), 0)
		FROM orders
	`

	s := SalesSummary{Day: start}
	err := r.pool.QueryRow(ctx, query, start, end).Scan(
		&s.OrdersCreated,
		&s.OrdersCompleted,
		&s.OrdersCancelled,
		&s.GrossRevenue,
		&s.TotalDiscount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sales summary: %w", err)
	}

	return &s, nil
}
