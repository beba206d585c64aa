package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	couponRepo "marketplace-backend/internal/domains/coupon/repository"
	"marketplace-backend/internal/domains/order/model"
	"marketplace-backend/internal/domains/order/repository"
	"marketplace-backend/internal/shared"
	"marketplace-backend/internal/shared/utils"
	"marketplace-backend/pkg/logger"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

// =====================================================
// ORDER SERVICE IMPLEMENTATION
// =====================================================
type orderService struct {
	orderRepo  repository.OrderRepository
	couponRepo couponRepo.CouponRepository
	enqueuer   shared.Enqueuer
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	couponRepo couponRepo.CouponRepository,
	enqueuer shared.Enqueuer,
) OrderService {
	return &orderService{
		orderRepo:  orderRepo,
		couponRepo: couponRepo,
		enqueuer:   enqueuer,
	}
}

// =====================================================
// CREATE ORDER
// =====================================================

func (s *orderService) CreateOrder(ctx context.Context, actorID uuid.UUID, req model.CreateOrderRequest) (*model.CreateOrderResponse, error) {
	// Step 1: validate request shape
	if err := req.Validate(); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidOrder, "Invalid request", err)
	}
	for _, item := range req.Items {
		if err := item.Validate(); err != nil {
			return nil, model.NewOrderError(model.ErrCodeInvalidOrder, "Invalid order item", err)
		}
	}

	// Step 2: monetary checks. Storage does not enforce the breakdown, so
	// it must hold here or never.
	for _, amount := range []decimal.Decimal{req.BaseAmount, req.ConvenienceFee, req.DeliveryFee, req.Discount, req.TotalAmount} {
		if amount.IsNegative() {
			return nil, model.NewOrderError(model.ErrCodeNegativeAmount, "Monetary amounts must be non-negative", model.ErrNegativeAmount)
		}
	}

	buyerID := req.BuyerID
	sellerID := req.SellerID
	order := &model.Order{
		ID:             uuid.New(),
		BuyerID:        &buyerID,
		SellerID:       &sellerID,
		BaseAmount:     req.BaseAmount,
		ConvenienceFee: req.ConvenienceFee,
		DeliveryFee:    req.DeliveryFee,
		Discount:       req.Discount,
		TotalAmount:    req.TotalAmount,
		Status:         model.OrderStatusCreated,
		Version:        1,
	}
	if !order.CheckTotal() {
		return nil, model.NewOrderError(model.ErrCodeTotalMismatch, "Total amount does not match breakdown", model.ErrTotalMismatch)
	}

	// Step 3: resolve coupon code, if any. Redemption happened at
	// apply-time through the coupon service; here we only link it.
	if req.CouponCode != nil && *req.CouponCode != "" {
		coupon, err := s.couponRepo.GetByCode(ctx, *req.CouponCode)
		if err != nil {
			return nil, model.NewOrderError(model.ErrCodeInvalidOrder, "Unknown coupon code", err)
		}
		order.CouponID = &coupon.ID
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID := item.ProductID
		items = append(items, model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: &productID,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	// Step 4: persist order + items + initial history row atomically
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidOrder, "Failed to begin transaction", err)
	}
	defer s.orderRepo.RollbackTx(ctx, tx)

	if err := s.orderRepo.CreateOrderWithTx(ctx, tx, order); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidOrder, "Failed to create order", err)
	}
	if err := s.orderRepo.CreateOrderItemsWithTx(ctx, tx, items); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidOrder, "Failed to create order items", err)
	}

	history := &model.OrderStatusHistory{
		ID:          uuid.New(),
		OrderID:     order.ID,
		NewStatus:   model.OrderStatusCreated,
		ChangedByID: &actorID,
	}
	if err := s.orderRepo.InsertHistoryWithTx(ctx, tx, history); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidOrder, "Failed to record status history", err)
	}

	if err := s.orderRepo.CommitTx(ctx, tx); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidOrder, "Failed to commit order", err)
	}

	// Step 5: post-commit side effects. Fire-and-forget; failures are
	// logged, never propagated back to the caller.
	s.notifySeller(order)
	s.enqueueOrderEmail(order.ID, shared.RecipientSeller)

	return &model.CreateOrderResponse{
		OrderID:     order.ID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
	}, nil
}

// =====================================================
// CHANGE STATUS - STATE MACHINE
// =====================================================

func (s *orderService) ChangeStatus(ctx context.Context, orderID, actorID uuid.UUID, req model.ChangeStatusRequest) (*model.Order, error) {
	// Step 1: validate the target status
	if err := req.Validate(); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidStatus, "Invalid status", err)
	}

	// Step 2: lock the order row. Concurrent transitions on the same order
	// serialize here so history rows form a total order.
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, model.NewOrderError(model.ErrCodeOrderNotFound, "Failed to begin transaction", err)
	}
	defer s.orderRepo.RollbackTx(ctx, tx)

	order, err := s.orderRepo.GetOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, model.NewOrderError(model.ErrCodeOrderNotFound, "Order not found", err)
	}

	// Terminal statuses accept no further transitions. Everything else is
	// permissive: any status can move to any other status.
	if model.IsTerminalStatus(order.Status) {
		return nil, model.NewOrderError(model.ErrCodeTerminalStatus, "Order is in a terminal status", model.ErrTerminalStatus)
	}

	// Same-status writes are a no-op: no history row, no notification.
	if order.Status == req.Status {
		return order, nil
	}

	// Step 3: snapshot the prior status before mutating, then write the
	// history row inside the same transaction as the status update.
	previous := order.Status
	history := &model.OrderStatusHistory{
		ID:             uuid.New(),
		OrderID:        order.ID,
		PreviousStatus: &previous,
		NewStatus:      req.Status,
		ChangedByID:    &actorID,
		Remarks:        req.Remarks,
	}
	if err := s.orderRepo.InsertHistoryWithTx(ctx, tx, history); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidStatus, "Failed to record status history", err)
	}

	var completedAt *time.Time
	if req.Status == model.OrderStatusCompleted {
		now := time.Now()
		completedAt = &now
	}
	if err := s.orderRepo.UpdateStatusWithTx(ctx, tx, order.ID, req.Status, completedAt); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidStatus, "Failed to update status", err)
	}

	if err := s.orderRepo.CommitTx(ctx, tx); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidStatus, "Failed to commit status change", err)
	}

	order.Status = req.Status
	order.CompletedAt = completedAt
	order.Version++

	// Step 4: post-commit side effects
	s.notifyBuyer(order, previous)
	s.enqueueOrderEmail(order.ID, shared.RecipientBuyer)

	return order, nil
}

// =====================================================
// READS
// =====================================================

func (s *orderService) GetOrder(ctx context.Context, orderID, actorID uuid.UUID, role string) (*model.OrderDetailResponse, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, model.NewOrderError(model.ErrCodeOrderNotFound, "Order not found", err)
	}

	isBuyer := order.BuyerID != nil && *order.BuyerID == actorID
	isSeller := order.SellerID != nil && *order.SellerID == actorID
	isAdmin := role == "admin" || role == "superadmin"
	if !isBuyer && !isSeller && !isAdmin {
		return nil, model.NewOrderError(model.ErrCodeUnauthorized, "Not a party to this order", model.ErrUnauthorized)
	}

	items, err := s.orderRepo.GetItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, model.NewOrderError(model.ErrCodeOrderNotFound, "Failed to load order items", err)
	}
	history, err := s.orderRepo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, model.NewOrderError(model.ErrCodeOrderNotFound, "Failed to load status history", err)
	}

	return &model.OrderDetailResponse{Order: order, Items: items, History: history}, nil
}

func (s *orderService) ListOrdersForBuyer(ctx context.Context, buyerID uuid.UUID, status string, limit, offset int) ([]model.OrderListItem, error) {
	if status != "" && !model.IsValidStatus(status) {
		return nil, model.NewOrderError(model.ErrCodeInvalidStatus, "Unknown order status", model.ErrInvalidStatus)
	}
	return s.orderRepo.ListByBuyer(ctx, buyerID, status, limit, offset)
}

func (s *orderService) ListOrdersForSeller(ctx context.Context, sellerID uuid.UUID, status string, limit, offset int) ([]model.OrderListItem, error) {
	if status != "" && !model.IsValidStatus(status) {
		return nil, model.NewOrderError(model.ErrCodeInvalidStatus, "Unknown order status", model.ErrInvalidStatus)
	}
	return s.orderRepo.ListBySeller(ctx, sellerID, status, limit, offset)
}

// =====================================================
// SIDE EFFECTS
// =====================================================

func (s *orderService) notifySeller(order *model.Order) {
	if order.SellerID == nil {
		return
	}
	s.enqueueNotification(shared.DispatchNotificationPayload{
		UserID:           *order.SellerID,
		Title:            "New order received",
		Message:          "You have received a new order",
		NotificationType: "order_new",
		Data: map[string]interface{}{
			"order_id":     order.ID.String(),
			"status":       order.Status,
			"total_amount": utils.FormatAmount(order.TotalAmount),
		},
	})
}

func (s *orderService) notifyBuyer(order *model.Order, previousStatus string) {
	if order.BuyerID == nil {
		return
	}
	s.enqueueNotification(shared.DispatchNotificationPayload{
		UserID:           *order.BuyerID,
		Title:            "Order update",
		Message:          "Your order status changed to " + order.Status,
		NotificationType: "order_update",
		Data: map[string]interface{}{
			"order_id":        order.ID.String(),
			"previous_status": previousStatus,
			"status":          order.Status,
			"total_amount":    utils.FormatAmount(order.TotalAmount),
		},
	})
}

func (s *orderService) enqueueNotification(payload shared.DispatchNotificationPayload) {
	task, err := utils.MarshalTask(shared.TypeDispatchNotification, payload)
	if err != nil {
		logger.Error("Failed to marshal notification task:", err)
		return
	}
	if _, err := s.enqueuer.Enqueue(task, asynq.Queue(shared.QueueNotification)); err != nil {
		logger.Error("Failed to enqueue notification task:", err)
	}
}

func (s *orderService) enqueueOrderEmail(orderID uuid.UUID, recipientType string) {
	task, err := utils.MarshalTask(shared.TypeSendOrderEmail, shared.SendOrderEmailPayload{
		OrderID:       orderID,
		RecipientType: recipientType,
	})
	if err != nil {
		logger.Error("Failed to marshal order email task:", err)
		return
	}
	if _, err := s.enqueuer.Enqueue(task, asynq.Queue(shared.QueueEmail), asynq.MaxRetry(3)); err != nil {
		logger.Error("Failed to enqueue order email task:", err)
	}
}
