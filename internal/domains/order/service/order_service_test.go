package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	couponModel "marketplace-backend/internal/domains/coupon/model"
	couponRepository "marketplace-backend/internal/domains/coupon/repository"
	"marketplace-backend/internal/domains/order/model"
	orderRepository "marketplace-backend/internal/domains/order/repository"
	"marketplace-backend/internal/shared"
)

// =====================================================
// FAKES
// =====================================================

// fakeTx satisfies pgx.Tx; the fake repositories keep their own state and
// ignore the tx handle except for commit bookkeeping.
type fakeTx struct {
	done bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(ctx context.Context) error          { return nil }
func (t *fakeTx) Rollback(ctx context.Context) error        { return nil }
func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                               { return nil }

// fakeOrderRepo is an in-memory OrderRepository. BeginTx takes a lock that
// CommitTx/RollbackTx release, mirroring the row-lock serialization the
// real repository gets from FOR UPDATE.
type fakeOrderRepo struct {
	mu      sync.Mutex
	orders  map[uuid.UUID]*model.Order
	items   map[uuid.UUID][]model.OrderItem
	history map[uuid.UUID][]model.OrderStatusHistory
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:  make(map[uuid.UUID]*model.Order),
		items:   make(map[uuid.UUID][]model.OrderItem),
		history: make(map[uuid.UUID][]model.OrderStatusHistory),
	}
}

func (r *fakeOrderRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	r.mu.Lock()
	return &fakeTx{}, nil
}

func (r *fakeOrderRepo) CommitTx(ctx context.Context, tx pgx.Tx) error {
	ft := tx.(*fakeTx)
	if !ft.done {
		ft.done = true
		r.mu.Unlock()
	}
	return nil
}

func (r *fakeOrderRepo) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	ft := tx.(*fakeTx)
	if !ft.done {
		ft.done = true
		r.mu.Unlock()
	}
	return nil
}

func (r *fakeOrderRepo) CreateOrderWithTx(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) CreateOrderItemsWithTx(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	for _, it := range items {
		r.items[it.OrderID] = append(r.items[it.OrderID], it)
	}
	return nil
}

func (r *fakeOrderRepo) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) GetOrderForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*model.Order, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status string, completedAt *time.Time) error {
	o, ok := r.orders[orderID]
	if !ok {
		return model.ErrOrderNotFound
	}
	o.Status = status
	if completedAt != nil {
		o.CompletedAt = completedAt
	}
	o.UpdatedAt = time.Now()
	o.Version++
	return nil
}

func (r *fakeOrderRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, status string, limit, offset int) ([]model.OrderListItem, error) {
	return nil, nil
}

func (r *fakeOrderRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, status string, limit, offset int) ([]model.OrderListItem, error) {
	return nil, nil
}

func (r *fakeOrderRepo) GetItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[orderID], nil
}

func (r *fakeOrderRepo) InsertHistoryWithTx(ctx context.Context, tx pgx.Tx, entry *model.OrderStatusHistory) error {
	entry.CreatedAt = time.Now()
	r.history[entry.OrderID] = append(r.history[entry.OrderID], *entry)
	return nil
}

func (r *fakeOrderRepo) ListHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.OrderStatusHistory, len(r.history[orderID]))
	copy(out, r.history[orderID])
	return out, nil
}

func (r *fakeOrderRepo) SalesSummaryForDay(ctx context.Context, day time.Time) (*orderRepository.SalesSummary, error) {
	return nil, nil
}

// fakeCouponRepo only serves GetByCode for the order flow.
type fakeCouponRepo struct {
	couponRepository.CouponRepository
	byCode map[string]*couponModel.Coupon
}

func (r *fakeCouponRepo) GetByCode(ctx context.Context, code string) (*couponModel.Coupon, error) {
	c, ok := r.byCode[code]
	if !ok {
		return nil, couponModel.ErrCouponNotFound
	}
	return c, nil
}

// fakeEnqueuer records every enqueued task.
type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (e *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func (e *fakeEnqueuer) tasksOfType(taskType string) []*asynq.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*asynq.Task
	for _, t := range e.tasks {
		if t.Type() == taskType {
			out = append(out, t)
		}
	}
	return out
}

// =====================================================
// HELPERS
// =====================================================

func newTestService() (*fakeOrderRepo, *fakeEnqueuer, OrderService) {
	repo := newFakeOrderRepo()
	enq := &fakeEnqueuer{}
	svc := NewOrderService(repo, &fakeCouponRepo{byCode: map[string]*couponModel.Coupon{}}, enq)
	return repo, enq, svc
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func validCreateRequest() model.CreateOrderRequest {
	return model.CreateOrderRequest{
		BuyerID:        uuid.New(),
		SellerID:       uuid.New(),
		BaseAmount:     dec("90.00"),
		ConvenienceFee: dec("5.00"),
		DeliveryFee:    dec("5.00"),
		Discount:       dec("0.00"),
		TotalAmount:    dec("100.00"),
		Items: []model.CreateOrderItem{
			{ProductID: uuid.New(), Price: dec("45.00"), Quantity: 2},
		},
	}
}

func seedOrder(repo *fakeOrderRepo, status string) *model.Order {
	buyer, seller := uuid.New(), uuid.New()
	o := &model.Order{
		ID:          uuid.New(),
		BuyerID:     &buyer,
		SellerID:    &seller,
		BaseAmount:  dec("90.00"),
		TotalAmount: dec("90.00"),
		Status:      status,
		Version:     1,
	}
	repo.orders[o.ID] = o
	return o
}

// =====================================================
// CREATE ORDER
// =====================================================

func TestCreateOrder_NotifiesSellerOnly(t *testing.T) {
	repo, enq, svc := newTestService()
	req := validCreateRequest()

	resp, err := svc.CreateOrder(context.Background(), req.BuyerID, req)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCreated, resp.Status)
	assert.True(t, resp.TotalAmount.Equal(dec("100.00")))

	notifications := enq.tasksOfType(shared.TypeDispatchNotification)
	require.Len(t, notifications, 1)

	var payload shared.DispatchNotificationPayload
	require.NoError(t, json.Unmarshal(notifications[0].Payload(), &payload))
	assert.Equal(t, req.SellerID, payload.UserID)
	assert.Equal(t, "order_new", payload.NotificationType)
	assert.Equal(t, "100.00", payload.Data["total_amount"])

	emails := enq.tasksOfType(shared.TypeSendOrderEmail)
	require.Len(t, emails, 1)
	var emailPayload shared.SendOrderEmailPayload
	require.NoError(t, json.Unmarshal(emails[0].Payload(), &emailPayload))
	assert.Equal(t, shared.RecipientSeller, emailPayload.RecipientType)

	history, _ := repo.ListHistory(context.Background(), resp.OrderID)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].PreviousStatus)
	assert.Equal(t, model.OrderStatusCreated, history[0].NewStatus)
}

func TestCreateOrder_RejectsTotalMismatch(t *testing.T) {
	_, enq, svc := newTestService()
	req := validCreateRequest()
	req.TotalAmount = dec("99.00")

	_, err := svc.CreateOrder(context.Background(), req.BuyerID, req)
	require.Error(t, err)

	var orderErr *model.OrderError
	require.ErrorAs(t, err, &orderErr)
	assert.Equal(t, model.ErrCodeTotalMismatch, orderErr.Code)
	assert.Empty(t, enq.tasks)
}

func TestCreateOrder_RejectsNegativeAmounts(t *testing.T) {
	_, _, svc := newTestService()
	req := validCreateRequest()
	req.Discount = dec("-1.00")

	_, err := svc.CreateOrder(context.Background(), req.BuyerID, req)
	var orderErr *model.OrderError
	require.ErrorAs(t, err, &orderErr)
	assert.Equal(t, model.ErrCodeNegativeAmount, orderErr.Code)
}

func TestCreateOrder_RejectsEmptyItems(t *testing.T) {
	_, _, svc := newTestService()
	req := validCreateRequest()
	req.Items = nil

	_, err := svc.CreateOrder(context.Background(), req.BuyerID, req)
	require.Error(t, err)
}

// =====================================================
// CHANGE STATUS
// =====================================================

func TestChangeStatus_RecordsHistoryWithSnapshot(t *testing.T) {
	repo, enq, svc := newTestService()
	order := seedOrder(repo, model.OrderStatusCreated)
	actor := uuid.New()

	updated, err := svc.ChangeStatus(context.Background(), order.ID, actor, model.ChangeStatusRequest{Status: model.OrderStatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, updated.Status)
	assert.Nil(t, updated.CompletedAt)

	history, _ := repo.ListHistory(context.Background(), order.ID)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].PreviousStatus)
	assert.Equal(t, model.OrderStatusCreated, *history[0].PreviousStatus)
	assert.Equal(t, model.OrderStatusConfirmed, history[0].NewStatus)
	assert.Equal(t, actor, *history[0].ChangedByID)

	// buyer notified on update
	notifications := enq.tasksOfType(shared.TypeDispatchNotification)
	require.Len(t, notifications, 1)
	var payload shared.DispatchNotificationPayload
	require.NoError(t, json.Unmarshal(notifications[0].Payload(), &payload))
	assert.Equal(t, *order.BuyerID, payload.UserID)
	assert.Equal(t, "order_update", payload.NotificationType)
}

func TestChangeStatus_CompletedSetsTimestamp(t *testing.T) {
	repo, _, svc := newTestService()
	order := seedOrder(repo, model.OrderStatusDelivered)

	updated, err := svc.ChangeStatus(context.Background(), order.ID, uuid.New(), model.ChangeStatusRequest{Status: model.OrderStatusCompleted})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
	assert.WithinDuration(t, time.Now(), *updated.CompletedAt, time.Second)
}

func TestChangeStatus_TerminalStatusRejected(t *testing.T) {
	repo, _, svc := newTestService()
	for _, terminal := range []string{model.OrderStatusCompleted, model.OrderStatusCancelled} {
		order := seedOrder(repo, terminal)
		_, err := svc.ChangeStatus(context.Background(), order.ID, uuid.New(), model.ChangeStatusRequest{Status: model.OrderStatusConfirmed})
		var orderErr *model.OrderError
		require.ErrorAs(t, err, &orderErr)
		assert.Equal(t, model.ErrCodeTerminalStatus, orderErr.Code)
	}
}

func TestChangeStatus_CancelledReachableFromAnyNonTerminal(t *testing.T) {
	repo, _, svc := newTestService()
	for _, from := range []string{
		model.OrderStatusCreated, model.OrderStatusConfirmed, model.OrderStatusPickupScheduled,
		model.OrderStatusPickedUp, model.OrderStatusInTransit, model.OrderStatusDelivered,
	} {
		order := seedOrder(repo, from)
		updated, err := svc.ChangeStatus(context.Background(), order.ID, uuid.New(), model.ChangeStatusRequest{Status: model.OrderStatusCancelled})
		require.NoError(t, err, "from %s", from)
		assert.Equal(t, model.OrderStatusCancelled, updated.Status)
	}
}

func TestChangeStatus_InvalidStatusLeavesOrderUntouched(t *testing.T) {
	repo, _, svc := newTestService()
	order := seedOrder(repo, model.OrderStatusCreated)

	_, err := svc.ChangeStatus(context.Background(), order.ID, uuid.New(), model.ChangeStatusRequest{Status: "shipped"})
	require.Error(t, err)

	stored, _ := repo.GetOrderByID(context.Background(), order.ID)
	assert.Equal(t, model.OrderStatusCreated, stored.Status)
	history, _ := repo.ListHistory(context.Background(), order.ID)
	assert.Empty(t, history)
}

func TestChangeStatus_SameStatusIsNoOp(t *testing.T) {
	repo, enq, svc := newTestService()
	order := seedOrder(repo, model.OrderStatusConfirmed)

	updated, err := svc.ChangeStatus(context.Background(), order.ID, uuid.New(), model.ChangeStatusRequest{Status: model.OrderStatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, updated.Status)

	history, _ := repo.ListHistory(context.Background(), order.ID)
	assert.Empty(t, history)
	assert.Empty(t, enq.tasks)
}

// Concurrent transitions must serialize so history forms a chain: each
// entry's previous status equals the prior entry's new status.
func TestChangeStatus_ConcurrentTransitionsKeepHistoryChained(t *testing.T) {
	repo, _, svc := newTestService()
	order := seedOrder(repo, model.OrderStatusCreated)

	statuses := []string{model.OrderStatusConfirmed, model.OrderStatusPickupScheduled, model.OrderStatusPickedUp}
	var wg sync.WaitGroup
	for _, status := range statuses {
		wg.Add(1)
		go func(s string) {
			defer wg.Done()
			svc.ChangeStatus(context.Background(), order.ID, uuid.New(), model.ChangeStatusRequest{Status: s})
		}(status)
	}
	wg.Wait()

	history, _ := repo.ListHistory(context.Background(), order.ID)
	require.Len(t, history, len(statuses))
	prev := model.OrderStatusCreated
	for i, entry := range history {
		require.NotNil(t, entry.PreviousStatus)
		assert.Equal(t, prev, *entry.PreviousStatus, "entry %d", i)
		prev = entry.NewStatus
	}

	stored, _ := repo.GetOrderByID(context.Background(), order.ID)
	assert.Equal(t, prev, stored.Status)
}
