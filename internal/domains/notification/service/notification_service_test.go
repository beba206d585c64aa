package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-backend/internal/domains/notification/model"
	userModel "marketplace-backend/internal/domains/user/model"
	"marketplace-backend/internal/shared"
)

// =====================================================
// FAKES
// =====================================================

type fakeNotificationRepo struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]*model.Notification
	createErr   error
	countCalled int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{byID: make(map[uuid.UUID]*model.Notification)}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	cp := *n
	r.byID[n.ID] = &cp
	return nil
}

func (r *fakeNotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return nil, model.ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.byID {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countCalled++
	count := 0
	for _, n := range r.byID {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return model.ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected int64
	for _, n := range r.byID {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			affected++
		}
	}
	return affected, nil
}

func (r *fakeNotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, n := range r.byID {
		if n.CreatedAt.Before(cutoff) {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

// fakeCache is a map-backed cache.Cache with JSON round-tripping so the
// Get-into-dest contract matches the Redis implementation.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
		c.deleted = append(c.deleted, key)
	}
	return nil
}

func (c *fakeCache) Increment(ctx context.Context, key string) (int64, error) { return 0, nil }
func (c *fakeCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}
func (c *fakeCache) Ping(ctx context.Context) error { return nil }

type fakePusher struct {
	mu       sync.Mutex
	payloads []interface{}
	err      error
}

func (p *fakePusher) PushToUser(userID uuid.UUID, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return p.err
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []string // "to|subject"
	err  error
}

func (e *fakeEmailSender) Send(to, subject, body string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, to+"|"+subject)
	return e.err
}

type fakeUserRepo struct {
	users map[uuid.UUID]*userModel.User
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*userModel.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func (r *fakeUserRepo) ListAdmins(ctx context.Context) ([]userModel.User, error) {
	return nil, nil
}

// =====================================================
// HELPERS
// =====================================================

type testDeps struct {
	repo   *fakeNotificationRepo
	cache  *fakeCache
	pusher *fakePusher
	email  *fakeEmailSender
	users  *fakeUserRepo
}

func newTestNotificationService() (NotificationService, *testDeps) {
	deps := &testDeps{
		repo:   newFakeNotificationRepo(),
		cache:  newFakeCache(),
		pusher: &fakePusher{},
		email:  &fakeEmailSender{},
		users:  &fakeUserRepo{users: make(map[uuid.UUID]*userModel.User)},
	}
	svc := NewNotificationService(deps.repo, deps.users, deps.cache, deps.pusher, deps.email)
	return svc, deps
}

func dispatchPayload(userID uuid.UUID, notifType string) shared.DispatchNotificationPayload {
	return shared.DispatchNotificationPayload{
		UserID:           userID,
		Title:            "Test title",
		Message:          "Test message",
		NotificationType: notifType,
	}
}

// =====================================================
// DISPATCH
// =====================================================

func TestNotify_PersistsAndPushes(t *testing.T) {
	svc, deps := newTestNotificationService()
	userID := uuid.New()

	n, err := svc.Notify(context.Background(), dispatchPayload(userID, model.TypeOrderUpdate))
	require.NoError(t, err)
	require.NotNil(t, n)

	stored, err := deps.repo.GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, stored.UserID)
	assert.False(t, stored.IsRead)

	require.Len(t, deps.pusher.payloads, 1)
	pushed, ok := deps.pusher.payloads[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "notification", pushed["type"])

	// order updates are not emailed through this path
	assert.Empty(t, deps.email.sent)
}

func TestNotify_EmailsOnlyCouponExpiry(t *testing.T) {
	svc, deps := newTestNotificationService()
	userID := uuid.New()
	deps.users.users[userID] = &userModel.User{ID: userID, Email: "admin@example.com"}

	_, err := svc.Notify(context.Background(), dispatchPayload(userID, model.TypeCouponExpiry))
	require.NoError(t, err)

	require.Len(t, deps.email.sent, 1)
	assert.Equal(t, "admin@example.com|Test title", deps.email.sent[0])
}

func TestNotify_RejectsUnknownType(t *testing.T) {
	svc, deps := newTestNotificationService()

	_, err := svc.Notify(context.Background(), dispatchPayload(uuid.New(), "telepathy"))
	require.ErrorIs(t, err, model.ErrInvalidType)
	assert.Empty(t, deps.repo.byID)
	assert.Empty(t, deps.pusher.payloads)
}

// Channel isolation: a dead websocket and a broken SMTP relay must not
// fail the dispatch once the row is persisted.
func TestNotify_ChannelFailuresDoNotPropagate(t *testing.T) {
	svc, deps := newTestNotificationService()
	userID := uuid.New()
	deps.users.users[userID] = &userModel.User{ID: userID, Email: "admin@example.com"}
	deps.pusher.err = errors.New("connection reset")
	deps.email.err = errors.New("smtp 554")

	n, err := svc.Notify(context.Background(), dispatchPayload(userID, model.TypeCouponExpiry))
	require.NoError(t, err)

	_, err = deps.repo.GetByID(context.Background(), n.ID)
	assert.NoError(t, err)
}

func TestNotify_PersistFailureReturnsError(t *testing.T) {
	svc, deps := newTestNotificationService()
	deps.repo.createErr = errors.New("db down")

	_, err := svc.Notify(context.Background(), dispatchPayload(uuid.New(), model.TypeSystem))
	require.Error(t, err)
	assert.Empty(t, deps.pusher.payloads)
}

// =====================================================
// UNREAD COUNT CACHE
// =====================================================

func TestUnreadCount_CachesAndInvalidates(t *testing.T) {
	svc, deps := newTestNotificationService()
	userID := uuid.New()

	n, err := svc.Notify(context.Background(), dispatchPayload(userID, model.TypeSystem))
	require.NoError(t, err)

	count, err := svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, deps.repo.countCalled)

	// second read served from cache
	count, err = svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, deps.repo.countCalled)

	// marking read invalidates, the next read goes back to the repo
	require.NoError(t, svc.MarkRead(context.Background(), n.ID, userID))
	count, err = svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 2, deps.repo.countCalled)
}

// =====================================================
// READ FLAG
// =====================================================

func TestMarkRead_OwnershipAndIdempotency(t *testing.T) {
	svc, deps := newTestNotificationService()
	owner, stranger := uuid.New(), uuid.New()

	n, err := svc.Notify(context.Background(), dispatchPayload(owner, model.TypeOrderNew))
	require.NoError(t, err)

	err = svc.MarkRead(context.Background(), n.ID, stranger)
	require.ErrorIs(t, err, model.ErrNotOwner)

	stored, _ := deps.repo.GetByID(context.Background(), n.ID)
	assert.False(t, stored.IsRead)

	require.NoError(t, svc.MarkRead(context.Background(), n.ID, owner))
	// already read: still a success
	require.NoError(t, svc.MarkRead(context.Background(), n.ID, owner))

	err = svc.MarkRead(context.Background(), uuid.New(), owner)
	require.ErrorIs(t, err, model.ErrNotificationNotFound)
}

func TestMarkAllRead_ReportsAffected(t *testing.T) {
	svc, _ := newTestNotificationService()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.Notify(context.Background(), dispatchPayload(userID, model.TypeSystem))
		require.NoError(t, err)
	}
	_, err := svc.Notify(context.Background(), dispatchPayload(uuid.New(), model.TypeSystem))
	require.NoError(t, err)

	affected, err := svc.MarkAllRead(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)

	count, err := svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// =====================================================
// RETENTION
// =====================================================

func TestCleanupOld_PurgesPastCutoff(t *testing.T) {
	svc, deps := newTestNotificationService()
	userID := uuid.New()

	old, err := svc.Notify(context.Background(), dispatchPayload(userID, model.TypeSystem))
	require.NoError(t, err)
	deps.repo.byID[old.ID].CreatedAt = time.Now().AddDate(0, 0, -45)

	_, err = svc.Notify(context.Background(), dispatchPayload(userID, model.TypeSystem))
	require.NoError(t, err)

	deleted, err := svc.CleanupOld(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := svc.List(context.Background(), userID, false, 50, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
