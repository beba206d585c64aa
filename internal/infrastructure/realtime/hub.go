package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	notifModel "marketplace-backend/internal/domains/notification/model"
	"marketplace-backend/internal/shared/middleware"
	"marketplace-backend/pkg/logger"
)

const (
	writeTimeout = 10 * time.Second
	maxMsgSize   = 4 * 1024
)

// NotificationReader is the slice of the notification service the hub
// needs for the connect greeting and the mark-read protocol.
type NotificationReader interface {
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error
}

type clientMessage struct {
	Type           string    `json:"type"`
	NotificationID uuid.UUID `json:"notification_id"`
}

// =====================================================
// HUB
// =====================================================
// Hub keeps the per-user connection registry. A user may hold several
// connections at once (multiple tabs/devices); a push goes to all of them.
type Hub struct {
	mu            sync.RWMutex
	writeMu       sync.Mutex // gorilla allows one concurrent writer per conn
	connections   map[uuid.UUID]map[*websocket.Conn]bool
	notifications NotificationReader
	upgrader      websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// SetNotificationService breaks the construction cycle: the notification
// service pushes through the hub, the hub reads counts from the service.
func (h *Hub) SetNotificationService(ns NotificationReader) {
	h.notifications = ns
}

// =====================================================
// CONNECTION LIFECYCLE
// =====================================================

// HandleWS upgrades an authenticated request and serves the connection
// until the client goes away. Registered on GET /v1/ws/notifications.
func (h *Hub) HandleWS(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"code": "UNAUTHORIZED", "message": "authentication required"}})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Websocket upgrade failed", err)
		return
	}

	h.register(userID, conn)
	defer h.unregister(userID, conn)

	h.sendGreeting(c.Request.Context(), userID, conn)
	h.readLoop(userID, conn)
}

func (h *Hub) register(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connections[userID] == nil {
		h.connections[userID] = make(map[*websocket.Conn]bool)
	}
	h.connections[userID][conn] = true
}

func (h *Hub) unregister(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections[userID], conn)
	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
	}
	conn.Close()
}

// sendGreeting reports the current unread count as the first message on
// every new connection.
func (h *Hub) sendGreeting(ctx context.Context, userID uuid.UUID, conn *websocket.Conn) {
	count, err := h.notifications.UnreadCount(ctx, userID)
	if err != nil {
		logger.Error("Failed to load unread count for greeting", err)
		return
	}
	h.write(conn, map[string]interface{}{
		"type":         "unread_count",
		"unread_count": count,
	})
}

// =====================================================
// CLIENT PROTOCOL
// =====================================================
// Clients may ask to mark a notification read over the socket. Ownership
// is validated before mutating and the reply echoes the notification id.

func (h *Hub) readLoop(userID uuid.UUID, conn *websocket.Conn) {
	conn.SetReadLimit(maxMsgSize)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.write(conn, map[string]interface{}{
				"type":    "error",
				"message": "invalid message",
			})
			continue
		}

		switch msg.Type {
		case "mark_read":
			h.handleMarkRead(userID, conn, msg.NotificationID)
		default:
			h.write(conn, map[string]interface{}{
				"type":    "error",
				"message": "unknown message type",
			})
		}
	}
}

func (h *Hub) handleMarkRead(userID uuid.UUID, conn *websocket.Conn, notificationID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := h.notifications.MarkRead(ctx, notificationID, userID)
	resp := map[string]interface{}{
		"type":            "mark_read_response",
		"notification_id": notificationID.String(),
		"success":         err == nil,
	}
	if err != nil {
		switch err {
		case notifModel.ErrNotificationNotFound:
			resp["error"] = "not_found"
		case notifModel.ErrNotOwner:
			resp["error"] = "forbidden"
		default:
			resp["error"] = "internal"
		}
	}
	h.write(conn, resp)
}

// =====================================================
// PUSH
// =====================================================

// PushToUser delivers a payload to every active connection of one user.
// Dead connections are dropped from the registry; a user with no
// connections is not an error.
func (h *Hub) PushToUser(userID uuid.UUID, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.connections[userID]))
	for conn := range h.connections[userID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := h.writeRaw(conn, data); err != nil {
			h.unregister(userID, conn)
		}
	}

	return nil
}

func (h *Hub) write(conn *websocket.Conn, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := h.writeRaw(conn, data); err != nil {
		logger.Error("Websocket write failed", err)
	}
}

func (h *Hub) writeRaw(conn *websocket.Conn, data []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
