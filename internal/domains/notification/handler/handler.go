package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace-backend/internal/domains/notification/model"
	"marketplace-backend/internal/domains/notification/service"
	"marketplace-backend/internal/shared/middleware"
	"marketplace-backend/internal/shared/response"
)

// =====================================================
// NOTIFICATION HANDLER
// =====================================================
type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// =====================================================
// ROUTES REGISTRATION
// =====================================================

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/notifications")
	{
		notifications.GET("", h.List)                     // GET /v1/notifications?unread=true
		notifications.GET("/unread-count", h.UnreadCount) // GET /v1/notifications/unread-count
		notifications.PATCH("/:id/read", h.MarkRead)      // PATCH /v1/notifications/:id/read
		notifications.PATCH("/read-all", h.MarkAllRead)   // PATCH /v1/notifications/read-all
	}
}

// =====================================================
// HANDLERS
// =====================================================

func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	unreadOnly := c.Query("unread") == "true"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := h.notificationService.List(c.Request.Context(), userID, unreadOnly, limit, offset)
	if err != nil {
		response.InternalServerError(c, "Failed to list notifications")
		return
	}

	response.Success(c, http.StatusOK, notifications)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.InternalServerError(c, "Failed to count notifications")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unread_count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid notification id")
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), notificationID, userID); err != nil {
		switch {
		case errors.Is(err, model.ErrNotificationNotFound):
			response.NotFound(c, "Notification not found")
		case errors.Is(err, model.ErrNotOwner):
			response.Forbidden(c, "Notification does not belong to you")
		default:
			response.InternalServerError(c, "Failed to mark notification read")
		}
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Notification marked read", nil)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	affected, err := h.notificationService.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		response.InternalServerError(c, "Failed to mark notifications read")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"marked": affected})
}
