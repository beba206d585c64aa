package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace-backend/internal/domains/order/model"
	"marketplace-backend/internal/domains/order/service"
	"marketplace-backend/internal/shared/middleware"
	"marketplace-backend/internal/shared/response"
)

// =====================================================
// ORDER HANDLER
// =====================================================
type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// =====================================================
// ROUTES REGISTRATION
// =====================================================

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/orders")
	{
		orders.POST("", h.CreateOrder)       // POST /v1/orders
		orders.GET("", h.ListOrders)         // GET /v1/orders?role=buyer&status=created&limit=20&offset=0
		orders.GET("/:id", h.GetOrderDetail) // GET /v1/orders/:id

		// Status transitions are an operations/admin action; buyers and
		// sellers read the result through the detail endpoint.
		orders.PATCH("/:id/status", middleware.AdminMiddleware(), h.ChangeStatus) // PATCH /v1/orders/:id/status
	}
}

// =====================================================
// HANDLERS
// =====================================================

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actorID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	var req model.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	resp, err := h.orderService.CreateOrder(c.Request.Context(), actorID, req)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, "Order created", resp)
}

func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	actorID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order id")
		return
	}

	var req model.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	order, err := h.orderService.ChangeStatus(c.Request.Context(), orderID, actorID, req)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, order)
}

func (h *OrderHandler) GetOrderDetail(c *gin.Context) {
	actorID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order id")
		return
	}

	detail, err := h.orderService.GetOrder(c.Request.Context(), orderID, actorID, middleware.GetRole(c))
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	actorID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	status := c.Query("status")

	var (
		items []model.OrderListItem
		err   error
	)
	if c.DefaultQuery("role", "buyer") == "seller" {
		items, err = h.orderService.ListOrdersForSeller(c.Request.Context(), actorID, status, limit, offset)
	} else {
		items, err = h.orderService.ListOrdersForBuyer(c.Request.Context(), actorID, status, limit, offset)
	}
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, items)
}

// writeOrderError maps service errors onto the HTTP envelope.
func (h *OrderHandler) writeOrderError(c *gin.Context, err error) {
	var orderErr *model.OrderError
	if !errors.As(err, &orderErr) {
		response.InternalServerError(c, "Unexpected error")
		return
	}

	switch orderErr.Code {
	case model.ErrCodeOrderNotFound:
		response.NotFound(c, orderErr.Message)
	case model.ErrCodeUnauthorized:
		response.Forbidden(c, orderErr.Message)
	case model.ErrCodeTerminalStatus, model.ErrCodeSameStatus:
		response.ErrorResponse(c, 409, orderErr.Code, orderErr.Message)
	default:
		response.ErrorResponse(c, 400, orderErr.Code, orderErr.Message)
	}
}
