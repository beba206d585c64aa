package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace-backend/internal/domains/coupon/model"
	"marketplace-backend/internal/domains/coupon/service"
	"marketplace-backend/internal/shared/middleware"
	"marketplace-backend/internal/shared/response"
)

// =====================================================
// COUPON HANDLER
// =====================================================
type CouponHandler struct {
	couponService service.CouponService
}

func NewCouponHandler(couponService service.CouponService) *CouponHandler {
	return &CouponHandler{
		couponService: couponService,
	}
}

// =====================================================
// ROUTES REGISTRATION
// =====================================================

func (h *CouponHandler) RegisterRoutes(router *gin.RouterGroup) {
	coupons := router.Group("/coupons")
	{
		coupons.GET("/active", h.ListActive) // GET /v1/coupons/active
		coupons.POST("/redeem", h.Redeem)    // POST /v1/coupons/redeem
	}

	admin := router.Group("/admin/coupons")
	admin.Use(middleware.AdminMiddleware())
	{
		admin.POST("", h.CreateCoupon)                 // POST /v1/admin/coupons
		admin.GET("", h.ListCoupons)                   // GET  /v1/admin/coupons
		admin.GET("/:id", h.GetCoupon)                 // GET  /v1/admin/coupons/:id
		admin.POST("/:id/recompute", h.RecomputeUsage) // POST /v1/admin/coupons/:id/recompute
	}
}

// =====================================================
// HANDLERS
// =====================================================

func (h *CouponHandler) ListActive(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	coupons, err := h.couponService.ListActiveForUser(c.Request.Context(), userID)
	if err != nil {
		response.InternalServerError(c, "Failed to list coupons")
		return
	}

	response.Success(c, http.StatusOK, coupons)
}

func (h *CouponHandler) Redeem(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	var req model.RedeemCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.BadRequest(c, "Coupon code is required")
		return
	}

	resp, err := h.couponService.Redeem(c.Request.Context(), userID, req.Code)
	if err != nil {
		h.writeCouponError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Coupon redeemed", resp)
}

func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var req model.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	coupon, err := h.couponService.CreateCoupon(c.Request.Context(), req)
	if err != nil {
		h.writeCouponError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, "Coupon created", coupon)
}

func (h *CouponHandler) ListCoupons(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	coupons, err := h.couponService.ListCoupons(c.Request.Context(), limit, offset)
	if err != nil {
		response.InternalServerError(c, "Failed to list coupons")
		return
	}

	response.Success(c, http.StatusOK, coupons)
}

func (h *CouponHandler) GetCoupon(c *gin.Context) {
	couponID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid coupon id")
		return
	}

	coupon, err := h.couponService.GetCoupon(c.Request.Context(), couponID)
	if err != nil {
		h.writeCouponError(c, err)
		return
	}

	response.Success(c, http.StatusOK, coupon)
}

func (h *CouponHandler) RecomputeUsage(c *gin.Context) {
	couponID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid coupon id")
		return
	}

	count, err := h.couponService.RecomputeUsage(c.Request.Context(), couponID)
	if err != nil {
		h.writeCouponError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"used_count": count})
}

// writeCouponError maps service errors onto the HTTP envelope. Redemption
// conflicts keep their machine-readable reason codes.
func (h *CouponHandler) writeCouponError(c *gin.Context, err error) {
	var couponErr *model.CouponError
	if !errors.As(err, &couponErr) {
		if errors.Is(err, model.ErrCouponNotFound) {
			response.NotFound(c, "Coupon not found")
			return
		}
		response.InternalServerError(c, "Unexpected error")
		return
	}

	switch couponErr.Code {
	case model.ErrCodeCouponNotFound:
		response.NotFound(c, couponErr.Message)
	case model.ErrCodeDuplicateCode:
		response.ErrorResponse(c, 409, couponErr.Code, couponErr.Message)
	default:
		response.ErrorResponse(c, 400, couponErr.Code, couponErr.Message)
	}
}
