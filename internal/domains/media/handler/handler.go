package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace-backend/internal/domains/media/model"
	"marketplace-backend/internal/domains/media/service"
	"marketplace-backend/internal/shared/middleware"
	"marketplace-backend/internal/shared/response"
)

// =====================================================
// MEDIA HANDLER
// =====================================================
type MediaHandler struct {
	mediaService service.MediaService
}

func NewMediaHandler(mediaService service.MediaService) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
	}
}

func (h *MediaHandler) RegisterRoutes(router *gin.RouterGroup) {
	media := router.Group("/media")
	{
		media.POST("", h.Register)      // POST /v1/media
		media.GET("/:id", h.GetStatus)  // GET /v1/media/:id
	}
}

// Register records the uploaded media and queues image post-processing.
// Returns 202: processing happens out of band.
func (h *MediaHandler) Register(c *gin.Context) {
	actorID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	var req model.RegisterMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	resp, err := h.mediaService.RegisterMedia(c.Request.Context(), actorID, middleware.GetRole(c), req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrProductNotFound):
			response.NotFound(c, "Product not found")
		case errors.Is(err, model.ErrNotProductOwner):
			response.Forbidden(c, "Media can only be registered by the product's seller")
		default:
			response.BadRequest(c, err.Error())
		}
		return
	}

	response.SuccessWithMessage(c, http.StatusAccepted, "Media registered", resp)
}

func (h *MediaHandler) GetStatus(c *gin.Context) {
	mediaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid media id")
		return
	}

	resp, err := h.mediaService.GetStatus(c.Request.Context(), mediaID)
	if err != nil {
		if errors.Is(err, model.ErrMediaNotFound) || errors.Is(err, model.ErrProcessedNotFound) {
			response.NotFound(c, "Media not found")
			return
		}
		response.InternalServerError(c, "Failed to load media status")
		return
	}

	response.Success(c, http.StatusOK, resp)
}
