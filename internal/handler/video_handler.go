package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/internal/service"
	"github.com/reelhub/discovery/pkg/logger"
)

// VideoHandler serves single-video reads and the counter endpoints.
type VideoHandler struct {
	engine Engine
}

// NewVideoHandler creates a new VideoHandler instance.
func NewVideoHandler(engine Engine) *VideoHandler {
	return &VideoHandler{engine: engine}
}

// GetVideo handles GET /api/v1/videos/:id.
func (h *VideoHandler) GetVideo(c *gin.Context) {
	id, ok := videoID(c)
	if !ok {
		return
	}

	video, err := h.engine.GetVideo(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, video)
}

// GetRelated handles GET /api/v1/videos/:id/related.
func (h *VideoHandler) GetRelated(c *gin.Context) {
	id, ok := videoID(c)
	if !ok {
		return
	}

	videos, err := h.engine.GetRelated(c.Request.Context(), id, queryInt(c, "limit"))
	if err != nil {
		handleError(c, err)
		return
	}
	if videos == nil {
		videos = []*models.Video{}
	}

	c.JSON(http.StatusOK, gin.H{"videoId": id, "items": videos})
}

// GetStats handles GET /api/v1/videos/:id/stats.
func (h *VideoHandler) GetStats(c *gin.Context) {
	id, ok := videoID(c)
	if !ok {
		return
	}

	stats, err := h.engine.VideoStats(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GeneralStats handles GET /api/v1/stats.
func (h *VideoHandler) GeneralStats(c *gin.Context) {
	stats, err := h.engine.GeneralStats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// RegisterView handles POST /api/v1/videos/:id/view.
func (h *VideoHandler) RegisterView(c *gin.Context) {
	h.counter(c, h.engine.RegisterView, func(id, n int64) models.CounterResponseDTO {
		return models.CounterResponseDTO{VideoID: id, Views: &n}
	})
}

// RegisterLike handles POST /api/v1/videos/:id/like.
func (h *VideoHandler) RegisterLike(c *gin.Context) {
	h.counter(c, h.engine.RegisterLike, likesResponse)
}

// UnregisterLike handles DELETE /api/v1/videos/:id/like.
func (h *VideoHandler) UnregisterLike(c *gin.Context) {
	h.counter(c, h.engine.UnregisterLike, likesResponse)
}

func likesResponse(id, n int64) models.CounterResponseDTO {
	return models.CounterResponseDTO{VideoID: id, Likes: &n}
}

func (h *VideoHandler) counter(
	c *gin.Context,
	update func(ctx context.Context, id int64) (int64, error),
	respond func(id, n int64) models.CounterResponseDTO,
) {
	id, ok := videoID(c)
	if !ok {
		return
	}

	ctx := service.WithClient(c.Request.Context(), c.ClientIP(), c.GetHeader("User-Agent"))
	n, err := update(ctx, id)
	if err != nil {
		handleError(c, err)
		return
	}

	logger.Log.Debug("Counter updated",
		zap.Int64("videoId", id),
		zap.Int64("value", n),
		zap.String("path", c.FullPath()),
	)
	c.JSON(http.StatusOK, respond(id, n))
}
