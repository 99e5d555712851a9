package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/internal/service"
	"github.com/reelhub/discovery/pkg/logger"
)

// TagIndexEnqueuer schedules a tag index rebuild on the background queue.
type TagIndexEnqueuer interface {
	EnqueueTagIndexRebuild(ctx context.Context, reason string) (string, error)
}

// CreateVideoRequest is the body of POST /api/v1/admin/videos.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CreateVideoRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	Tags          string `json:"tags"`
	Thumbnail     string `json:"thumbnail"`
	Duration      int    `json:"duration" binding:"required,gte=1"`
	CategoryID    *int64 `json:"category_id"`
	SeriesID      *int64 `json:"series_id"`
	EpisodeNumber *int   `json:"episode_number"`
	Status        string `json:"status"`
}

// BatchViewsRequest is the body of POST /api/v1/admin/videos/views/batch.
type BatchViewsRequest struct {
	Updates []models.ViewDelta `json:"updates" binding:"required,min=1,dive"`
}

// AdminHandler serves the API-key protected administration endpoints.
type AdminHandler struct {
	engine Engine
	queue  TagIndexEnqueuer
}

// NewAdminHandler creates a new AdminHandler instance. A nil queue makes tag
// index rebuilds run inline.
func NewAdminHandler(engine Engine, queue TagIndexEnqueuer) *AdminHandler {
	return &AdminHandler{engine: engine, queue: queue}
}

// ListVideos handles GET /api/v1/admin/videos. Unlike the public feeds it
// returns videos in every status.
func (h *AdminHandler) ListVideos(c *gin.Context) {
	filters := service.FeedFilters{
		Query:     c.Query("q"),
		Status:    c.Query("status"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}

	var err error
	if filters.CategoryID, err = optionalInt64(c, "categoryId"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if filters.SeriesID, err = optionalInt64(c, "seriesId"); err != nil {
		badRequest(c, err.Error())
		return
	}

	page, err := h.engine.ListVideos(c.Request.Context(), filters, pageParam(c), queryInt(c, "limit"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// CreateVideo handles POST /api/v1/admin/videos.
func (h *AdminHandler) CreateVideo(c *gin.Context) {
	var req CreateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	video := models.NewVideo(req.Title, req.Description, req.Tags, req.Duration)
	video.Thumbnail = req.Thumbnail
	video.CategoryID = req.CategoryID
	video.SeriesID = req.SeriesID
	video.EpisodeNumber = req.EpisodeNumber
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			badRequest(c, "unknown status "+raw)
			return
		}
		video.Status = status
	}

	if err := h.engine.CreateVideo(c.Request.Context(), video); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, video)
}

// BatchViews handles POST /api/v1/admin/videos/views/batch. Rows fail
// independently; the response lists the outcome of each one.
func (h *AdminHandler) BatchViews(c *gin.Context) {
	var req BatchViewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	results, err := h.engine.BatchRegisterViews(c.Request.Context(), req.Updates)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// RebuildTags handles POST /api/v1/admin/tags/rebuild.
func (h *AdminHandler) RebuildTags(c *gin.Context) {
	ctx := c.Request.Context()

	if h.queue != nil {
		taskID, err := h.queue.EnqueueTagIndexRebuild(ctx, "admin")
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status": "queued",
			"taskId": taskID,
			"time":   time.Now(),
		})
		return
	}

	n, err := h.engine.RebuildTagIndex(ctx)
	if err != nil {
		handleError(c, err)
		return
	}

	logger.Log.Info("Tag index rebuilt inline", zap.Int("tags", n))
	c.JSON(http.StatusOK, gin.H{
		"status": "rebuilt",
		"tags":   n,
		"time":   time.Now(),
	})
}
