// Package handler provides the gin HTTP handlers of the discovery API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reelhub/discovery/internal/db"
	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/internal/ranking"
	"github.com/reelhub/discovery/internal/service"
	"github.com/reelhub/discovery/pkg/logger"
)

// Engine is the subset of the discovery engine the HTTP layer drives.
type Engine interface {
	GetFeed(ctx context.Context, name string, filters service.FeedFilters, page, limit int) (*ranking.Page, error)
	ListVideos(ctx context.Context, filters service.FeedFilters, page, limit int) (*ranking.Page, error)
	Search(ctx context.Context, q string, page, limit int) (*service.SearchResult, error)
	GetRelated(ctx context.Context, id int64, limit int) ([]*models.Video, error)
	GetVideo(ctx context.Context, id int64) (*models.Video, error)
	VideoStats(ctx context.Context, id int64) (*models.VideoStats, error)
	GeneralStats(ctx context.Context) (*models.GeneralStats, error)
	Suggestions(ctx context.Context, q string, limit int) ([]models.Suggestion, error)
	PopularTags(ctx context.Context, limit int) ([]models.TagCount, error)
	RegisterView(ctx context.Context, id int64) (int64, error)
	RegisterLike(ctx context.Context, id int64) (int64, error)
	UnregisterLike(ctx context.Context, id int64) (int64, error)
	BatchRegisterViews(ctx context.Context, deltas []models.ViewDelta) ([]models.ViewUpdateResult, error)
	CreateVideo(ctx context.Context, video *models.Video) error
	RebuildTagIndex(ctx context.Context) (int, error)
}

func errorBody(c *gin.Context, status int, message string) models.ErrorResponse {
	return models.ErrorResponse{
		Timestamp: time.Now(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      c.Request.URL.Path,
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody(c, http.StatusBadRequest, message))
}

// handleError maps engine errors onto HTTP statuses. Invalid input and
// rejected sort keys are the caller's fault; a missing video is a 404;
// everything else is reported without internals.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrInvalidInput), errors.Is(err, ranking.ErrInvalidSortKey):
		logger.Log.Warn("Validation error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		badRequest(c, err.Error())
	case db.IsNotFound(err):
		c.JSON(http.StatusNotFound, errorBody(c, http.StatusNotFound, "video not found"))
	case errors.Is(err, context.Canceled):
		logger.Log.Debug("Request canceled", zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusServiceUnavailable, errorBody(c, http.StatusServiceUnavailable, "request canceled"))
	default:
		logger.Log.Error("Unexpected error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusInternalServerError, errorBody(c, http.StatusInternalServerError, "An unexpected error occurred"))
	}
}

// queryInt reads an integer query parameter. Missing or malformed values
// yield 0, which the engine treats as "use the default".
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return n
}

// pageParam normalizes the page number to at least 1.
func pageParam(c *gin.Context) int {
	return max(queryInt(c, "page"), 1)
}

func optionalInt(c *gin.Context, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New("invalid integer value for " + key)
	}
	return &n, nil
}

func optionalInt64(c *gin.Context, key string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.New("invalid integer value for " + key)
	}
	return &n, nil
}

// optionalDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates.
func optionalDate(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("invalid date for " + key + " (expected RFC3339 or YYYY-MM-DD)")
}

func videoID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid video id")
		return 0, false
	}
	return id, true
}
