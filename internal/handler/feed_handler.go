package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/internal/service"
)

// FeedHandler serves the ranked feeds, search and discovery endpoints.
type FeedHandler struct {
	engine Engine
}

// NewFeedHandler creates a new FeedHandler instance.
func NewFeedHandler(engine Engine) *FeedHandler {
	return &FeedHandler{engine: engine}
}

// GetFeed handles GET /api/v1/feed/:strategy.
func (h *FeedHandler) GetFeed(c *gin.Context) {
	filters, err := publicFilters(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	page, err := h.engine.GetFeed(c.Request.Context(), c.Param("strategy"), filters, pageParam(c), queryInt(c, "limit"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// Search handles GET /api/v1/search?q=.
func (h *FeedHandler) Search(c *gin.Context) {
	ctx := service.WithClient(c.Request.Context(), c.ClientIP(), c.GetHeader("User-Agent"))
	result, err := h.engine.Search(ctx, c.Query("q"), pageParam(c), queryInt(c, "limit"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Suggestions handles GET /api/v1/search/suggestions?q=.
func (h *FeedHandler) Suggestions(c *gin.Context) {
	suggestions, err := h.engine.Suggestions(c.Request.Context(), c.Query("q"), queryInt(c, "limit"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// PopularTags handles GET /api/v1/tags/popular.
func (h *FeedHandler) PopularTags(c *gin.Context) {
	tags, err := h.engine.PopularTags(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// publicFilters reads every optional feed parameter. Strategies ignore the
// ones they do not use.
func publicFilters(c *gin.Context) (service.FeedFilters, error) {
	f := service.FeedFilters{
		Window:    c.Query("window"),
		Tag:       c.Query("tag"),
		Query:     c.Query("q"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if raw := c.Query("tags"); raw != "" {
		f.PreferredTags = models.SplitTags(raw)
	}

	var err error
	if f.MinDuration, err = optionalInt(c, "minDuration"); err != nil {
		return f, err
	}
	if f.MaxDuration, err = optionalInt(c, "maxDuration"); err != nil {
		return f, err
	}
	if f.MinViews, err = optionalInt64(c, "minViews"); err != nil {
		return f, err
	}
	if f.StartDate, err = optionalDate(c, "startDate"); err != nil {
		return f, err
	}
	if f.EndDate, err = optionalDate(c, "endDate"); err != nil {
		return f, err
	}
	return f, nil
}
