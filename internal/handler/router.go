package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/reelhub/discovery/internal/metrics"
	"github.com/reelhub/discovery/internal/middleware"
)

// RouterConfig collects the dependencies of the HTTP API. Publisher and
// Queue are optional.
type RouterConfig struct {
	Engine    Engine
	Store     Pinger
	Publisher HealthChecker
	Queue     TagIndexEnqueuer
	Metrics   *metrics.Metrics
	APIKeys   []string
}

// NewRouter wires every route of the discovery API onto a gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.AccessLog(cfg.Metrics))

	health := NewHealthHandler(cfg.Store, cfg.Publisher)
	feeds := NewFeedHandler(cfg.Engine)
	videos := NewVideoHandler(cfg.Engine)
	admin := NewAdminHandler(cfg.Engine, cfg.Queue)

	router.GET("/health/live", health.LivenessProbe)
	router.GET("/health/ready", health.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/feed/:strategy", feeds.GetFeed)
		api.GET("/search", feeds.Search)
		api.GET("/search/suggestions", feeds.Suggestions)
		api.GET("/tags/popular", feeds.PopularTags)
		api.GET("/stats", videos.GeneralStats)

		api.GET("/videos/:id", videos.GetVideo)
		api.GET("/videos/:id/related", videos.GetRelated)
		api.GET("/videos/:id/stats", videos.GetStats)
		api.POST("/videos/:id/view", videos.RegisterView)
		api.POST("/videos/:id/like", videos.RegisterLike)
		api.DELETE("/videos/:id/like", videos.UnregisterLike)
	}

	protected := api.Group("/admin", middleware.NewAPIKeyAuth(cfg.APIKeys).Handler())
	{
		protected.GET("/videos", admin.ListVideos)
		protected.POST("/videos", admin.CreateVideo)
		protected.POST("/videos/views/batch", admin.BatchViews)
		protected.POST("/tags/rebuild", admin.RebuildTags)
	}

	return router
}
