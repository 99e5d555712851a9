// Package service provides the ranking and retrieval engine: feed strategies,
// search, related videos, suggestions and the counter update path.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reelhub/discovery/internal/db"
	"github.com/reelhub/discovery/internal/db/repository"
	"github.com/reelhub/discovery/internal/metrics"
	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/internal/ranking"
	"github.com/reelhub/discovery/internal/tagindex"
	"github.com/reelhub/discovery/internal/validation"
	"github.com/reelhub/discovery/pkg/logger"
)

// Engine answers ranked, paginated queries against the video store and applies
// counter updates. It holds no per-request state.
type Engine struct {
	videos       repository.VideoRepository
	interactions repository.InteractionRepository
	recorder     InteractionLogger
	searches     repository.SearchLogRepository
	tags         tagindex.Index
	metrics      *metrics.Metrics
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder replaces the interaction logger. By default interactions are
// written to the interaction repository only.
func WithRecorder(recorder InteractionLogger) Option {
	return func(e *Engine) {
		e.recorder = recorder
	}
}

// WithSearchLog records every non-blank search query. Searches are not logged
// without it.
func WithSearchLog(searches repository.SearchLogRepository) Option {
	return func(e *Engine) {
		e.searches = searches
	}
}

// WithMetrics sets the collectors the engine records into.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock sets the time source for trending windows and retention cutoffs.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine.
func NewEngine(videos repository.VideoRepository, interactions repository.InteractionRepository, tags tagindex.Index, opts ...Option) *Engine {
	e := &Engine{
		videos:       videos,
		interactions: interactions,
		recorder:     interactions,
		tags:         tags,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SearchResult is a search page plus the query it answers.
type SearchResult struct {
	*ranking.Page
	Query        string `json:"query"`
	TotalResults int64  `json:"totalResults"`
}

// GetFeed runs the named public strategy and returns the requested page.
// Names are matched case-insensitively after trimming; admin-only strategies
// are reported as unknown.
func (e *Engine) GetFeed(ctx context.Context, name string, filters FeedFilters, page, limit int) (*ranking.Page, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	s, ok := strategies[name]
	if !ok || s.adminOnly {
		return nil, invalidf("unknown strategy %q", name)
	}
	return e.runStrategy(ctx, name, s, filters, page, limit)
}

// ListVideos returns the admin listing, which covers every status unless
// filters.Status narrows it.
func (e *Engine) ListVideos(ctx context.Context, filters FeedFilters, page, limit int) (*ranking.Page, error) {
	return e.runStrategy(ctx, StrategyAdmin, strategies[StrategyAdmin], filters, page, limit)
}

func (e *Engine) runStrategy(ctx context.Context, name string, s strategy, filters FeedFilters, page, limit int) (*ranking.Page, error) {
	p, err := s.build(filters, e.now())
	if err != nil {
		return nil, err
	}

	w := ranking.NewWindow(max(page, 1), s.limits.Clamp(limit))
	if p.empty {
		return ranking.NewPage(nil, w, 0), nil
	}

	return e.page(ctx, name, p.filter, p.order, w)
}

// Search returns published videos whose title, description or tags contain q,
// most relevant first. A blank query yields an empty result without touching
// the store.
func (e *Engine) Search(ctx context.Context, q string, page, limit int) (*SearchResult, error) {
	q = strings.TrimSpace(q)
	w := ranking.NewWindow(max(page, 1), ranking.BrowseLimits.Clamp(limit))

	if q == "" {
		return &SearchResult{Page: ranking.NewPage(nil, w, 0), Query: q}, nil
	}

	filter := ranking.Published().And(
		ranking.MatchAny(q, ranking.FieldTitle, ranking.FieldDescription, ranking.FieldTags),
	)
	order := ranking.Order{ranking.ByRelevance(q), ranking.Desc(ranking.SortEngagement)}

	p, err := e.page(ctx, "search", filter, order, w)
	if err != nil {
		return nil, err
	}

	e.logSearch(ctx, q, p.TotalCount)
	return &SearchResult{Page: p, Query: q, TotalResults: p.TotalCount}, nil
}

// logSearch records a served search. Failures are logged and dropped.
func (e *Engine) logSearch(ctx context.Context, q string, results int64) {
	if e.searches == nil {
		return
	}

	client := clientFrom(ctx)
	if err := e.searches.LogSearch(ctx, models.NewSearchQuery(q, results, client.ip, client.userAgent)); err != nil {
		e.metrics.SearchDropped()
		logger.Log.Warn("Failed to log search",
			zap.String("query", q),
			zap.Error(err),
		)
	}
}

// GetRelated returns published videos sharing at least one tag with the given
// video, by engagement. Videos without tags get a random sample instead.
func (e *Engine) GetRelated(ctx context.Context, id int64, limit int) ([]*models.Video, error) {
	start := time.Now()

	source, err := e.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}

	filter := ranking.Published().And(ranking.NotEq(ranking.FieldID, source.ID))
	order := ranking.Order{ranking.Asc(ranking.SortRandom)}
	if tags := source.TagList(); len(tags) > 0 {
		filter = filter.And(ranking.ContainsAny(ranking.FieldTags, tags...))
		order = ranking.Order{ranking.Desc(ranking.SortEngagement)}
	}

	videos, err := e.videos.Query(ctx, filter, order, 0, ranking.RelatedLimits.Clamp(limit))
	if err != nil {
		return nil, fmt.Errorf("related videos for %d: %w", id, err)
	}

	e.metrics.ObserveQuery("related", time.Since(start))
	return videos, nil
}

// GetVideo returns a published video. Unpublished videos are reported as not
// found.
func (e *Engine) GetVideo(ctx context.Context, id int64) (*models.Video, error) {
	if id <= 0 {
		return nil, invalidf("invalid video id %d", id)
	}

	video, err := e.videos.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !video.IsPublished() {
		return nil, fmt.Errorf("get video %d: %w", id, db.ErrNotFound)
	}
	return video, nil
}

// VideoStats returns the public counters of a published video.
func (e *Engine) VideoStats(ctx context.Context, id int64) (*models.VideoStats, error) {
	video, err := e.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.VideoStats{
		ID:        video.ID,
		Views:     video.Views,
		Likes:     video.Likes,
		Duration:  video.Duration,
		CreatedAt: video.CreatedAt,
	}, nil
}

// GeneralStats aggregates counters over published videos.
func (e *Engine) GeneralStats(ctx context.Context) (*models.GeneralStats, error) {
	return e.videos.Stats(ctx, ranking.Published())
}

// Suggestions returns autocomplete entries for q: up to half the limit (rounded
// down) from published titles by views, the rest from the tag index by count.
func (e *Engine) Suggestions(ctx context.Context, q string, limit int) ([]models.Suggestion, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.Suggestion{}, nil
	}

	limit = ranking.SuggestionLimits.Clamp(limit)
	titleLimit := limit / 2
	tagLimit := limit - titleLimit

	var titles, tags []models.Suggestion
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		titles, err = e.titleSuggestions(gctx, q, titleLimit)
		return err
	})
	g.Go(func() error {
		matched, err := e.tags.Match(gctx, q, tagLimit)
		if err != nil {
			return fmt.Errorf("tag suggestions: %w", err)
		}
		tags = make([]models.Suggestion, 0, len(matched))
		for _, tc := range matched {
			tags = append(tags, models.Suggestion{Suggestion: tc.Tag, Type: models.SuggestionTag, Count: tc.Count})
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := append(titles, tags...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// titleSuggestions reads a few extra rows so that duplicate titles can be
// dropped without starving the result.
func (e *Engine) titleSuggestions(ctx context.Context, q string, limit int) ([]models.Suggestion, error) {
	if limit <= 0 {
		return []models.Suggestion{}, nil
	}

	filter := ranking.Published().And(ranking.Contains(ranking.FieldTitle, q))
	videos, err := e.videos.Query(ctx, filter, ranking.Order{ranking.Desc(ranking.SortViews)}, 0, limit*3)
	if err != nil {
		return nil, fmt.Errorf("title suggestions: %w", err)
	}

	seen := make(map[string]struct{}, len(videos))
	out := make([]models.Suggestion, 0, limit)
	for _, v := range videos {
		if len(out) == limit {
			break
		}
		if _, dup := seen[v.Title]; dup {
			continue
		}
		seen[v.Title] = struct{}{}
		out = append(out, models.Suggestion{Suggestion: v.Title, Type: models.SuggestionTitle, Count: v.Views})
	}
	return out, nil
}

// PopularTags returns the most used tags across published videos.
func (e *Engine) PopularTags(ctx context.Context, limit int) ([]models.TagCount, error) {
	return e.tags.Top(ctx, ranking.TagLimits.Clamp(limit))
}

// RebuildTagIndex recomputes the tag index from the tags of published videos.
func (e *Engine) RebuildTagIndex(ctx context.Context) (int, error) {
	raw, err := e.videos.Tags(ctx, ranking.Published())
	if err != nil {
		return 0, fmt.Errorf("read tags: %w", err)
	}
	n, err := e.tags.Rebuild(ctx, raw)
	if err != nil {
		return 0, err
	}
	logger.Log.Info("Tag index rebuilt", zap.Int("videos", len(raw)), zap.Int("tags", n))
	return n, nil
}

// CleanupInteractions deletes interaction and search records older than
// retentionDays and returns how many rows were removed in total.
func (e *Engine) CleanupInteractions(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, invalidf("retention must be at least one day, got %d", retentionDays)
	}

	cutoff := e.now().AddDate(0, 0, -retentionDays)
	interactions, err := e.interactions.DeleteInteractionsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var searches int64
	if e.searches != nil {
		if searches, err = e.searches.DeleteSearchesBefore(ctx, cutoff); err != nil {
			return interactions, err
		}
	}

	logger.Log.Info("Old analytics records removed",
		zap.Int64("interactions", interactions),
		zap.Int64("searches", searches),
		zap.Time("cutoff", cutoff),
	)
	return interactions + searches, nil
}

// CreateVideo validates and stores a new video. A missing status defaults to
// draft.
func (e *Engine) CreateVideo(ctx context.Context, video *models.Video) error {
	if video != nil && video.Status == "" {
		video.Status = models.StatusDraft
	}
	if err := validation.ValidateVideo(video); err != nil {
		return err
	}
	if err := e.videos.Create(ctx, video); err != nil {
		return err
	}

	logger.Log.Info("Video created",
		zap.Int64("videoId", video.ID),
		zap.String("status", string(video.Status)),
	)
	return nil
}

// page runs the page query and the count query concurrently; both use the same
// filter.
func (e *Engine) page(ctx context.Context, name string, filter ranking.Filter, order ranking.Order, w ranking.Window) (*ranking.Page, error) {
	start := time.Now()

	var (
		items []*models.Video
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = e.videos.Query(gctx, filter, order, w.Offset, w.Limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = e.videos.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s feed: %w", name, err)
	}

	e.metrics.ObserveQuery(name, time.Since(start))
	return ranking.NewPage(items, w, total), nil
}
