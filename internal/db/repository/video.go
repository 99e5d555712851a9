package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reelhub/discovery/internal/db"
	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/internal/ranking"
)

// CounterField names an engagement counter that can be updated atomically.
type CounterField string

// Counter fields.
const (
	CounterViews CounterField = "views"
	CounterLikes CounterField = "likes"
)

// VideoRepository is the video record store consumed by the discovery engine.
type VideoRepository interface {
	// Create inserts a video and fills in its id and timestamps.
	Create(ctx context.Context, video *models.Video) error

	// GetByID retrieves a single video regardless of status.
	GetByID(ctx context.Context, id int64) (*models.Video, error)

	// Query returns the videos matching filter in the given order, windowed by offset and limit.
	Query(ctx context.Context, filter ranking.Filter, order ranking.Order, offset, limit int) ([]*models.Video, error)

	// Count returns the number of videos matching filter.
	Count(ctx context.Context, filter ranking.Filter) (int64, error)

	// AtomicIncrement applies delta to a counter in a single relative update and
	// returns the new value. Views accept only positive deltas; likes are
	// floored at zero.
	AtomicIncrement(ctx context.Context, id int64, field CounterField, delta int64) (int64, error)

	// BatchIncrementViews applies several positive view deltas. Invalid or
	// unknown entries are reported per row and do not abort the batch.
	BatchIncrementViews(ctx context.Context, deltas []models.ViewDelta) ([]models.ViewUpdateResult, error)

	// Stats aggregates counters over the videos matching filter.
	Stats(ctx context.Context, filter ranking.Filter) (*models.GeneralStats, error)

	// Tags returns the raw tags field of every video matching filter that has tags.
	Tags(ctx context.Context, filter ranking.Filter) ([]string, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

// ValidateCounterDelta rejects deltas a counter cannot accept.
func ValidateCounterDelta(field CounterField, delta int64) error {
	switch field {
	case CounterViews:
		if delta <= 0 {
			return fmt.Errorf("%w: views delta must be positive, got %d", db.ErrInvalidInput, delta)
		}
	case CounterLikes:
		if delta == 0 {
			return fmt.Errorf("%w: likes delta must be non-zero", db.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown counter %q", db.ErrInvalidInput, field)
	}
	return nil
}

const videoColumns = `id, title, description, tags, thumbnail, duration, views, likes,
		category_id, series_id, episode_number, file_size, width, height, status, created_at, updated_at`

type videoRepository struct {
	pool *pgxpool.Pool
}

// NewVideoRepository creates a PostgreSQL backed VideoRepository.
func NewVideoRepository(pool *pgxpool.Pool) VideoRepository {
	return &videoRepository{pool: pool}
}

func (r *videoRepository) Create(ctx context.Context, video *models.Video) error {
	now := time.Now()
	if video.CreatedAt.IsZero() {
		video.CreatedAt = now
	}
	if video.UpdatedAt.IsZero() {
		video.UpdatedAt = video.CreatedAt
	}
	if video.Status == "" {
		video.Status = models.StatusDraft
	}

	query := `
		INSERT INTO videos (title, description, tags, thumbnail, duration, views, likes,
			category_id, series_id, episode_number, file_size, width, height, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		video.Title,
		video.Description,
		video.Tags,
		video.Thumbnail,
		video.Duration,
		video.Views,
		video.Likes,
		video.CategoryID,
		video.SeriesID,
		video.EpisodeNumber,
		video.FileSize,
		video.Width,
		video.Height,
		string(video.Status),
		video.CreatedAt,
		video.UpdatedAt,
	).Scan(&video.ID)

	if err != nil {
		return db.WrapError(err, "create video")
	}

	return nil
}

func (r *videoRepository) GetByID(ctx context.Context, id int64) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	video, err := scanVideo(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, db.WrapError(err, "get video by id")
	}

	return video, nil
}

func (r *videoRepository) Query(ctx context.Context, filter ranking.Filter, order ranking.Order, offset, limit int) ([]*models.Video, error) {
	b := &sqlBuilder{}

	where, err := b.where(filter)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	orderBy, err := b.orderBy(order)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + videoColumns + ` FROM videos` + where + orderBy +
		fmt.Sprintf(" LIMIT %s OFFSET %s", b.bind(limit), b.bind(offset))

	rows, err := r.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, db.WrapError(err, "query videos")
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (r *videoRepository) Count(ctx context.Context, filter ranking.Filter) (int64, error) {
	b := &sqlBuilder{}

	where, err := b.where(filter)
	if err != nil {
		return 0, fmt.Errorf("count videos: %w", err)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM videos`+where, b.args...).Scan(&total); err != nil {
		return 0, db.WrapError(err, "count videos")
	}

	return total, nil
}

func (r *videoRepository) AtomicIncrement(ctx context.Context, id int64, field CounterField, delta int64) (int64, error) {
	if err := ValidateCounterDelta(field, delta); err != nil {
		return 0, err
	}

	var query string
	switch field {
	case CounterViews:
		query = `UPDATE videos SET views = views + $2 WHERE id = $1 RETURNING views`
	case CounterLikes:
		query = `UPDATE videos SET likes = GREATEST(likes + $2, 0) WHERE id = $1 RETURNING likes`
	}

	var value int64
	if err := r.pool.QueryRow(ctx, query, id, delta).Scan(&value); err != nil {
		return 0, db.WrapError(err, fmt.Sprintf("increment %s", field))
	}

	return value, nil
}

func (r *videoRepository) BatchIncrementViews(ctx context.Context, deltas []models.ViewDelta) ([]models.ViewUpdateResult, error) {
	results := make([]models.ViewUpdateResult, len(deltas))
	batch := &pgx.Batch{}
	queued := make([]int, 0, len(deltas))

	for i, d := range deltas {
		results[i].VideoID = d.VideoID
		if err := ValidateCounterDelta(CounterViews, d.Delta); err != nil {
			results[i].Error = err.Error()
			continue
		}
		batch.Queue(`UPDATE videos SET views = views + $2 WHERE id = $1 RETURNING views`, d.VideoID, d.Delta)
		queued = append(queued, i)
	}

	if len(queued) == 0 {
		return results, nil
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, i := range queued {
		var views int64
		err := br.QueryRow().Scan(&views)
		switch {
		case err == nil:
			results[i].Views = views
		case errors.Is(err, pgx.ErrNoRows):
			results[i].Error = db.ErrNotFound.Error()
		default:
			return nil, db.WrapError(err, "batch increment views")
		}
	}

	return results, nil
}

func (r *videoRepository) Stats(ctx context.Context, filter ranking.Filter) (*models.GeneralStats, error) {
	b := &sqlBuilder{}

	where, err := b.where(filter)
	if err != nil {
		return nil, fmt.Errorf("video stats: %w", err)
	}

	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(views), 0)::bigint,
		       COALESCE(SUM(likes), 0)::bigint,
		       COALESCE(ROUND(AVG(duration)), 0)::bigint
		FROM videos` + where

	stats := &models.GeneralStats{}
	err = r.pool.QueryRow(ctx, query, b.args...).Scan(
		&stats.TotalVideos,
		&stats.TotalViews,
		&stats.TotalLikes,
		&stats.AvgDuration,
	)
	if err != nil {
		return nil, db.WrapError(err, "video stats")
	}

	return stats, nil
}

func (r *videoRepository) Tags(ctx context.Context, filter ranking.Filter) ([]string, error) {
	b := &sqlBuilder{}

	where, err := b.where(filter.And(ranking.NotEq(ranking.FieldTags, "")))
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT tags FROM videos`+where, b.args...)
	if err != nil {
		return nil, db.WrapError(err, "list tags")
	}
	defer rows.Close()

	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, db.WrapError(err, "scan tags")
	}

	return tags, nil
}

func (r *videoRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanVideo(row pgx.Row) (*models.Video, error) {
	video := &models.Video{}
	var status string

	err := row.Scan(
		&video.ID,
		&video.Title,
		&video.Description,
		&video.Tags,
		&video.Thumbnail,
		&video.Duration,
		&video.Views,
		&video.Likes,
		&video.CategoryID,
		&video.SeriesID,
		&video.EpisodeNumber,
		&video.FileSize,
		&video.Width,
		&video.Height,
		&status,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	video.Status = models.Status(status)
	return video, nil
}

func scanVideos(rows pgx.Rows) ([]*models.Video, error) {
	var videos []*models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, db.WrapError(err, "scan video")
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate videos")
	}

	return videos, nil
}
