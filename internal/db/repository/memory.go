package repository

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/reelhub/discovery/internal/db"
	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/internal/ranking"
)

// MemoryOption configures a memory repository.
type MemoryOption func(*memoryVideoRepository)

// WithClock sets the time source used for trending scores and timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(r *memoryVideoRepository) {
		r.now = now
	}
}

// WithRand sets the random source used by random orderings.
func WithRand(rng *rand.Rand) MemoryOption {
	return func(r *memoryVideoRepository) {
		r.rng = rng
	}
}

// memoryVideoRepository keeps videos in a map guarded by a mutex. Counter
// updates happen under the write lock, which makes them atomic relative to
// queries in the same way a single UPDATE statement is.
type memoryVideoRepository struct {
	mu     sync.RWMutex
	videos map[int64]*models.Video
	nextID int64

	now func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewMemoryVideoRepository creates an in-process VideoRepository.
func NewMemoryVideoRepository(opts ...MemoryOption) VideoRepository {
	r := &memoryVideoRepository{
		videos: make(map[int64]*models.Video),
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *memoryVideoRepository) Create(_ context.Context, video *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if video.ID == 0 {
		r.nextID++
		video.ID = r.nextID
	} else {
		if _, exists := r.videos[video.ID]; exists {
			return fmt.Errorf("create video: %w (id %d)", db.ErrDuplicateKey, video.ID)
		}
		if video.ID > r.nextID {
			r.nextID = video.ID
		}
	}

	if video.CreatedAt.IsZero() {
		video.CreatedAt = r.now()
	}
	if video.UpdatedAt.IsZero() {
		video.UpdatedAt = video.CreatedAt
	}
	if video.Status == "" {
		video.Status = models.StatusDraft
	}

	stored := *video
	r.videos[video.ID] = &stored
	return nil
}

func (r *memoryVideoRepository) GetByID(_ context.Context, id int64) (*models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.videos[id]
	if !ok {
		return nil, fmt.Errorf("get video by id: %w", db.ErrNotFound)
	}
	out := *v
	return &out, nil
}

func (r *memoryVideoRepository) Query(ctx context.Context, filter ranking.Filter, order ranking.Order, offset, limit int) ([]*models.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, t := range order {
		if !t.Key.Valid() {
			return nil, fmt.Errorf("query videos: %w: %q", ranking.ErrInvalidSortKey, t.Key)
		}
	}

	matched := r.snapshot(filter)

	r.rngMu.Lock()
	order.Sort(matched, ranking.SortContext{Now: r.now(), Rand: r.rng})
	r.rngMu.Unlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) || limit <= 0 {
		return []*models.Video{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *memoryVideoRepository) Count(ctx context.Context, filter ranking.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, v := range r.videos {
		if filter.Match(v) {
			n++
		}
	}
	return n, nil
}

func (r *memoryVideoRepository) AtomicIncrement(_ context.Context, id int64, field CounterField, delta int64) (int64, error) {
	if err := ValidateCounterDelta(field, delta); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.videos[id]
	if !ok {
		return 0, fmt.Errorf("increment %s: %w", field, db.ErrNotFound)
	}

	switch field {
	case CounterViews:
		v.Views += delta
		return v.Views, nil
	default:
		v.Likes = max(v.Likes+delta, 0)
		return v.Likes, nil
	}
}

func (r *memoryVideoRepository) BatchIncrementViews(ctx context.Context, deltas []models.ViewDelta) ([]models.ViewUpdateResult, error) {
	results := make([]models.ViewUpdateResult, len(deltas))
	for i, d := range deltas {
		results[i].VideoID = d.VideoID
		views, err := r.AtomicIncrement(ctx, d.VideoID, CounterViews, d.Delta)
		switch {
		case err == nil:
			results[i].Views = views
		case db.IsNotFound(err):
			results[i].Error = db.ErrNotFound.Error()
		default:
			results[i].Error = err.Error()
		}
	}
	return results, nil
}

func (r *memoryVideoRepository) Stats(_ context.Context, filter ranking.Filter) (*models.GeneralStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.GeneralStats{}
	var duration int64
	for _, v := range r.videos {
		if !filter.Match(v) {
			continue
		}
		stats.TotalVideos++
		stats.TotalViews += v.Views
		stats.TotalLikes += v.Likes
		duration += int64(v.Duration)
	}
	if stats.TotalVideos > 0 {
		stats.AvgDuration = int64(math.Round(float64(duration) / float64(stats.TotalVideos)))
	}
	return stats, nil
}

func (r *memoryVideoRepository) Tags(_ context.Context, filter ranking.Filter) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tags []string
	for _, v := range r.videos {
		if v.Tags != "" && filter.Match(v) {
			tags = append(tags, v.Tags)
		}
	}
	return tags, nil
}

func (r *memoryVideoRepository) Ping(context.Context) error {
	return nil
}

// snapshot copies the matching videos so callers never observe a counter
// mid-update or mutate stored records.
func (r *memoryVideoRepository) snapshot(filter ranking.Filter) []*models.Video {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*models.Video, 0, len(r.videos))
	for _, v := range r.videos {
		if filter.Match(v) {
			out := *v
			matched = append(matched, &out)
		}
	}
	// Map iteration order is random; fix it so seeded random orders repeat.
	slices.SortFunc(matched, func(a, b *models.Video) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return matched
}
