package repository

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhub/discovery/internal/db"
	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/internal/ranking"
)

func newMemoryRepo(t *testing.T, videos ...*models.Video) VideoRepository {
	t.Helper()

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryVideoRepository(
		WithClock(func() time.Time { return now }),
		WithRand(rand.New(rand.NewPCG(7, 7))),
	)
	for _, v := range videos {
		require.NoError(t, repo.Create(context.Background(), v))
	}
	return repo
}

func TestMemoryVideoRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo(t)

	v := &models.Video{Title: "first"}
	require.NoError(t, repo.Create(ctx, v))
	assert.Equal(t, int64(1), v.ID)
	assert.Equal(t, models.StatusDraft, v.Status)
	assert.False(t, v.CreatedAt.IsZero())

	explicit := &models.Video{ID: 10, Title: "explicit"}
	require.NoError(t, repo.Create(ctx, explicit))

	next := &models.Video{Title: "after explicit"}
	require.NoError(t, repo.Create(ctx, next))
	assert.Equal(t, int64(11), next.ID)

	err := repo.Create(ctx, &models.Video{ID: 10, Title: "dup"})
	assert.True(t, db.IsDuplicateKey(err))
}

func TestMemoryVideoRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo(t, &models.Video{Title: "a", Views: 3})

	v, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", v.Title)

	v.Views = 999
	again, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), again.Views, "returned videos are copies")

	_, err = repo.GetByID(ctx, 42)
	assert.True(t, db.IsNotFound(err))
}

func TestMemoryVideoRepository_QueryAndCount(t *testing.T) {
	ctx := context.Background()
	var videos []*models.Video
	for i := 1; i <= 25; i++ {
		status := models.StatusPublished
		if i%5 == 0 {
			status = models.StatusDraft
		}
		videos = append(videos, &models.Video{Title: "v", Views: int64(i * 10), Status: status})
	}
	repo := newMemoryRepo(t, videos...)

	filter := ranking.Published()
	order := ranking.Order{ranking.Desc(ranking.SortViews)}

	total, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)

	seen := map[int64]bool{}
	for offset := 0; offset < 30; offset += 7 {
		page, err := repo.Query(ctx, filter, order, offset, 7)
		require.NoError(t, err)
		for _, v := range page {
			assert.False(t, seen[v.ID], "video %d returned twice", v.ID)
			assert.Equal(t, models.StatusPublished, v.Status)
			seen[v.ID] = true
		}
	}
	assert.Len(t, seen, 20)

	first, err := repo.Query(ctx, filter, order, 0, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(240), first[0].Views)

	empty, err := repo.Query(ctx, filter, order, 100, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryVideoRepository_QueryRejectsUnknownSortKey(t *testing.T) {
	repo := newMemoryRepo(t)
	_, err := repo.Query(context.Background(), ranking.Filter{}, ranking.Order{{Key: "nope"}}, 0, 10)
	assert.True(t, errors.Is(err, ranking.ErrInvalidSortKey))
}

func TestMemoryVideoRepository_AtomicIncrement(t *testing.T) {
	ctx := context.Background()

	t.Run("views", func(t *testing.T) {
		repo := newMemoryRepo(t, &models.Video{Title: "a", Views: 5})
		views, err := repo.AtomicIncrement(ctx, 1, CounterViews, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(6), views)
	})

	t.Run("views reject non-positive delta", func(t *testing.T) {
		repo := newMemoryRepo(t, &models.Video{Title: "a"})
		_, err := repo.AtomicIncrement(ctx, 1, CounterViews, -1)
		assert.True(t, db.IsInvalidInput(err))
		_, err = repo.AtomicIncrement(ctx, 1, CounterViews, 0)
		assert.True(t, db.IsInvalidInput(err))
	})

	t.Run("likes floor at zero", func(t *testing.T) {
		repo := newMemoryRepo(t, &models.Video{Title: "a", Likes: 1})
		for i := 0; i < 3; i++ {
			likes, err := repo.AtomicIncrement(ctx, 1, CounterLikes, -1)
			require.NoError(t, err)
			assert.Equal(t, int64(0), likes)
		}
		likes, err := repo.AtomicIncrement(ctx, 1, CounterLikes, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), likes)
	})

	t.Run("not found", func(t *testing.T) {
		repo := newMemoryRepo(t)
		_, err := repo.AtomicIncrement(ctx, 99, CounterLikes, 1)
		assert.True(t, db.IsNotFound(err))
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		repo := newMemoryRepo(t, &models.Video{Title: "a"})

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = repo.AtomicIncrement(ctx, 1, CounterViews, 1)
			}()
			go func() {
				defer wg.Done()
				_, _ = repo.AtomicIncrement(ctx, 1, CounterLikes, -1)
			}()
		}
		wg.Wait()

		v, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(50), v.Views)
		assert.Equal(t, int64(0), v.Likes)
	})
}

func TestMemoryVideoRepository_BatchIncrementViews(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo(t, &models.Video{Title: "a", Views: 1}, &models.Video{Title: "b"})

	results, err := repo.BatchIncrementViews(ctx, []models.ViewDelta{
		{VideoID: 1, Delta: 4},
		{VideoID: 2, Delta: 0},
		{VideoID: 3, Delta: 1},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, int64(5), results[0].Views)
	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)
	assert.Equal(t, db.ErrNotFound.Error(), results[2].Error)
}

func TestMemoryVideoRepository_StatsAndTags(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo(t,
		&models.Video{Title: "a", Views: 10, Likes: 1, Duration: 100, Tags: "Cat, dog", Status: models.StatusPublished},
		&models.Video{Title: "b", Views: 20, Likes: 2, Duration: 201, Status: models.StatusPublished},
		&models.Video{Title: "c", Views: 1000, Likes: 50, Duration: 5, Tags: "secret", Status: models.StatusDraft},
	)

	stats, err := repo.Stats(ctx, ranking.Published())
	require.NoError(t, err)
	assert.Equal(t, &models.GeneralStats{TotalVideos: 2, TotalViews: 30, TotalLikes: 3, AvgDuration: 151}, stats)

	tags, err := repo.Tags(ctx, ranking.Published())
	require.NoError(t, err)
	assert.Equal(t, []string{"Cat, dog"}, tags)
}

func TestMemorySearchLogRepository(t *testing.T) {
	repo := NewMemorySearchLogRepository()
	ctx := context.Background()
	now := time.Now()

	for i, age := range []int{200, 91, 10, 0} {
		s := models.NewSearchQuery("q", int64(i), "", "")
		s.CreatedAt = now.AddDate(0, 0, -age)
		require.NoError(t, repo.LogSearch(ctx, s))
	}

	removed, err := repo.DeleteSearchesBefore(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	removed, err = repo.DeleteSearchesBefore(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = repo.DeleteSearchesBefore(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}
