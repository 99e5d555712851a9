//go:build integration
// +build integration

package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhub/discovery/internal/db"
	"github.com/reelhub/discovery/internal/db/repository"
	"github.com/reelhub/discovery/internal/db/testutil"
	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/internal/ranking"
)

func seed(t *testing.T, repo repository.VideoRepository, videos ...*models.Video) {
	t.Helper()
	for _, v := range videos {
		require.NoError(t, repo.Create(context.Background(), v))
	}
}

func TestVideoRepository_CreateAndGet(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := repository.NewVideoRepository(td.Pool)
	ctx := context.Background()

	t.Run("creates and reads back a video", func(t *testing.T) {
		td.TruncateTables(t)

		categoryID := td.InsertCategory(t, "Music")
		seriesID := td.InsertSeries(t, "Lessons", &categoryID)
		episode := 2

		v := models.NewVideo("Guitar basics", "learn chords", "guitar,music", 120)
		v.CategoryID = &categoryID
		v.SeriesID = &seriesID
		v.EpisodeNumber = &episode
		require.NoError(t, repo.Create(ctx, v))
		assert.NotZero(t, v.ID)

		got, err := repo.GetByID(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, "Guitar basics", got.Title)
		assert.Equal(t, models.StatusDraft, got.Status)
		assert.Equal(t, categoryID, *got.CategoryID)
		assert.Equal(t, 2, *got.EpisodeNumber)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		td.TruncateTables(t)

		_, err := repo.GetByID(ctx, 12345)
		assert.True(t, db.IsNotFound(err))
	})

	t.Run("dangling category is a foreign key violation", func(t *testing.T) {
		td.TruncateTables(t)

		missing := int64(999)
		v := models.NewVideo("x", "", "", 10)
		v.CategoryID = &missing
		err := repo.Create(ctx, v)
		assert.True(t, db.IsForeignKeyViolation(err))
	})
}

func TestVideoRepository_QueryStrategies(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := repository.NewVideoRepository(td.Pool)
	ctx := context.Background()
	td.TruncateTables(t)

	now := time.Now()
	v1 := &models.Video{Title: "V1", Views: 100, Likes: 5, Duration: 60, Status: models.StatusPublished, CreatedAt: now}
	v2 := &models.Video{Title: "V2", Views: 10, Likes: 50, Duration: 60, Status: models.StatusPublished, CreatedAt: now}
	v3 := &models.Video{Title: "V3", Views: 200, Likes: 0, Duration: 60, Status: models.StatusPublished, CreatedAt: now.AddDate(0, 0, -30)}
	hidden := &models.Video{Title: "hidden", Views: 100000, Likes: 10000, Duration: 60, Status: models.StatusDraft, CreatedAt: now}
	seed(t, repo, v1, v2, v3, hidden)

	t.Run("by likes", func(t *testing.T) {
		got, err := repo.Query(ctx, ranking.Published(), ranking.Order{ranking.Desc(ranking.SortLikes), ranking.Desc(ranking.SortViews)}, 0, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, []int64{v2.ID, v1.ID}, []int64{got[0].ID, got[1].ID})
	})

	t.Run("trending decays old videos", func(t *testing.T) {
		got, err := repo.Query(ctx, ranking.Published(), ranking.Order{ranking.Desc(ranking.SortTrending)}, 0, 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, v3.ID, got[2].ID)
	})

	t.Run("count uses the same filter", func(t *testing.T) {
		total, err := repo.Count(ctx, ranking.Published())
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("weighted random returns only published", func(t *testing.T) {
		got, err := repo.Query(ctx, ranking.Published(), ranking.Order{ranking.Desc(ranking.SortWeightedRandom)}, 0, 10)
		require.NoError(t, err)
		assert.Len(t, got, 3)
		for _, v := range got {
			assert.Equal(t, models.StatusPublished, v.Status)
		}
	})
}

func TestVideoRepository_SearchRelevance(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := repository.NewVideoRepository(td.Pool)
	ctx := context.Background()
	td.TruncateTables(t)

	byTags := &models.Video{Title: "c", Tags: "piano", Views: 9000, Duration: 1, Status: models.StatusPublished}
	byDesc := &models.Video{Title: "b", Description: "Piano night", Views: 500, Duration: 1, Status: models.StatusPublished}
	byTitle := &models.Video{Title: "PIANO covers", Views: 1, Duration: 1, Status: models.StatusPublished}
	literal := &models.Video{Title: "100% piano", Views: 0, Duration: 1, Status: models.StatusPublished}
	seed(t, repo, byTags, byDesc, byTitle, literal)

	filter := ranking.Published().And(ranking.MatchAny("piano", ranking.FieldTitle, ranking.FieldDescription, ranking.FieldTags))
	order := ranking.Order{ranking.ByRelevance("piano"), ranking.Desc(ranking.SortEngagement)}

	got, err := repo.Query(ctx, filter, order, 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []int64{byTitle.ID, literal.ID, byDesc.ID, byTags.ID},
		[]int64{got[0].ID, got[1].ID, got[2].ID, got[3].ID})

	t.Run("percent sign is matched literally", func(t *testing.T) {
		got, err := repo.Query(ctx, ranking.Where(ranking.Contains(ranking.FieldTitle, "100%")), nil, 0, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, literal.ID, got[0].ID)
	})
}

func TestVideoRepository_AtomicIncrement(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := repository.NewVideoRepository(td.Pool)
	ctx := context.Background()

	t.Run("likes never go below zero", func(t *testing.T) {
		td.TruncateTables(t)
		v := &models.Video{Title: "a", Likes: 1, Duration: 1}
		seed(t, repo, v)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.AtomicIncrement(ctx, v.ID, repository.CounterLikes, -1)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := repo.GetByID(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.Likes)
	})

	t.Run("concurrent view increments are not lost", func(t *testing.T) {
		td.TruncateTables(t)
		v := &models.Video{Title: "a", Duration: 1}
		seed(t, repo, v)

		var wg sync.WaitGroup
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.AtomicIncrement(ctx, v.ID, repository.CounterViews, 1)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := repo.GetByID(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(25), got.Views)
	})

	t.Run("missing video is not found", func(t *testing.T) {
		td.TruncateTables(t)
		_, err := repo.AtomicIncrement(ctx, 777, repository.CounterViews, 1)
		assert.True(t, db.IsNotFound(err))
	})

	t.Run("batch reports per row", func(t *testing.T) {
		td.TruncateTables(t)
		v := &models.Video{Title: "a", Views: 3, Duration: 1}
		seed(t, repo, v)

		results, err := repo.BatchIncrementViews(ctx, []models.ViewDelta{
			{VideoID: v.ID, Delta: 7},
			{VideoID: v.ID, Delta: -1},
			{VideoID: 9999, Delta: 1},
		})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, int64(10), results[0].Views)
		assert.NotEmpty(t, results[1].Error)
		assert.Equal(t, db.ErrNotFound.Error(), results[2].Error)
	})
}

func TestVideoRepository_StatsAndTags(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := repository.NewVideoRepository(td.Pool)
	ctx := context.Background()
	td.TruncateTables(t)

	seed(t, repo,
		&models.Video{Title: "a", Views: 10, Likes: 1, Duration: 100, Tags: "cat,dog", Status: models.StatusPublished},
		&models.Video{Title: "b", Views: 20, Likes: 2, Duration: 201, Status: models.StatusPublished},
		&models.Video{Title: "c", Views: 5, Duration: 3, Tags: "secret", Status: models.StatusArchived},
	)

	stats, err := repo.Stats(ctx, ranking.Published())
	require.NoError(t, err)
	assert.Equal(t, &models.GeneralStats{TotalVideos: 2, TotalViews: 30, TotalLikes: 3, AvgDuration: 151}, stats)

	tags, err := repo.Tags(ctx, ranking.Published())
	require.NoError(t, err)
	assert.Equal(t, []string{"cat,dog"}, tags)
}

func TestInteractionRepository(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	videos := repository.NewVideoRepository(td.Pool)
	interactions := repository.NewInteractionRepository(td.Pool)
	ctx := context.Background()
	td.TruncateTables(t)

	v := &models.Video{Title: "a", Duration: 1}
	seed(t, videos, v)

	old := models.NewInteraction(v.ID, models.InteractionView, "10.0.0.1", "test", nil)
	old.CreatedAt = time.Now().AddDate(0, 0, -100)
	recent := models.NewInteraction(v.ID, models.InteractionLike, "10.0.0.1", "test", map[string]string{"source": "feed"})

	require.NoError(t, interactions.LogInteraction(ctx, old))
	require.NoError(t, interactions.LogInteraction(ctx, recent))

	removed, err := interactions.DeleteInteractionsBefore(ctx, time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	t.Run("unknown video is rejected", func(t *testing.T) {
		err := interactions.LogInteraction(ctx, models.NewInteraction(424242, models.InteractionView, "", "", nil))
		assert.True(t, db.IsForeignKeyViolation(err))
	})
}

func TestSearchLogRepository(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	searches := repository.NewSearchLogRepository(td.Pool)
	ctx := context.Background()
	td.TruncateTables(t)

	old := models.NewSearchQuery("cats", 12, "10.0.0.1", "test")
	old.CreatedAt = time.Now().AddDate(0, 0, -100)
	recent := models.NewSearchQuery("dogs", 0, "10.0.0.1", "test")

	require.NoError(t, searches.LogSearch(ctx, old))
	require.NoError(t, searches.LogSearch(ctx, recent))

	removed, err := searches.DeleteSearchesBefore(ctx, time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var left int
	require.NoError(t, td.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM search_queries`).Scan(&left))
	assert.Equal(t, 1, left)

	t.Run("duplicate id is rejected", func(t *testing.T) {
		err := searches.LogSearch(ctx, recent)
		assert.True(t, db.IsDuplicateKey(err))
	})
}
