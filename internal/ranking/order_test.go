package ranking

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhub/discovery/internal/models"
)

func ids(videos []*models.Video) []int64 {
	out := make([]int64, len(videos))
	for i, v := range videos {
		out[i] = v.ID
	}
	return out
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in      string
		want    SortKey
		wantErr bool
	}{
		{"", SortCreatedAt, false},
		{"views", SortViews, false},
		{" Likes ", SortLikes, false},
		{"trending", SortTrending, false},
		{"random", "", true},
		{"views; DROP TABLE videos", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSortKey(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidSortKey))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDirection(t *testing.T) {
	assert.False(t, ParseDirection("asc"))
	assert.False(t, ParseDirection("ASC"))
	assert.True(t, ParseDirection("desc"))
	assert.True(t, ParseDirection(""))
	assert.True(t, ParseDirection("sideways"))
}

func TestOrderSort(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	videos := func() []*models.Video {
		return []*models.Video{
			{ID: 1, Title: "b", Views: 100, Likes: 5, CreatedAt: now},
			{ID: 2, Title: "a", Views: 10, Likes: 50, CreatedAt: now},
			{ID: 3, Title: "c", Views: 200, Likes: 0, CreatedAt: now.AddDate(0, 0, -30)},
			{ID: 4, Title: "d", Views: 200, Likes: 0, CreatedAt: now.AddDate(0, 0, -31)},
		}
	}

	tests := []struct {
		name  string
		order Order
		want  []int64
	}{
		{"views then likes", Order{Desc(SortViews), Desc(SortLikes)}, []int64{4, 3, 1, 2}},
		{"likes then views", Order{Desc(SortLikes), Desc(SortViews)}, []int64{2, 1, 4, 3}},
		{"engagement", Order{Desc(SortEngagement)}, []int64{2, 4, 3, 1}},
		{"trending", Order{Desc(SortTrending)}, []int64{2, 1, 3, 4}},
		{"created asc", Order{Asc(SortCreatedAt)}, []int64{4, 3, 2, 1}},
		{"title asc", Order{Asc(SortTitle)}, []int64{2, 1, 3, 4}},
		{"empty order falls back to id desc", nil, []int64{4, 3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := videos()
			tt.order.Sort(vs, SortContext{Now: now})
			assert.Equal(t, tt.want, ids(vs))
		})
	}
}

func TestOrderSortRelevance(t *testing.T) {
	vs := []*models.Video{
		{ID: 1, Tags: "guitar", Views: 10000},
		{ID: 2, Description: "learn guitar", Views: 500},
		{ID: 3, Title: "Guitar basics", Views: 1},
		{ID: 4, Title: "Guitar solo", Views: 50},
	}

	Order{ByRelevance("guitar"), Desc(SortEngagement)}.Sort(vs, SortContext{})
	assert.Equal(t, []int64{4, 3, 2, 1}, ids(vs))
}

func TestOrderSortWeightedRandomIsSeeded(t *testing.T) {
	newSet := func() []*models.Video {
		return []*models.Video{{ID: 1, Views: 5}, {ID: 2, Views: 50}, {ID: 3, Views: 500}}
	}
	order := Order{Desc(SortWeightedRandom)}

	a, b := newSet(), newSet()
	order.Sort(a, SortContext{Rand: rand.New(rand.NewPCG(1, 2))})
	order.Sort(b, SortContext{Rand: rand.New(rand.NewPCG(1, 2))})
	assert.Equal(t, ids(a), ids(b))
	assert.False(t, order.Deterministic())
	assert.True(t, Order{Desc(SortViews)}.Deterministic())
}
