package ranking

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reelhub/discovery/internal/models"
)

func TestEngagementScore(t *testing.T) {
	tests := []struct {
		name  string
		views int64
		likes int64
		want  int64
	}{
		{"zero", 0, 0, 0},
		{"views only", 100, 0, 100},
		{"likes weigh ten views", 0, 5, 50},
		{"mixed", 100, 5, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EngagementScore(tt.views, tt.likes))
		})
	}
}

func TestWeightedRandomScore(t *testing.T) {
	assert.Equal(t, 0.0, WeightedRandomScore(0, 1000))
	assert.InDelta(t, 0.5, WeightedRandomScore(0.5, 0), 1e-9)
	assert.InDelta(t, 0.5*(1+math.Log10(100)), WeightedRandomScore(0.5, 99), 1e-9)
	assert.InDelta(t, 0.5, WeightedRandomScore(0.5, -3), 1e-9, "negative views treated as zero")
}

func TestAgeInDays(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	now := time.Date(2024, 6, 15, 1, 0, 0, 0, loc)

	tests := []struct {
		name    string
		created time.Time
		want    int
	}{
		{"same instant", now, 0},
		{"earlier same day", time.Date(2024, 6, 15, 0, 1, 0, 0, loc), 0},
		{"late yesterday is one day", time.Date(2024, 6, 14, 23, 59, 0, 0, loc), 1},
		{"thirty days ago", now.AddDate(0, 0, -30), 30},
		{"future clamps to zero", now.Add(48 * time.Hour), 0},
		{"converted to now's location", time.Date(2024, 6, 14, 17, 30, 0, 0, time.UTC), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeInDays(tt.created, now))
		})
	}
}

func TestTrendingScore(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.InDelta(t, 150.0, TrendingScore(100, 5, now, now), 1e-9)
	assert.InDelta(t, 200.0/31, TrendingScore(200, 0, now.AddDate(0, 0, -30), now), 1e-9)

	t.Run("newer video with equal counters scores strictly higher", func(t *testing.T) {
		older := TrendingScore(50, 3, now.AddDate(0, 0, -5), now)
		newer := TrendingScore(50, 3, now.AddDate(0, 0, -2), now)
		assert.Greater(t, newer, older)
	})
}

func TestRelevance(t *testing.T) {
	v := &models.Video{Title: "Funny Cats", Description: "a compilation of dogs", Tags: "pets,Birds"}

	tests := []struct {
		query string
		want  RelevanceTier
	}{
		{"cats", TierTitle},
		{"COMPILATION", TierDescription},
		{"bird", TierTags},
		{"fish", TierNone},
		{"funny", TierTitle},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Relevance(v, tt.query))
		})
	}
}
