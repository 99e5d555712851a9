// Package ranking holds the scoring functions, the filter and ordering model,
// and the pagination contract shared by every video store implementation.
package ranking

import (
	"math"
	"strings"
	"time"

	"github.com/reelhub/discovery/internal/models"
)

// LikeWeight is how many views a single like is worth in engagement scoring.
const LikeWeight = 10

// EngagementScore returns views + likes*LikeWeight.
func EngagementScore(views, likes int64) int64 {
	return views + likes*LikeWeight
}

// WeightedRandomScore biases a uniform draw u in [0,1) by the log of the view
// count, so unwatched videos keep a non-zero chance of ranking first.
func WeightedRandomScore(u float64, views int64) float64 {
	if views < 0 {
		views = 0
	}
	return u * (1 + math.Log10(float64(views)+1))
}

// AgeInDays returns the number of whole calendar days between the date of
// createdAt and the date of now, both taken in now's location. Future
// timestamps count as zero days old.
func AgeInDays(createdAt, now time.Time) int {
	cy, cm, cd := createdAt.In(now.Location()).Date()
	ny, nm, nd := now.Date()

	created := time.Date(cy, cm, cd, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)

	days := int(today.Sub(created) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}

// TrendingScore divides the engagement score by the age in days plus one.
func TrendingScore(views, likes int64, createdAt, now time.Time) float64 {
	return float64(EngagementScore(views, likes)) / float64(AgeInDays(createdAt, now)+1)
}

// RelevanceTier is the discrete search relevance of a video for a query.
// Higher tiers always outrank lower ones regardless of engagement.
type RelevanceTier int

// Relevance tiers, lowest first.
const (
	TierNone RelevanceTier = iota
	TierTags
	TierDescription
	TierTitle
)

// Relevance returns the highest tier at which q is contained in v.
func Relevance(v *models.Video, q string) RelevanceTier {
	switch {
	case ContainsFold(v.Title, q):
		return TierTitle
	case ContainsFold(v.Description, q):
		return TierDescription
	case ContainsFold(v.Tags, q):
		return TierTags
	default:
		return TierNone
	}
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
