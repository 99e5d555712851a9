package ranking

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/reelhub/discovery/internal/models"
)

// ErrInvalidSortKey is returned when a caller supplied sort column is not allow-listed.
var ErrInvalidSortKey = errors.New("invalid sort key")

// SortKey names a comparator. Stores translate each key into a fixed ordering
// expression; the set is closed.
type SortKey string

// Sort keys.
const (
	SortCreatedAt      SortKey = "created_at"
	SortUpdatedAt      SortKey = "updated_at"
	SortViews          SortKey = "views"
	SortLikes          SortKey = "likes"
	SortDuration       SortKey = "duration"
	SortTitle          SortKey = "title"
	SortID             SortKey = "id"
	SortEngagement     SortKey = "engagement"
	SortTrending       SortKey = "trending"
	SortWeightedRandom SortKey = "weighted_random"
	SortRandom         SortKey = "random"
	SortRelevance      SortKey = "relevance"
)

// Valid reports whether k is a known sort key.
func (k SortKey) Valid() bool {
	switch k {
	case SortCreatedAt, SortUpdatedAt, SortViews, SortLikes, SortDuration, SortTitle, SortID,
		SortEngagement, SortTrending, SortWeightedRandom, SortRandom, SortRelevance:
		return true
	}
	return false
}

// callerSortKeys are the keys a request may name directly.
var callerSortKeys = map[string]SortKey{
	"created_at": SortCreatedAt,
	"updated_at": SortUpdatedAt,
	"views":      SortViews,
	"likes":      SortLikes,
	"duration":   SortDuration,
	"title":      SortTitle,
	"engagement": SortEngagement,
	"trending":   SortTrending,
}

// ParseSortKey resolves a caller supplied column name against the allow-list.
// An empty name resolves to SortCreatedAt.
func ParseSortKey(name string) (SortKey, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return SortCreatedAt, nil
	}
	key, ok := callerSortKeys[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSortKey, name)
	}
	return key, nil
}

// ParseDirection returns true (descending) unless dir is "asc".
func ParseDirection(dir string) bool {
	return !strings.EqualFold(strings.TrimSpace(dir), "asc")
}

// OrderTerm is one sort key with its direction. Query is only used by SortRelevance.
type OrderTerm struct {
	Key   SortKey
	Desc  bool
	Query string
}

// Order is a lexicographic list of sort terms. Every store appends an implicit
// final id DESC so that deterministic orders are total.
type Order []OrderTerm

// Desc builds a descending term.
func Desc(key SortKey) OrderTerm {
	return OrderTerm{Key: key, Desc: true}
}

// Asc builds an ascending term.
func Asc(key SortKey) OrderTerm {
	return OrderTerm{Key: key}
}

// ByRelevance builds a descending relevance term for q.
func ByRelevance(q string) OrderTerm {
	return OrderTerm{Key: SortRelevance, Desc: true, Query: q}
}

// Deterministic reports whether the order yields the same sequence for the
// same data on every call.
func (o Order) Deterministic() bool {
	for _, t := range o {
		if t.Key == SortRandom || t.Key == SortWeightedRandom {
			return false
		}
	}
	return true
}

// SortContext carries the inputs of time and randomness dependent keys.
type SortContext struct {
	Now  time.Time
	Rand *rand.Rand
}

func (sc SortContext) float() float64 {
	if sc.Rand != nil {
		return sc.Rand.Float64()
	}
	return rand.Float64()
}

// sortValue holds a single precomputed key. Only one member is populated per
// key so comparing all three in sequence is equivalent to comparing that one.
type sortValue struct {
	i int64
	f float64
	s string
}

func (a sortValue) compare(b sortValue) int {
	switch {
	case a.i != b.i:
		if a.i < b.i {
			return -1
		}
		return 1
	case a.f != b.f:
		if a.f < b.f {
			return -1
		}
		return 1
	}
	return strings.Compare(a.s, b.s)
}

func (t OrderTerm) value(v *models.Video, sc SortContext) sortValue {
	switch t.Key {
	case SortCreatedAt:
		return sortValue{i: v.CreatedAt.UnixNano()}
	case SortUpdatedAt:
		return sortValue{i: v.UpdatedAt.UnixNano()}
	case SortViews:
		return sortValue{i: v.Views}
	case SortLikes:
		return sortValue{i: v.Likes}
	case SortDuration:
		return sortValue{i: int64(v.Duration)}
	case SortTitle:
		return sortValue{s: v.Title}
	case SortID:
		return sortValue{i: v.ID}
	case SortEngagement:
		return sortValue{i: EngagementScore(v.Views, v.Likes)}
	case SortTrending:
		return sortValue{f: TrendingScore(v.Views, v.Likes, v.CreatedAt, sc.Now)}
	case SortWeightedRandom:
		return sortValue{f: WeightedRandomScore(sc.float(), v.Views)}
	case SortRandom:
		return sortValue{f: sc.float()}
	case SortRelevance:
		return sortValue{i: int64(Relevance(v, t.Query))}
	}
	return sortValue{}
}

// Sort orders videos in place. Each key is computed once per video, so random
// keys are drawn exactly once per call.
func (o Order) Sort(videos []*models.Video, sc SortContext) {
	if sc.Now.IsZero() {
		sc.Now = time.Now()
	}

	type entry struct {
		video *models.Video
		keys  []sortValue
	}

	entries := make([]entry, len(videos))
	for i, v := range videos {
		keys := make([]sortValue, len(o))
		for j, term := range o {
			keys[j] = term.value(v, sc)
		}
		entries[i] = entry{video: v, keys: keys}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		for j, term := range o {
			cmp := entries[a].keys[j].compare(entries[b].keys[j])
			if cmp == 0 {
				continue
			}
			if term.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return entries[a].video.ID > entries[b].video.ID
	})

	for i, e := range entries {
		videos[i] = e.video
	}
}
