package service

import (
	"sort"
	"strings"
	"time"

	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/internal/ranking"
)

// Strategy names. StrategyAdmin is served by ListVideos only.
const (
	StrategyLatest      = "latest"
	StrategyRandom      = "random"
	StrategyViews       = "views"
	StrategyLikes       = "likes"
	StrategyPopular     = "popular"
	StrategyTop         = "top"
	StrategyTrending    = "trending"
	StrategyTag         = "tag"
	StrategyAdvanced    = "advanced"
	StrategyDuration    = "duration"
	StrategyRecommended = "recommended"
	StrategyAdmin       = "admin"
)

// Trending windows.
const (
	WindowToday = "today"
	WindowWeek  = "week"
	WindowMonth = "month"
	WindowYear  = "year"
	WindowAll   = "all"
)

// FeedFilters carries the optional request parameters of every strategy.
// Each strategy reads only the fields it understands.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type FeedFilters struct {
	Window        string
	Tag           string
	Query         string
	MinDuration   *int
	MaxDuration   *int
	MinViews      *int64
	StartDate     *time.Time
	EndDate       *time.Time
	SortBy        string
	SortOrder     string
	PreferredTags []string
	Status        string
	CategoryID    *int64
	SeriesID      *int64
}

// plan is a compiled strategy: what to select, how to order it, and the limit
// bounds. An empty plan short-circuits to an empty page without a store call.
type plan struct {
	filter ranking.Filter
	order  ranking.Order
	empty  bool
}

type strategy struct {
	limits ranking.Limits
	build  func(f FeedFilters, now time.Time) (plan, error)
	// adminOnly strategies see unpublished videos and are reachable only
	// through ListVideos.
	adminOnly bool
}

var byViews = ranking.Order{ranking.Desc(ranking.SortViews), ranking.Desc(ranking.SortLikes)}

var strategies = map[string]strategy{
	StrategyLatest: {
		limits: ranking.BrowseLimits,
		build: func(FeedFilters, time.Time) (plan, error) {
			return plan{filter: ranking.Published(), order: ranking.Order{ranking.Desc(ranking.SortCreatedAt)}}, nil
		},
	},
	StrategyRandom: {
		limits: ranking.PublicLimits,
		build: func(FeedFilters, time.Time) (plan, error) {
			return plan{filter: ranking.Published(), order: ranking.Order{ranking.Desc(ranking.SortWeightedRandom)}}, nil
		},
	},
	StrategyViews: {
		limits: ranking.PublicLimits,
		build: func(FeedFilters, time.Time) (plan, error) {
			return plan{filter: ranking.Published(), order: byViews}, nil
		},
	},
	StrategyLikes: {
		limits: ranking.PublicLimits,
		build: func(FeedFilters, time.Time) (plan, error) {
			return plan{
				filter: ranking.Published(),
				order:  ranking.Order{ranking.Desc(ranking.SortLikes), ranking.Desc(ranking.SortViews)},
			}, nil
		},
	},
	StrategyPopular: {
		limits: ranking.PublicLimits,
		build: func(FeedFilters, time.Time) (plan, error) {
			return plan{filter: ranking.Published(), order: ranking.Order{ranking.Desc(ranking.SortEngagement)}}, nil
		},
	},
	StrategyTop: {
		limits: ranking.PublicLimits,
		build: func(f FeedFilters, now time.Time) (plan, error) {
			return plan{filter: withinWindow(ranking.Published(), f.Window, now), order: byViews}, nil
		},
	},
	StrategyTrending: {
		limits: ranking.TrendingLimits,
		build: func(f FeedFilters, now time.Time) (plan, error) {
			return plan{
				filter: withinWindow(ranking.Published(), f.Window, now),
				order:  ranking.Order{ranking.Desc(ranking.SortTrending)},
			}, nil
		},
	},
	StrategyTag: {
		limits: ranking.PublicLimits,
		build: func(f FeedFilters, _ time.Time) (plan, error) {
			tag := strings.TrimSpace(f.Tag)
			if tag == "" {
				return plan{empty: true}, nil
			}
			return plan{
				filter: ranking.Published().And(ranking.Contains(ranking.FieldTags, tag)),
				order:  byViews,
			}, nil
		},
	},
	StrategyAdvanced: {
		limits: ranking.PublicLimits,
		build:  buildAdvanced,
	},
	StrategyDuration: {
		limits: ranking.PublicLimits,
		build: func(f FeedFilters, _ time.Time) (plan, error) {
			filter := ranking.Published()
			if f.MinDuration != nil || f.MaxDuration != nil {
				filter = filter.And(ranking.Between(ranking.FieldDuration, f.MinDuration, f.MaxDuration))
			}
			return plan{filter: filter, order: byViews}, nil
		},
	},
	StrategyRecommended: {
		limits: ranking.PublicLimits,
		build:  buildRecommended,
	},
	StrategyAdmin: {
		limits:    ranking.AdminLimits,
		build:     buildAdmin,
		adminOnly: true,
	},
}

// Strategies returns the names GetFeed accepts in lexical order.
func Strategies() []string {
	names := make([]string, 0, len(strategies))
	for name, s := range strategies {
		if s.adminOnly {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildAdvanced(f FeedFilters, _ time.Time) (plan, error) {
	order, err := callerOrder(f.SortBy, f.SortOrder)
	if err != nil {
		return plan{}, err
	}

	filter := ranking.Published()
	if f.MinDuration != nil || f.MaxDuration != nil {
		filter = filter.And(ranking.Between(ranking.FieldDuration, f.MinDuration, f.MaxDuration))
	}
	if f.MinViews != nil {
		filter = filter.And(ranking.Between(ranking.FieldViews, f.MinViews, nil))
	}
	if f.StartDate != nil || f.EndDate != nil {
		filter = filter.And(ranking.Between(ranking.FieldCreatedAt, f.StartDate, f.EndDate))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		filter = filter.And(ranking.MatchAny(q, ranking.FieldTitle, ranking.FieldDescription, ranking.FieldTags))
	}

	return plan{filter: filter, order: order}, nil
}

// buildRecommended narrows by duration only when both bounds are present.
func buildRecommended(f FeedFilters, _ time.Time) (plan, error) {
	filter := ranking.Published()
	if f.MinDuration != nil && f.MaxDuration != nil {
		filter = filter.And(ranking.Between(ranking.FieldDuration, f.MinDuration, f.MaxDuration))
	}
	if terms := nonBlank(f.PreferredTags); len(terms) > 0 {
		filter = filter.And(ranking.ContainsAny(ranking.FieldTags, terms...))
	}
	return plan{filter: filter, order: ranking.Order{ranking.Desc(ranking.SortWeightedRandom)}}, nil
}

func buildAdmin(f FeedFilters, _ time.Time) (plan, error) {
	order, err := callerOrder(f.SortBy, f.SortOrder)
	if err != nil {
		return plan{}, err
	}

	var filter ranking.Filter
	if raw := strings.TrimSpace(f.Status); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			return plan{}, invalidf("unknown status %q", raw)
		}
		filter = filter.And(ranking.Eq(ranking.FieldStatus, status))
	}
	if f.CategoryID != nil {
		filter = filter.And(ranking.Eq(ranking.FieldCategoryID, *f.CategoryID))
	}
	if f.SeriesID != nil {
		filter = filter.And(ranking.Eq(ranking.FieldSeriesID, *f.SeriesID))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		filter = filter.And(ranking.MatchAny(q, ranking.FieldTitle, ranking.FieldDescription, ranking.FieldTags))
	}

	return plan{filter: filter, order: order}, nil
}

func callerOrder(sortBy, sortOrder string) (ranking.Order, error) {
	key, err := ranking.ParseSortKey(sortBy)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	return ranking.Order{{Key: key, Desc: ranking.ParseDirection(sortOrder)}}, nil
}

// windowStart returns the earliest creation time admitted by window, or nil
// when the window is unbounded. Unknown windows are unbounded.
func windowStart(window string, now time.Time) *time.Time {
	var start time.Time
	switch strings.ToLower(strings.TrimSpace(window)) {
	case WindowToday:
		y, m, d := now.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case WindowWeek:
		start = now.AddDate(0, 0, -7)
	case WindowMonth:
		start = now.AddDate(0, 0, -30)
	case WindowYear:
		start = now.AddDate(0, 0, -365)
	default:
		return nil
	}
	return &start
}

func withinWindow(filter ranking.Filter, window string, now time.Time) ranking.Filter {
	if start := windowStart(window, now); start != nil {
		return filter.And(ranking.Between(ranking.FieldCreatedAt, *start, nil))
	}
	return filter
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
