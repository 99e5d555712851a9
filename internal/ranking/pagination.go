package ranking

import (
	"math"

	"github.com/reelhub/discovery/internal/models"
)

// Limits bounds the page size of a strategy.
type Limits struct {
	Default int
	Max     int
}

// Per-strategy page size bounds.
var (
	PublicLimits     = Limits{Default: 10, Max: 100}
	BrowseLimits     = Limits{Default: 12, Max: 100}
	TrendingLimits   = Limits{Default: 5, Max: 50}
	RelatedLimits    = Limits{Default: 4, Max: 20}
	SuggestionLimits = Limits{Default: 5, Max: 20}
	TagLimits        = Limits{Default: 10, Max: 50}
	AdminLimits      = Limits{Default: 20, Max: 100}
)

// Clamp maps a requested limit into [1, Max]. Zero means "not supplied" and
// yields Default; negative values clamp to 1.
func (l Limits) Clamp(limit int) int {
	switch {
	case limit == 0:
		return l.Default
	case limit < 1:
		return 1
	case limit > l.Max:
		return l.Max
	}
	return limit
}

// Window is the row range selected by a (page, limit) pair.
type Window struct {
	Page   int
	Limit  int
	Offset int
}

// NewWindow computes the offset for a 1-based page. The offset is never
// negative; a page whose offset does not fit in an int saturates to
// math.MaxInt, which lies past the end of any result set.
func NewWindow(page, limit int) Window {
	var offset int
	switch {
	case page <= 1 || limit <= 0:
	case page-1 > math.MaxInt/limit:
		offset = math.MaxInt
	default:
		offset = (page - 1) * limit
	}
	return Window{Page: page, Limit: limit, Offset: offset}
}

// TotalPages returns ceil(total / limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// Page is one paginated result set.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Page struct {
	Items       []*models.Video `json:"items"`
	Page        int             `json:"page"`
	Limit       int             `json:"limit"`
	TotalCount  int64           `json:"totalCount"`
	TotalPages  int             `json:"totalPages"`
	HasNextPage bool            `json:"hasNextPage"`
	HasPrevPage bool            `json:"hasPrevPage"`
}

// NewPage assembles a page and its derived metadata.
func NewPage(items []*models.Video, w Window, total int64) *Page {
	if items == nil {
		items = []*models.Video{}
	}
	totalPages := TotalPages(total, w.Limit)
	return &Page{
		Items:       items,
		Page:        w.Page,
		Limit:       w.Limit,
		TotalCount:  total,
		TotalPages:  totalPages,
		HasNextPage: w.Page < totalPages,
		HasPrevPage: w.Page > 1,
	}
}
