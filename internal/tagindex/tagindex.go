// Package tagindex maintains the derived tag popularity index used for popular
// tags and tag autocomplete. The index is rebuilt from the authoritative tags
// column and is never written back to it.
package tagindex

import (
	"context"
	"sort"
	"strings"

	"github.com/reelhub/discovery/internal/models"
)

// Index is a rebuildable projection from normalized tag to usage count.
type Index interface {
	// Rebuild replaces the index contents with counts derived from raw
	// comma separated tag fields. It returns the number of distinct tags.
	Rebuild(ctx context.Context, rawTags []string) (int, error)

	// Top returns the limit most used tags.
	Top(ctx context.Context, limit int) ([]models.TagCount, error)

	// Match returns up to limit tags containing substr, most used first.
	Match(ctx context.Context, substr string, limit int) ([]models.TagCount, error)
}

// Count aggregates raw tag fields into normalized tag counts. A tag repeated
// within one field counts once for that field.
func Count(rawTags []string) map[string]int64 {
	counts := make(map[string]int64)
	for _, raw := range rawTags {
		seen := make(map[string]struct{})
		for _, tag := range models.SplitTags(raw) {
			norm := models.NormalizeTag(tag)
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}
			counts[norm]++
		}
	}
	return counts
}

// Sorted orders counts by count descending, then tag ascending.
func Sorted(counts map[string]int64) []models.TagCount {
	out := make([]models.TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, models.TagCount{Tag: tag, Count: n})
	}
	sortTagCounts(out)
	return out
}

func sortTagCounts(tags []models.TagCount) {
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})
}

func filterContaining(tags []models.TagCount, substr string, limit int) []models.TagCount {
	if limit <= 0 {
		return []models.TagCount{}
	}
	substr = models.NormalizeTag(substr)
	out := make([]models.TagCount, 0, limit)
	for _, tc := range tags {
		if len(out) == limit {
			break
		}
		if strings.Contains(tc.Tag, substr) {
			out = append(out, tc)
		}
	}
	return out
}
