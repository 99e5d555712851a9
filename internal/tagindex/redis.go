package tagindex

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/pkg/logger"
)

const (
	popularTagsKey = "tags:popular"
	scanBatch      = 200
)

// RedisIndex stores tag counts in a Redis sorted set so every API replica
// serves the same popularity view.
type RedisIndex struct {
	redisClient *redis.Client
	key         string
}

// NewRedisIndex creates a RedisIndex on the default key.
func NewRedisIndex(redisClient *redis.Client) *RedisIndex {
	return &RedisIndex{
		redisClient: redisClient,
		key:         popularTagsKey,
	}
}

// Rebuild writes the counts to a temporary key and renames it over the live
// key, so readers never see a partially built set.
func (r *RedisIndex) Rebuild(ctx context.Context, rawTags []string) (int, error) {
	counts := Count(rawTags)

	if len(counts) == 0 {
		if err := r.redisClient.Del(ctx, r.key).Err(); err != nil {
			return 0, fmt.Errorf("failed to clear tag index: %w", err)
		}
		logger.Log.Info("Tag index cleared, no tags found")
		return 0, nil
	}

	members := make([]redis.Z, 0, len(counts))
	for tag, n := range counts {
		members = append(members, redis.Z{Score: float64(n), Member: tag})
	}

	tmpKey := r.key + ":rebuild"
	pipe := r.redisClient.TxPipeline()
	pipe.Del(ctx, tmpKey)
	pipe.ZAdd(ctx, tmpKey, members...)
	pipe.Rename(ctx, tmpKey, r.key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to load tag index into Redis: %w", err)
	}

	logger.Log.Info("Tag index rebuilt", zap.Int("tags", len(counts)))
	return len(counts), nil
}

// Top returns the most used tags. Redis orders equal scores in reverse
// lexical order for ZREVRANGE, so the members tied at the cut-off score are
// re-read in ascending order to match the in-process index.
func (r *RedisIndex) Top(ctx context.Context, limit int) ([]models.TagCount, error) {
	if limit <= 0 {
		return []models.TagCount{}, nil
	}

	head, err := r.redisClient.ZRevRangeWithScores(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read popular tags: %w", err)
	}
	if len(head) == 0 {
		return []models.TagCount{}, nil
	}

	cutoff := head[len(head)-1].Score
	out := make([]models.TagCount, 0, limit)
	for _, z := range head {
		if z.Score > cutoff {
			out = append(out, toTagCount(z))
		}
	}

	score := strconv.FormatFloat(cutoff, 'f', -1, 64)
	ties, err := r.redisClient.ZRangeByScoreWithScores(ctx, r.key, &redis.ZRangeBy{
		Min:   score,
		Max:   score,
		Count: int64(limit - len(out)),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read tied tags: %w", err)
	}
	for _, z := range ties {
		out = append(out, toTagCount(z))
	}

	return out, nil
}

// Match scans the set for tags containing substr.
func (r *RedisIndex) Match(ctx context.Context, substr string, limit int) ([]models.TagCount, error) {
	if limit <= 0 {
		return []models.TagCount{}, nil
	}

	pattern := "*" + escapeGlob(models.NormalizeTag(substr)) + "*"

	var matched []models.TagCount
	iter := r.redisClient.ZScan(ctx, r.key, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		member := iter.Val()
		if !iter.Next(ctx) {
			break
		}
		n, err := strconv.ParseFloat(iter.Val(), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid score for tag %q: %w", member, err)
		}
		matched = append(matched, models.TagCount{Tag: member, Count: int64(n)})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan tag index: %w", err)
	}

	sortTagCounts(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	if matched == nil {
		matched = []models.TagCount{}
	}
	return matched, nil
}

func toTagCount(z redis.Z) models.TagCount {
	tag, _ := z.Member.(string)
	return models.TagCount{Tag: tag, Count: int64(z.Score)}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
