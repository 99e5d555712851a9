package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhub/discovery/internal/db"
	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/internal/ranking"
)

func TestSQLBuilder_Where(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   ranking.Filter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "zero filter",
			filter:   ranking.Filter{},
			wantSQL:  "",
			wantArgs: nil,
		},
		{
			name:     "published",
			filter:   ranking.Published(),
			wantSQL:  " WHERE status = $1",
			wantArgs: []any{"published"},
		},
		{
			name:     "published and not self",
			filter:   ranking.Published().And(ranking.NotEq(ranking.FieldID, int64(9))),
			wantSQL:  " WHERE status = $1 AND id <> $2",
			wantArgs: []any{"published", int64(9)},
		},
		{
			name:     "range with both bounds",
			filter:   ranking.Where(ranking.Between(ranking.FieldDuration, 60, 600)),
			wantSQL:  " WHERE (duration >= $1 AND duration <= $2)",
			wantArgs: []any{int64(60), int64(600)},
		},
		{
			name:     "range with open upper bound",
			filter:   ranking.Where(ranking.Between(ranking.FieldCreatedAt, since, nil)),
			wantSQL:  " WHERE (created_at >= $1)",
			wantArgs: []any{since},
		},
		{
			name:     "in",
			filter:   ranking.Where(ranking.In(ranking.FieldID, int64(1), int64(2))),
			wantSQL:  " WHERE id IN ($1, $2)",
			wantArgs: []any{int64(1), int64(2)},
		},
		{
			name:     "empty in matches nothing",
			filter:   ranking.Where(ranking.In(ranking.FieldID)),
			wantSQL:  " WHERE FALSE",
			wantArgs: nil,
		},
		{
			name:     "contains",
			filter:   ranking.Where(ranking.Contains(ranking.FieldTags, "cat")),
			wantSQL:  ` WHERE tags ILIKE $1 ESCAPE '\'`,
			wantArgs: []any{"%cat%"},
		},
		{
			name:     "match any reuses one parameter",
			filter:   ranking.Where(ranking.MatchAny("dog", ranking.FieldTitle, ranking.FieldDescription, ranking.FieldTags)),
			wantSQL:  ` WHERE (title ILIKE $1 ESCAPE '\' OR description ILIKE $1 ESCAPE '\' OR tags ILIKE $1 ESCAPE '\')`,
			wantArgs: []any{"%dog%"},
		},
		{
			name:     "contains any",
			filter:   ranking.Where(ranking.ContainsAny(ranking.FieldTags, "a", "b")),
			wantSQL:  ` WHERE (tags ILIKE $1 ESCAPE '\' OR tags ILIKE $2 ESCAPE '\')`,
			wantArgs: []any{"%a%", "%b%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &sqlBuilder{}
			sql, err := b.where(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, b.args)
		})
	}
}

func TestSQLBuilder_WhereRejectsNonTextContains(t *testing.T) {
	b := &sqlBuilder{}
	_, err := b.where(ranking.Where(ranking.Contains(ranking.FieldViews, "1")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrInvalidInput))

	_, err = b.where(ranking.Where(ranking.Eq(ranking.Field("password"), "x")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrInvalidInput))
}

func TestSQLBuilder_OrderBy(t *testing.T) {
	tests := []struct {
		name    string
		order   ranking.Order
		wantSQL string
	}{
		{
			name:    "empty order still tie-breaks on id",
			order:   nil,
			wantSQL: " ORDER BY id DESC",
		},
		{
			name:    "views then likes",
			order:   ranking.Order{ranking.Desc(ranking.SortViews), ranking.Desc(ranking.SortLikes)},
			wantSQL: " ORDER BY views DESC, likes DESC, id DESC",
		},
		{
			name:    "engagement",
			order:   ranking.Order{ranking.Desc(ranking.SortEngagement)},
			wantSQL: " ORDER BY (views + likes * 10) DESC, id DESC",
		},
		{
			name:    "trending",
			order:   ranking.Order{ranking.Desc(ranking.SortTrending)},
			wantSQL: " ORDER BY ((views + likes * 10)::double precision / (GREATEST(CURRENT_DATE - created_at::date, 0) + 1)) DESC, id DESC",
		},
		{
			name:    "weighted random",
			order:   ranking.Order{ranking.Desc(ranking.SortWeightedRandom)},
			wantSQL: " ORDER BY (random() * (1 + log((views + 1)::double precision))) DESC, id DESC",
		},
		{
			name:    "ascending title",
			order:   ranking.Order{ranking.Asc(ranking.SortTitle)},
			wantSQL: " ORDER BY title ASC, id DESC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &sqlBuilder{}
			sql, err := b.orderBy(tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
		})
	}
}

func TestSQLBuilder_OrderByRelevance(t *testing.T) {
	b := &sqlBuilder{}
	_, err := b.where(ranking.Published())
	require.NoError(t, err)

	sql, err := b.orderBy(ranking.Order{ranking.ByRelevance("50%"), ranking.Desc(ranking.SortEngagement)})
	require.NoError(t, err)

	assert.Equal(t,
		` ORDER BY (CASE WHEN title ILIKE $2 ESCAPE '\' THEN 3 WHEN description ILIKE $2 ESCAPE '\' THEN 2 WHEN tags ILIKE $2 ESCAPE '\' THEN 1 ELSE 0 END) DESC, (views + likes * 10) DESC, id DESC`,
		sql)
	assert.Equal(t, []any{string(models.StatusPublished), `%50\%%`}, b.args)
}

func TestSQLBuilder_OrderByUnknownKey(t *testing.T) {
	b := &sqlBuilder{}
	_, err := b.orderBy(ranking.Order{{Key: "views; DROP TABLE videos"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ranking.ErrInvalidSortKey))
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%cat%", likePattern("cat"))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%c:\\temp%`, likePattern(`c:\temp`))
	assert.Equal(t, "%%", likePattern(""))
}
