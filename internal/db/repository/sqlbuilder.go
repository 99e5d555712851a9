package repository

import (
	"fmt"
	"strings"

	"github.com/reelhub/discovery/internal/db"
	"github.com/reelhub/discovery/internal/ranking"
)

// columns maps every filterable field to its SQL column. Fields are never
// written into a statement without passing through this table.
var columns = map[ranking.Field]string{
	ranking.FieldID:          "id",
	ranking.FieldStatus:      "status",
	ranking.FieldTitle:       "title",
	ranking.FieldDescription: "description",
	ranking.FieldTags:        "tags",
	ranking.FieldDuration:    "duration",
	ranking.FieldViews:       "views",
	ranking.FieldLikes:       "likes",
	ranking.FieldCategoryID:  "category_id",
	ranking.FieldSeriesID:    "series_id",
	ranking.FieldCreatedAt:   "created_at",
}

var (
	engagementExpr = fmt.Sprintf("(views + likes * %d)", ranking.LikeWeight)
	trendingExpr   = fmt.Sprintf("(%s::double precision / (GREATEST(CURRENT_DATE - created_at::date, 0) + 1))", engagementExpr)
	// log() is base 10 in PostgreSQL.
	weightedRandomExpr = "(random() * (1 + log((views + 1)::double precision)))"
)

// sqlBuilder accumulates positional arguments while compiling filters and
// orders into SQL fragments.
type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// where compiles f into a WHERE clause, or an empty string for the zero filter.
func (b *sqlBuilder) where(f ranking.Filter) (string, error) {
	if len(f.Clauses) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(f.Clauses))
	for _, c := range f.Clauses {
		sql, err := b.clause(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}

	return " WHERE " + strings.Join(parts, " AND "), nil
}

func (b *sqlBuilder) clause(c ranking.Clause) (string, error) {
	switch c.Kind {
	case ranking.ClauseEq, ranking.ClauseNotEq:
		col, err := column(c.Field)
		if err != nil {
			return "", err
		}
		op := "="
		if c.Kind == ranking.ClauseNotEq {
			op = "<>"
		}
		return fmt.Sprintf("%s %s %s", col, op, b.bind(c.Value)), nil

	case ranking.ClauseRange:
		col, err := column(c.Field)
		if err != nil {
			return "", err
		}
		var bounds []string
		if c.Min != nil {
			bounds = append(bounds, fmt.Sprintf("%s >= %s", col, b.bind(c.Min)))
		}
		if c.Max != nil {
			bounds = append(bounds, fmt.Sprintf("%s <= %s", col, b.bind(c.Max)))
		}
		if len(bounds) == 0 {
			return col + " IS NOT NULL", nil
		}
		return "(" + strings.Join(bounds, " AND ") + ")", nil

	case ranking.ClauseIn:
		col, err := column(c.Field)
		if err != nil {
			return "", err
		}
		if len(c.Values) == 0 {
			return "FALSE", nil
		}
		params := make([]string, len(c.Values))
		for i, v := range c.Values {
			params[i] = b.bind(v)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(params, ", ")), nil

	case ranking.ClauseContains:
		col, err := textColumn(c.Field)
		if err != nil {
			return "", err
		}
		return ilike(col, b.bind(likePattern(c.Text))), nil

	case ranking.ClauseMatchAny:
		if len(c.Fields) == 0 {
			return "FALSE", nil
		}
		param := b.bind(likePattern(c.Text))
		ors := make([]string, 0, len(c.Fields))
		for _, f := range c.Fields {
			col, err := textColumn(f)
			if err != nil {
				return "", err
			}
			ors = append(ors, ilike(col, param))
		}
		return "(" + strings.Join(ors, " OR ") + ")", nil

	case ranking.ClauseContainsAny:
		col, err := textColumn(c.Field)
		if err != nil {
			return "", err
		}
		if len(c.Terms) == 0 {
			return "FALSE", nil
		}
		ors := make([]string, len(c.Terms))
		for i, term := range c.Terms {
			ors[i] = ilike(col, b.bind(likePattern(term)))
		}
		return "(" + strings.Join(ors, " OR ") + ")", nil
	}

	return "", fmt.Errorf("%w: unknown clause kind %d", db.ErrInvalidInput, c.Kind)
}

// orderBy compiles o into an ORDER BY clause. An id DESC tie-break is always
// appended so that deterministic orders paginate without overlap.
func (b *sqlBuilder) orderBy(o ranking.Order) (string, error) {
	parts := make([]string, 0, len(o)+1)
	for _, t := range o {
		expr, err := b.orderExpr(t)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if t.Desc {
			dir = "DESC"
		}
		parts = append(parts, expr+" "+dir)
	}
	parts = append(parts, "id DESC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func (b *sqlBuilder) orderExpr(t ranking.OrderTerm) (string, error) {
	switch t.Key {
	case ranking.SortCreatedAt, ranking.SortUpdatedAt, ranking.SortViews, ranking.SortLikes,
		ranking.SortDuration, ranking.SortTitle, ranking.SortID:
		return string(t.Key), nil
	case ranking.SortEngagement:
		return engagementExpr, nil
	case ranking.SortTrending:
		return trendingExpr, nil
	case ranking.SortWeightedRandom:
		return weightedRandomExpr, nil
	case ranking.SortRandom:
		return "random()", nil
	case ranking.SortRelevance:
		p := b.bind(likePattern(t.Query))
		return fmt.Sprintf("(CASE WHEN %s THEN %d WHEN %s THEN %d WHEN %s THEN %d ELSE %d END)",
			ilike("title", p), ranking.TierTitle,
			ilike("description", p), ranking.TierDescription,
			ilike("tags", p), ranking.TierTags,
			ranking.TierNone,
		), nil
	}
	return "", fmt.Errorf("%w: %q", ranking.ErrInvalidSortKey, t.Key)
}

func column(f ranking.Field) (string, error) {
	col, ok := columns[f]
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", db.ErrInvalidInput, f)
	}
	return col, nil
}

func textColumn(f ranking.Field) (string, error) {
	if !f.Text() {
		return "", fmt.Errorf("%w: field %q is not a text field", db.ErrInvalidInput, f)
	}
	return column(f)
}

func ilike(col, param string) string {
	return col + " ILIKE " + param + ` ESCAPE '\'`
}

// likePattern wraps s in % wildcards, escaping LIKE metacharacters so the
// caller's text is matched literally.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
