package ranking

import (
	"strings"
	"time"

	"github.com/reelhub/discovery/internal/models"
)

// Field names a filterable video column. The set is closed; stores map each
// field to a fixed column and never interpolate caller strings.
type Field string

// Filterable fields.
const (
	FieldID          Field = "id"
	FieldStatus      Field = "status"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldTags        Field = "tags"
	FieldDuration    Field = "duration"
	FieldViews       Field = "views"
	FieldLikes       Field = "likes"
	FieldCategoryID  Field = "category_id"
	FieldSeriesID    Field = "series_id"
	FieldCreatedAt   Field = "created_at"
)

// Valid reports whether f is one of the known fields.
func (f Field) Valid() bool {
	switch f {
	case FieldID, FieldStatus, FieldTitle, FieldDescription, FieldTags, FieldDuration,
		FieldViews, FieldLikes, FieldCategoryID, FieldSeriesID, FieldCreatedAt:
		return true
	}
	return false
}

// Text reports whether f holds free text.
func (f Field) Text() bool {
	return f == FieldTitle || f == FieldDescription || f == FieldTags
}

// ClauseKind discriminates the Clause union.
type ClauseKind int

// Clause kinds.
const (
	ClauseEq ClauseKind = iota
	ClauseNotEq
	ClauseRange
	ClauseIn
	ClauseContains
	ClauseMatchAny
	ClauseContainsAny
)

// Clause is a single predicate over a video. Only the members relevant to Kind
// are set; use the constructors below rather than building clauses by hand.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Clause struct {
	Kind   ClauseKind
	Field  Field
	Fields []Field
	Value  any
	Values []any
	Min    any
	Max    any
	Text   string
	Terms  []string
}

// Eq matches videos whose field equals value.
func Eq(field Field, value any) Clause {
	return Clause{Kind: ClauseEq, Field: field, Value: Normalize(value)}
}

// NotEq matches videos whose field is set and differs from value.
func NotEq(field Field, value any) Clause {
	return Clause{Kind: ClauseNotEq, Field: field, Value: Normalize(value)}
}

// Between matches videos whose field lies in [lo, hi]. A nil bound is open.
func Between(field Field, lo, hi any) Clause {
	return Clause{Kind: ClauseRange, Field: field, Min: Normalize(lo), Max: Normalize(hi)}
}

// In matches videos whose field equals one of values. An empty set matches nothing.
func In(field Field, values ...any) Clause {
	norm := make([]any, len(values))
	for i, v := range values {
		norm[i] = Normalize(v)
	}
	return Clause{Kind: ClauseIn, Field: field, Values: norm}
}

// Contains matches videos whose text field contains text, ignoring case.
func Contains(field Field, text string) Clause {
	return Clause{Kind: ClauseContains, Field: field, Text: text}
}

// MatchAny matches videos where any of fields contains text, ignoring case.
func MatchAny(text string, fields ...Field) Clause {
	return Clause{Kind: ClauseMatchAny, Fields: fields, Text: text}
}

// ContainsAny matches videos whose text field contains at least one of terms.
// An empty term list matches nothing.
func ContainsAny(field Field, terms ...string) Clause {
	return Clause{Kind: ClauseContainsAny, Field: field, Terms: terms}
}

// Filter is a conjunction of clauses. The zero value matches every video.
type Filter struct {
	Clauses []Clause
}

// Where builds a filter from clauses.
func Where(clauses ...Clause) Filter {
	return Filter{Clauses: append([]Clause(nil), clauses...)}
}

// Published is the base filter of every public strategy.
func Published() Filter {
	return Where(Eq(FieldStatus, models.StatusPublished))
}

// And returns a copy of f extended with clauses.
func (f Filter) And(clauses ...Clause) Filter {
	out := make([]Clause, 0, len(f.Clauses)+len(clauses))
	out = append(out, f.Clauses...)
	out = append(out, clauses...)
	return Filter{Clauses: out}
}

// Match evaluates the filter against v.
func (f Filter) Match(v *models.Video) bool {
	for _, c := range f.Clauses {
		if !c.Match(v) {
			return false
		}
	}
	return true
}

// Match evaluates a single clause against v. Comparisons against an unset
// (NULL) field are false, mirroring SQL three-valued logic.
func (c Clause) Match(v *models.Video) bool {
	switch c.Kind {
	case ClauseEq:
		cmp, ok := compare(FieldValue(v, c.Field), c.Value)
		return ok && cmp == 0
	case ClauseNotEq:
		cmp, ok := compare(FieldValue(v, c.Field), c.Value)
		return ok && cmp != 0
	case ClauseRange:
		val := FieldValue(v, c.Field)
		if val == nil {
			return false
		}
		if c.Min != nil {
			if cmp, ok := compare(val, c.Min); !ok || cmp < 0 {
				return false
			}
		}
		if c.Max != nil {
			if cmp, ok := compare(val, c.Max); !ok || cmp > 0 {
				return false
			}
		}
		return true
	case ClauseIn:
		val := FieldValue(v, c.Field)
		for _, want := range c.Values {
			if cmp, ok := compare(val, want); ok && cmp == 0 {
				return true
			}
		}
		return false
	case ClauseContains:
		return ContainsFold(textValue(v, c.Field), c.Text)
	case ClauseMatchAny:
		for _, f := range c.Fields {
			if ContainsFold(textValue(v, f), c.Text) {
				return true
			}
		}
		return false
	case ClauseContainsAny:
		s := textValue(v, c.Field)
		for _, term := range c.Terms {
			if ContainsFold(s, term) {
				return true
			}
		}
		return false
	}
	return false
}

// FieldValue returns the normalized value of field for v, or nil when the
// field is unset.
func FieldValue(v *models.Video, field Field) any {
	switch field {
	case FieldID:
		return v.ID
	case FieldStatus:
		return string(v.Status)
	case FieldTitle:
		return v.Title
	case FieldDescription:
		return v.Description
	case FieldTags:
		return v.Tags
	case FieldDuration:
		return int64(v.Duration)
	case FieldViews:
		return v.Views
	case FieldLikes:
		return v.Likes
	case FieldCategoryID:
		return Normalize(v.CategoryID)
	case FieldSeriesID:
		return Normalize(v.SeriesID)
	case FieldCreatedAt:
		return v.CreatedAt
	}
	return nil
}

func textValue(v *models.Video, field Field) string {
	s, _ := FieldValue(v, field).(string)
	return s
}

// Normalize converts filter operands to one of int64, string or time.Time so
// that stores can compare and bind them uniformly. Nil pointers become nil.
func Normalize(value any) any {
	switch t := value.(type) {
	case nil:
		return nil
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case *int64:
		if t == nil {
			return nil
		}
		return *t
	case *int:
		if t == nil {
			return nil
		}
		return int64(*t)
	case models.Status:
		return string(t)
	case string:
		return t
	case time.Time:
		return t
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	}
	return value
}

func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case int64:
		y, ok := b.(int64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	return 0, false
}
