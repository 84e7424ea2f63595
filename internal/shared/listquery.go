package shared

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ListParams capture the derived-view state of a list page: one sort
// column, a substring search, an inclusive date range, and pagination.
type ListParams struct {
	Sort    string
	Desc    bool
	Search  string
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}

// ParseListParams reads list state from query parameters. Dates use the
// 2006-01-02 form; the "to" bound is widened to the end of its day so
// the range is inclusive.
func ParseListParams(q url.Values) ListParams {
	p := ListParams{
		Sort:   q.Get("sort"),
		Desc:   q.Get("dir") == "desc",
		Search: strings.TrimSpace(q.Get("search")),
		Page:   1,
		PerPage: PageSizes[1],
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && validPageSize(v) {
		p.PerPage = v
	}
	if t, err := time.Parse("2006-01-02", q.Get("from")); err == nil {
		p.From = t
	}
	if t, err := time.Parse("2006-01-02", q.Get("to")); err == nil {
		p.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	return p
}

// SortKey is a type-aware comparable view of one row's sort column.
// Exactly one of the value fields is meaningful depending on Kind;
// Null marks absent values, which sort last in either direction.
type SortKey struct {
	Kind   SortKind
	Null   bool
	Number float64
	Text   string
	Time   time.Time
}

// SortKind selects the comparator for a column.
type SortKind int

const (
	// SortNumeric compares as float64.
	SortNumeric SortKind = iota
	// SortText compares case-insensitively.
	SortText
	// SortTime compares as timestamps.
	SortTime
)

// NumberKey builds a numeric sort key.
func NumberKey(v float64) SortKey { return SortKey{Kind: SortNumeric, Number: v} }

// TextKey builds a lexicographic sort key.
func TextKey(v string) SortKey {
	return SortKey{Kind: SortText, Text: v, Null: v == ""}
}

// TimeKey builds a timestamp sort key.
func TimeKey(v time.Time) SortKey {
	return SortKey{Kind: SortTime, Time: v, Null: v.IsZero()}
}

// NullKey builds an absent value for any column kind.
func NullKey(kind SortKind) SortKey { return SortKey{Kind: kind, Null: true} }

var caseInsensitive = collate.New(language.Und, collate.Loose)

func compareKeys(a, b SortKey) int {
	switch {
	case a.Null && b.Null:
		return 0
	case a.Null:
		return 1
	case b.Null:
		return -1
	}
	switch a.Kind {
	case SortNumeric:
		switch {
		case a.Number < b.Number:
			return -1
		case a.Number > b.Number:
			return 1
		}
		return 0
	case SortTime:
		switch {
		case a.Time.Before(b.Time):
			return -1
		case a.Time.After(b.Time):
			return 1
		}
		return 0
	default:
		return caseInsensitive.CompareString(a.Text, b.Text)
	}
}

// ListView describes how a row type participates in derived views.
type ListView[T any] struct {
	// SortKeys maps a sort column name to that row's key.
	SortKeys func(row T, column string) (SortKey, bool)
	// SearchText returns the fields matched by the substring filter.
	SearchText func(row T) []string
	// Timestamp returns the value tested against the date range.
	Timestamp func(row T) time.Time
}

// Apply recomputes the derived view: filter, sort, then paginate.
// The full filtered slice is returned alongside the requested page so
// exports can cover the whole filtered view.
func (v ListView[T]) Apply(rows []T, p ListParams) (page []T, filtered []T, meta Pagination) {
	filtered = make([]T, 0, len(rows))
	needle := strings.ToLower(p.Search)
	for _, row := range rows {
		if needle != "" && v.SearchText != nil {
			matched := false
			for _, field := range v.SearchText(row) {
				if strings.Contains(strings.ToLower(field), needle) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if v.Timestamp != nil && (!p.From.IsZero() || !p.To.IsZero()) {
			at := v.Timestamp(row)
			if !p.From.IsZero() && at.Before(p.From) {
				continue
			}
			if !p.To.IsZero() && at.After(p.To) {
				continue
			}
		}
		filtered = append(filtered, row)
	}

	if p.Sort != "" && v.SortKeys != nil && len(filtered) > 0 {
		if _, ok := v.SortKeys(filtered[0], p.Sort); ok {
			sort.SliceStable(filtered, func(i, j int) bool {
				a, _ := v.SortKeys(filtered[i], p.Sort)
				b, _ := v.SortKeys(filtered[j], p.Sort)
				c := compareKeys(a, b)
				// Nulls stay last regardless of direction.
				if a.Null != b.Null {
					return c < 0
				}
				if p.Desc {
					return c > 0
				}
				return c < 0
			})
		}
	}

	meta = NewPagination(p.Page, p.PerPage, len(filtered))
	start := (meta.Page - 1) * meta.PerPage
	if start >= len(filtered) {
		return []T{}, filtered, meta
	}
	end := start + meta.PerPage
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], filtered, meta
}
