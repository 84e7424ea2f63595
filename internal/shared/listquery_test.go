package shared

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type row struct {
	Name     string
	Customer *string
	Total    float64
	At       time.Time
}

func rowView() ListView[row] {
	return ListView[row]{
		SortKeys: func(r row, column string) (SortKey, bool) {
			switch column {
			case "name":
				return TextKey(r.Name), true
			case "customer":
				if r.Customer == nil {
					return NullKey(SortText), true
				}
				return TextKey(*r.Customer), true
			case "total":
				return NumberKey(r.Total), true
			case "at":
				return TimeKey(r.At), true
			}
			return SortKey{}, false
		},
		SearchText: func(r row) []string { return []string{r.Name} },
		Timestamp:  func(r row) time.Time { return r.At },
	}
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 12, 0, 0, 0, time.UTC)
}

func sampleRows() []row {
	alice := "Alice"
	bob := "bob"
	return []row{
		{Name: "Rice", Customer: &bob, Total: 20, At: day(3)},
		{Name: "Oil", Customer: nil, Total: 5, At: day(1)},
		{Name: "Noodles", Customer: &alice, Total: 12, At: day(2)},
	}
}

func TestParseListParams(t *testing.T) {
	q := url.Values{}
	q.Set("sort", "total")
	q.Set("dir", "desc")
	q.Set("search", "  rice ")
	q.Set("page", "2")
	q.Set("per_page", "50")
	q.Set("from", "2026-03-01")
	q.Set("to", "2026-03-02")

	p := ParseListParams(q)
	require.Equal(t, "total", p.Sort)
	require.True(t, p.Desc)
	require.Equal(t, "rice", p.Search)
	require.Equal(t, 2, p.Page)
	require.Equal(t, 50, p.PerPage)
	require.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), p.From)
	// The "to" bound covers its whole day.
	require.True(t, p.To.After(time.Date(2026, time.March, 2, 23, 59, 59, 0, time.UTC)))
}

func TestParseListParamsDefaults(t *testing.T) {
	p := ParseListParams(url.Values{})
	require.Equal(t, 1, p.Page)
	require.Equal(t, PageSizes[1], p.PerPage)
	require.True(t, p.From.IsZero())
	require.True(t, p.To.IsZero())

	q := url.Values{}
	q.Set("page", "-3")
	q.Set("per_page", "33")
	p = ParseListParams(q)
	require.Equal(t, 1, p.Page)
	require.Equal(t, PageSizes[1], p.PerPage)
}

func TestApplySortAscDesc(t *testing.T) {
	view := rowView()

	page, _, _ := view.Apply(sampleRows(), ListParams{Sort: "total", Page: 1, PerPage: 10})
	require.Equal(t, []float64{5, 12, 20}, []float64{page[0].Total, page[1].Total, page[2].Total})

	page, _, _ = view.Apply(sampleRows(), ListParams{Sort: "total", Desc: true, Page: 1, PerPage: 10})
	require.Equal(t, []float64{20, 12, 5}, []float64{page[0].Total, page[1].Total, page[2].Total})
}

func TestApplyTextSortIsCaseInsensitive(t *testing.T) {
	view := rowView()

	page, _, _ := view.Apply(sampleRows(), ListParams{Sort: "customer", Page: 1, PerPage: 10})
	require.Equal(t, "Noodles", page[0].Name)
	require.Equal(t, "Rice", page[1].Name)
}

func TestApplyNullsSortLastBothDirections(t *testing.T) {
	view := rowView()

	page, _, _ := view.Apply(sampleRows(), ListParams{Sort: "customer", Page: 1, PerPage: 10})
	require.Nil(t, page[2].Customer)

	page, _, _ = view.Apply(sampleRows(), ListParams{Sort: "customer", Desc: true, Page: 1, PerPage: 10})
	require.Nil(t, page[2].Customer)
}

func TestApplySearchFilters(t *testing.T) {
	view := rowView()

	page, filtered, meta := view.Apply(sampleRows(), ListParams{Search: "RIC", Page: 1, PerPage: 10})
	require.Len(t, page, 1)
	require.Len(t, filtered, 1)
	require.Equal(t, "Rice", page[0].Name)
	require.Equal(t, 1, meta.Total)
}

func TestApplyDateRange(t *testing.T) {
	view := rowView()
	p := ListParams{From: day(2).Truncate(24 * time.Hour), To: day(2), Page: 1, PerPage: 10}

	page, _, _ := view.Apply(sampleRows(), p)
	require.Len(t, page, 1)
	require.Equal(t, "Noodles", page[0].Name)
}

func TestApplyUnknownSortKeepsOrder(t *testing.T) {
	view := rowView()

	page, _, _ := view.Apply(sampleRows(), ListParams{Sort: "bogus", Page: 1, PerPage: 10})
	require.Equal(t, "Rice", page[0].Name)
	require.Equal(t, "Oil", page[1].Name)
}

func TestApplyPaginates(t *testing.T) {
	view := rowView()
	rows := make([]row, 0, 30)
	for i := 0; i < 30; i++ {
		rows = append(rows, row{Name: "Item", Total: float64(i), At: day(1)})
	}

	page, filtered, meta := view.Apply(rows, ListParams{Sort: "total", Page: 3, PerPage: 10})
	require.Len(t, page, 10)
	require.Len(t, filtered, 30)
	require.Equal(t, 20.0, page[0].Total)
	require.Equal(t, 3, meta.TotalPages)

	// Pages past the end clamp to the last page.
	page, _, meta = view.Apply(rows, ListParams{Sort: "total", Page: 9, PerPage: 10})
	require.Equal(t, 3, meta.Page)
	require.Len(t, page, 10)
}

func TestApplyEmptyInput(t *testing.T) {
	view := rowView()

	page, filtered, meta := view.Apply(nil, ListParams{Sort: "total", Page: 1, PerPage: 10})
	require.Empty(t, page)
	require.Empty(t, filtered)
	require.Equal(t, 0, meta.Total)
	require.Equal(t, 0, meta.TotalPages)
}
