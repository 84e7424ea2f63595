package shared

import "math"

// PageSizes are the page-size choices offered by list views.
var PageSizes = []int{10, 25, 50, 100}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata. Per-page values outside
// the fixed choices are clamped to the default.
func NewPagination(page, perPage, total int) Pagination {
	if !validPageSize(perPage) {
		perPage = PageSizes[1]
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

func validPageSize(n int) bool {
	for _, s := range PageSizes {
		if n == s {
			return true
		}
	}
	return false
}
