package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 35)
	require.Equal(t, 2, p.Page)
	require.Equal(t, 10, p.PerPage)
	require.Equal(t, 35, p.Total)
	require.Equal(t, 4, p.TotalPages)
}

func TestNewPaginationClampsPerPage(t *testing.T) {
	p := NewPagination(1, 33, 100)
	require.Equal(t, PageSizes[1], p.PerPage)

	p = NewPagination(1, 0, 100)
	require.Equal(t, PageSizes[1], p.PerPage)
}

func TestNewPaginationClampsPage(t *testing.T) {
	p := NewPagination(0, 10, 35)
	require.Equal(t, 1, p.Page)

	p = NewPagination(9, 10, 35)
	require.Equal(t, 4, p.Page)

	// No rows: page stays as requested floor, zero pages.
	p = NewPagination(5, 10, 0)
	require.Equal(t, 5, p.Page)
	require.Equal(t, 0, p.TotalPages)
}
