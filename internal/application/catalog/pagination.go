package catalog

import (
	"github.com/zatekoja/storefront-catalog/internal/domain/entities"
)

// Pagination holds the page bounds of the latest result
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

// PaginationFromResult derives page bounds from a result. When the API omits
// totalPages it is computed from totalProducts and the page size.
func PaginationFromResult(result *entities.CatalogResult, pageSize int) Pagination {
	if result == nil {
		return Pagination{CurrentPage: 1}
	}

	total := result.TotalPages
	if total <= 0 && result.TotalProducts > 0 && pageSize > 0 {
		total = (result.TotalProducts + pageSize - 1) / pageSize
	}

	current := result.CurrentPage
	if current < 1 {
		current = 1
	}
	return Pagination{CurrentPage: current, TotalPages: total}
}

// Next returns the following page, or the current one on the last page
func (p Pagination) Next() int {
	if p.CurrentPage >= p.TotalPages {
		return p.current()
	}
	return p.current() + 1
}

// Prev returns the preceding page, or the current one on the first page
func (p Pagination) Prev() int {
	if p.CurrentPage <= 1 {
		return p.current()
	}
	return p.CurrentPage - 1
}

// GoTo clamps n into [1, TotalPages]. With no pages known it returns 1.
func (p Pagination) GoTo(n int) int {
	last := max(p.TotalPages, 1)
	return min(max(n, 1), last)
}

// HasNext reports whether a following page exists
func (p Pagination) HasNext() bool {
	return p.CurrentPage < p.TotalPages
}

// HasPrev reports whether a preceding page exists
func (p Pagination) HasPrev() bool {
	return p.CurrentPage > 1
}

func (p Pagination) current() int {
	return max(p.CurrentPage, 1)
}
