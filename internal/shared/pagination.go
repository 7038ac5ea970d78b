package shared

// DefaultPageSize is the page size every console list asks the backend for.
const DefaultPageSize = 10

// Pagination describes the position of a one-based page within a list.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasPrev    bool `json:"hasPrev"`
	HasNext    bool `json:"hasNext"`
}

// NewPagination computes pagination metadata. TotalPages is never below 1
// so an empty list still renders as "page 1 of 1".
func NewPagination(page, pageSize, total int) Pagination {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	if total < 0 {
		total = 0
	}
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page*pageSize < total,
	}
}

// ZeroBased converts a one-based page into the backend's zero-based index.
func ZeroBased(page int) int {
	if page <= 1 {
		return 0
	}
	return page - 1
}
