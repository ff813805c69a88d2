package models

// Page is the backend list envelope. Both the Spring page shape (number) and the
// DTO shape (currentPage) are accepted.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        *int  `json:"number,omitempty"`
	CurrentPage   *int  `json:"currentPage,omitempty"`
	TotalPages    *int  `json:"totalPages,omitempty"`
	TotalElements int64 `json:"totalElements,omitempty"`
	Size          int   `json:"size,omitempty"`
}

// Items returns the page content, never nil.
func (p *Page[T]) Items() []T {
	if p == nil || p.Content == nil {
		return []T{}
	}
	return p.Content
}

// PageNumber resolves number, then currentPage, then 0.
func (p *Page[T]) PageNumber() int {
	if p == nil {
		return 0
	}
	if p.Number != nil && *p.Number != 0 {
		return *p.Number
	}
	if p.CurrentPage != nil {
		return *p.CurrentPage
	}
	return 0
}

// PageCount returns totalPages or 0 when absent.
func (p *Page[T]) PageCount() int {
	if p == nil || p.TotalPages == nil {
		return 0
	}
	return *p.TotalPages
}

// Pagination contains pagination metadata returned in JSON view-models.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}
