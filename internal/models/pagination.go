package models

// Page is the paginated envelope used by every list endpoint.
type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// Pagination contains pagination metadata of the last loaded page.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// Meta strips the items off a page.
func (p Page[T]) Meta() Pagination {
	return Pagination{Page: p.Page, PageSize: p.PageSize, Total: p.Total}
}
