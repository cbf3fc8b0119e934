package dto

import "net/url"

// ListQuery is the generic filter for reference-entity list calls.
type ListQuery struct {
	Page     int
	PageSize int
	Filters  map[string]string
}

// Values encodes paging plus any extra equality filters.
func (q ListQuery) Values() url.Values {
	values := pageValues(q.Page, q.PageSize)
	for key, value := range q.Filters {
		if value != "" {
			values.Set(key, value)
		}
	}
	return values
}
