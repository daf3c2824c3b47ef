package domain

// PaginationParams holds offset-based pagination parameters for list queries.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Offset returns the record offset for the current page (0-based).
// Formula: (Page - 1) * PageSize.
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Window returns the number of records needed to serve the page from the
// start of a list, i.e. Offset() + PageSize.
func (p PaginationParams) Window() int {
	return p.Offset() + p.PageSize
}

// Paginate returns the page p of items. An out-of-range page is empty.
func Paginate[T any](items []T, p PaginationParams) []T {
	off := p.Offset()
	if off >= len(items) || p.PageSize <= 0 {
		return []T{}
	}
	return items[off:min(p.Window(), len(items))]
}
