package shared

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
	From       int
	To         int
	Pages      []int
}

// pageWindow is the number of page links shown around the current page.
const pageWindow = 5

// NewPagination computes pagination metadata. A page outside the range is
// clamped; an empty listing has zero pages and stays on page 1.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 10
	}
	totalPages := (total + perPage - 1) / perPage
	if page > totalPages {
		page = totalPages
	}
	if page <= 0 {
		page = 1
	}
	p := Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
	if total > 0 {
		p.From = (page-1)*perPage + 1
		p.To = min(page*perPage, total)
	}
	p.Pages = window(page, totalPages)
	return p
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// Prev returns the previous page number.
func (p Pagination) Prev() int { return max(p.Page-1, 1) }

// Next returns the next page number.
func (p Pagination) Next() int { return min(p.Page+1, max(p.TotalPages, 1)) }

func window(page, totalPages int) []int {
	if totalPages == 0 {
		return nil
	}
	start := max(page-pageWindow/2, 1)
	end := min(start+pageWindow-1, totalPages)
	start = max(end-pageWindow+1, 1)
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}
