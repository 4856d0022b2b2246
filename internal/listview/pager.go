package listview

// DefaultLimit is the number of listings shown per page.
const DefaultLimit = 20

// Pager computes pagination for a list of Total items.
type Pager struct {
	Page  int // 1-based
	Limit int
	Total int64
}

// NewPager normalizes page and limit. A limit outside 1..100 falls back to
// DefaultLimit.
func NewPager(page, limit int, total int64) Pager {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = DefaultLimit
	}
	return Pager{Page: page, Limit: limit, Total: total}
}

// Start is the zero-based index of the first item on the page.
func (p Pager) Start() int {
	return (p.Page - 1) * p.Limit
}

// Pages returns ceil(Total/Limit).
func (p Pager) Pages() int {
	if p.Total <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
}

func (p Pager) CanNext() bool { return p.Page < p.Pages() }
func (p Pager) CanPrev() bool { return p.Page > 1 }
