package filters

// MaxVisiblePages is the number of page buttons shown around the current page.
const MaxVisiblePages = 5

// Meta describes one page of a filtered listing.
type Meta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// NewMeta derives page metadata from an exact row count.
func NewMeta(total, page, pageSize int) Meta {
	return Meta{
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: TotalPages(total, pageSize),
	}
}

// TotalPages returns ceil(total/pageSize); zero when there are no rows.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// PageWindow is the set of page buttons a pagination control renders.
// First and Last are zero when the corresponding shortcut is not shown.
type PageWindow struct {
	Pages       []int `json:"pages"`
	First       int   `json:"first,omitempty"`
	Last        int   `json:"last,omitempty"`
	LeadingGap  bool  `json:"leadingGap"`
	TrailingGap bool  `json:"trailingGap"`
	HasPrev     bool  `json:"hasPrev"`
	HasNext     bool  `json:"hasNext"`
}

// Window centres up to maxVisible page numbers on page, sliding the range
// when it would run past either end, and adds first/last shortcuts with gap
// markers when pages are skipped.
func Window(page, totalPages, maxVisible int) PageWindow {
	w := PageWindow{
		Pages:   []int{},
		HasPrev: page > 1,
		HasNext: page < totalPages,
	}
	if totalPages <= 0 || maxVisible <= 0 {
		return w
	}

	start := max(1, page-maxVisible/2)
	end := min(totalPages, start+maxVisible-1)
	if end-start+1 < maxVisible {
		start = max(1, end-maxVisible+1)
	}

	if start > 1 {
		w.First = 1
		w.LeadingGap = start > 2
	}
	for p := start; p <= end; p++ {
		w.Pages = append(w.Pages, p)
	}
	if end < totalPages {
		w.Last = totalPages
		w.TrailingGap = end < totalPages-1
	}
	return w
}

// Links holds ready-made query strings for navigating a listing.
type Links struct {
	Self  string `json:"self"`
	First string `json:"first"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
	Last  string `json:"last,omitempty"`
}

// Pager is implemented by filter sets that can address one of their pages.
type Pager interface {
	PageQuery(page int) string
}

// NewLinks builds navigation links for the page described by m.
func NewLinks(f Pager, m Meta) Links {
	l := Links{
		Self:  f.PageQuery(m.Page),
		First: f.PageQuery(1),
	}
	if m.Page > 1 {
		l.Prev = f.PageQuery(min(m.Page-1, max(m.TotalPages, 1)))
	}
	if m.Page < m.TotalPages {
		l.Next = f.PageQuery(m.Page + 1)
	}
	if m.TotalPages > 0 {
		l.Last = f.PageQuery(m.TotalPages)
	}
	return l
}
