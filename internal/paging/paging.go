package paging

// Ellipsis marks a gap in a page window.
const Ellipsis = -1

// windowRadius is how many pages are shown on each side of the current one.
const windowRadius = 3

func TotalPages(count int, size int) int {
	if size < 1 {
		size = 1
	}
	if count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

func Clamp(page int, total int) int {
	if total < 1 {
		total = 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

type Page[T any] struct {
	Items      []T
	Current    int
	TotalPages int
	Count      int
	Window     []int
}

// Paginate slices items into the requested page, clamping the page number
// into range.
func Paginate[T any](items []T, size int, page int) Page[T] {
	if size < 1 {
		size = 1
	}
	total := TotalPages(len(items), size)
	current := Clamp(page, total)

	start := (current - 1) * size
	end := min(start+size, len(items))
	slice := []T{}
	if start < len(items) {
		slice = items[start:end]
	}
	return Page[T]{
		Items:      slice,
		Current:    current,
		TotalPages: total,
		Count:      len(items),
		Window:     Window(current, total),
	}
}

// Window lists the page numbers to offer: the first and last page, the
// pages within windowRadius of current, and Ellipsis for each gap.
func Window(current int, total int) []int {
	if total < 1 {
		total = 1
	}
	current = Clamp(current, total)

	pages := []int{1}
	if total == 1 {
		return pages
	}

	start := max(2, current-windowRadius)
	end := min(total-1, current+windowRadius)
	if start > 2 {
		pages = append(pages, Ellipsis)
	}
	for n := start; n <= end; n++ {
		pages = append(pages, n)
	}
	if end < total-1 {
		pages = append(pages, Ellipsis)
	}
	return append(pages, total)
}

// Pager tracks the current page of a list view.
type Pager struct {
	size    int
	count   int
	current int
}

func NewPager(size int) *Pager {
	if size < 1 {
		size = 1
	}
	return &Pager{size: size, current: 1}
}

func (p *Pager) Size() int { return p.size }

func (p *Pager) Current() int { return p.current }

func (p *Pager) TotalPages() int { return TotalPages(p.count, p.size) }

// SetCount records how many items the list holds and pulls the current page
// back into range.
func (p *Pager) SetCount(count int) {
	p.count = max(count, 0)
	p.current = Clamp(p.current, p.TotalPages())
}

// Reset goes back to the first page. Views call it whenever a filter changes.
func (p *Pager) Reset() {
	p.current = 1
}

// Goto moves to page n. Ellipsis and out-of-range pages are ignored.
func (p *Pager) Goto(n int) bool {
	if n == Ellipsis || n < 1 || n > p.TotalPages() {
		return false
	}
	p.current = n
	return true
}

func (p *Pager) Next() bool { return p.Goto(p.current + 1) }

func (p *Pager) Prev() bool { return p.Goto(p.current - 1) }

func (p *Pager) Window() []int {
	return Window(p.current, p.TotalPages())
}
