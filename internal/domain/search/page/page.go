// Package page paginates interpreted search responses.
package page

// Paginator tracks 1-based page bookkeeping for a result count.
// A page past the last one is valid: it is empty, has no next page,
// and its previous page is the last real page.
type Paginator struct {
	page  int
	size  int
	count int
}

// New creates a Paginator. Non-positive page or size values are treated as 1;
// a negative count as 0.
func New(page, size, count int) Paginator {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	if count < 0 {
		count = 0
	}
	return Paginator{page: page, size: size, count: count}
}

// Page returns the current page number.
func (p Paginator) Page() int { return p.page }

// Size returns the page size.
func (p Paginator) Size() int { return p.size }

// Count returns the total number of results.
func (p Paginator) Count() int { return p.count }

// NumPages returns the number of pages, at least 1.
func (p Paginator) NumPages() int {
	if p.count == 0 {
		return 1
	}
	return (p.count + p.size - 1) / p.size
}

// OutOfRange reports whether the current page lies past the last page.
func (p Paginator) OutOfRange() bool { return p.page > p.NumPages() }

// HasNext reports whether a following page exists.
func (p Paginator) HasNext() bool { return p.page < p.NumPages() }

// HasPrevious reports whether a preceding page exists.
func (p Paginator) HasPrevious() bool { return p.page > 1 }

// HasOtherPages reports whether navigation links make sense.
func (p Paginator) HasOtherPages() bool { return p.HasNext() || p.HasPrevious() }

// NextPage returns the following page number, 0 when there is none.
func (p Paginator) NextPage() int {
	if !p.HasNext() {
		return 0
	}
	return p.page + 1
}

// PreviousPage returns the preceding page number, 0 when there is none.
func (p Paginator) PreviousPage() int {
	if !p.HasPrevious() {
		return 0
	}
	return min(p.page-1, p.NumPages())
}

// Range returns the page numbers around the current page for a page bar,
// at most 2*radius+1 entries.
func (p Paginator) Range(radius int) []int {
	last := p.NumPages()
	cur := min(p.page, last)
	lo := max(1, cur-radius)
	hi := min(last, cur+radius)
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}
