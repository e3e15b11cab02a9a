package page

import (
	"slices"
	"testing"
)

func TestPaginator(t *testing.T) {
	tests := []struct {
		name                string
		page, size, count   int
		numPages, next, prv int
		hasNext, hasPrev    bool
	}{
		{"empty", 1, 15, 0, 1, 0, 0, false, false},
		{"single page", 1, 15, 10, 1, 0, 0, false, false},
		{"first of three", 1, 15, 38, 3, 2, 0, true, false},
		{"middle", 2, 15, 38, 3, 3, 1, true, true},
		{"last", 3, 15, 38, 3, 0, 2, false, true},
		{"exact multiple", 2, 10, 20, 2, 0, 1, false, true},
		{"past the end", 9, 15, 38, 3, 0, 3, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.page, tt.size, tt.count)
			if p.NumPages() != tt.numPages {
				t.Errorf("NumPages() = %d, want %d", p.NumPages(), tt.numPages)
			}
			if p.HasNext() != tt.hasNext || p.HasPrevious() != tt.hasPrev {
				t.Errorf("HasNext=%v HasPrevious=%v", p.HasNext(), p.HasPrevious())
			}
			if p.NextPage() != tt.next || p.PreviousPage() != tt.prv {
				t.Errorf("NextPage=%d PreviousPage=%d", p.NextPage(), p.PreviousPage())
			}
			if p.HasOtherPages() != (tt.hasNext || tt.hasPrev) {
				t.Error("HasOtherPages mismatch")
			}
		})
	}
}

func TestPaginator_OutOfRange(t *testing.T) {
	if New(3, 15, 38).OutOfRange() {
		t.Error("page 3 of 3 is in range")
	}
	if !New(4, 15, 38).OutOfRange() {
		t.Error("page 4 of 3 is out of range")
	}
}

func TestPaginator_Normalizes(t *testing.T) {
	p := New(0, 0, -5)
	if p.Page() != 1 || p.Size() != 1 || p.Count() != 0 {
		t.Errorf("got page=%d size=%d count=%d", p.Page(), p.Size(), p.Count())
	}
}

func TestPaginator_Range(t *testing.T) {
	tests := []struct {
		page, count int
		want        []int
	}{
		{1, 100, []int{1, 2, 3}},
		{5, 100, []int{3, 4, 5, 6, 7}},
		{10, 100, []int{8, 9, 10}},
		{50, 100, []int{8, 9, 10}},
		{1, 0, []int{1}},
	}
	for _, tt := range tests {
		got := New(tt.page, 10, tt.count).Range(2)
		if !slices.Equal(got, tt.want) {
			t.Errorf("Range(page=%d) = %v, want %v", tt.page, got, tt.want)
		}
	}
}
