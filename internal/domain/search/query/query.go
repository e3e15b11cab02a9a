package query

import (
	"fmt"

	"github.com/kailas-cloud/soundsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/order"
)

// Query limits.
const (
	// MaxTextLength is the maximum allowed free-text length.
	MaxTextLength = 4096
	// MaxPageSize is the hard upper bound on rows per page, regardless of configuration.
	MaxPageSize = 1000
)

// Facet requests value counts for one field.
type Facet struct {
	Field    string
	Limit    int
	MinCount int
}

// Highlight configures highlighted snippets on the result page.
type Highlight struct {
	Fields       []string
	FragmentSize int
	Pre          string
	Post         string
	Alternate    string
}

// Query is a normalized, immutable search descriptor.
type Query struct {
	text         string
	filter       filter.Expression
	order        order.Option
	page         int
	pageSize     int
	groupBy      string
	facets       []Facet
	returnFields []string
	highlight    *Highlight
	ids          []int64
	restricted   bool
}

// Option customizes a Query at construction time.
type Option func(*Query)

// WithGroupBy collapses results sharing the field's value.
func WithGroupBy(field string) Option {
	return func(q *Query) { q.groupBy = field }
}

// WithFacets requests facet counts.
func WithFacets(facets ...Facet) Option {
	return func(q *Query) { q.facets = append(q.facets, facets...) }
}

// WithReturnFields limits the stored fields returned per stub.
func WithReturnFields(fields ...string) Option {
	return func(q *Query) { q.returnFields = append(q.returnFields, fields...) }
}

// WithHighlight enables highlighted snippets.
func WithHighlight(h Highlight) Option {
	return func(q *Query) { q.highlight = &h }
}

// New validates and creates a Query. page and pageSize must already be normalized.
func New(text string, expr filter.Expression, o order.Option, page, pageSize int, opts ...Option) (Query, error) {
	if len(text) > MaxTextLength {
		return Query{}, fmt.Errorf("query too long (max %d chars)", MaxTextLength)
	}
	if page < 1 {
		return Query{}, fmt.Errorf("page must be positive, got %d", page)
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return Query{}, fmt.Errorf("page size must be between 1 and %d, got %d", MaxPageSize, pageSize)
	}
	if o.IsZero() {
		o = order.Default()
	}

	q := Query{
		text:     text,
		filter:   expr,
		order:    o,
		page:     page,
		pageSize: pageSize,
	}
	for _, opt := range opts {
		opt(&q)
	}
	return q, nil
}

// Text returns the free-text query; empty matches everything.
func (q Query) Text() string { return q.text }

// Filter returns the structured filter.
func (q Query) Filter() filter.Expression { return q.filter }

// Order returns the sort choice.
func (q Query) Order() order.Option { return q.order }

// Page returns the 1-based page number.
func (q Query) Page() int { return q.page }

// PageSize returns the number of rows per page.
func (q Query) PageSize() int { return q.pageSize }

// Offset returns the row offset of the page.
func (q Query) Offset() int { return (q.page - 1) * q.pageSize }

// GroupBy returns the grouping field, empty when not grouped.
func (q Query) GroupBy() string { return q.groupBy }

// Grouped reports whether results are collapsed by a field.
func (q Query) Grouped() bool { return q.groupBy != "" }

// Facets returns the facet requests.
func (q Query) Facets() []Facet { return q.facets }

// ReturnFields returns the stored fields to load per stub.
func (q Query) ReturnFields() []string { return q.returnFields }

// Highlight returns the highlighting options, nil when disabled.
func (q Query) Highlight() *Highlight { return q.highlight }

// Restricted reports whether the query is limited to an explicit id set.
func (q Query) Restricted() bool { return q.restricted }

// IDs returns the explicit id restriction.
func (q Query) IDs() []int64 { return q.ids }

// WithIDs returns a copy restricted to the given ids. An empty set matches nothing.
func (q Query) WithIDs(ids []int64) Query {
	q.ids = append([]int64(nil), ids...)
	q.restricted = true
	return q
}

// WithFilter returns a copy whose filter also requires extra.
func (q Query) WithFilter(extra filter.Expression) Query {
	q.filter = q.filter.And(extra)
	return q
}

// WithoutFacets returns a copy that requests no facets.
func (q Query) WithoutFacets() Query {
	q.facets = nil
	return q
}
