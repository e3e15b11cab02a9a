package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/soundsearch/internal/domain"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/order"
)

// SoundGroupField is the index field sound results are grouped by.
const SoundGroupField = "grouping_pack"

// SoundFacets are the facet counts shown next to sound results.
var SoundFacets = []Facet{
	{Field: "samplerate", Limit: 10, MinCount: 1},
	{Field: "pack_grouped", Limit: 10, MinCount: 1},
	{Field: "username", Limit: 30, MinCount: 1},
	{Field: "tag", Limit: 30, MinCount: 1},
	{Field: "bitrate", Limit: 10, MinCount: 1},
	{Field: "bitdepth", Limit: 10, MinCount: 1},
	{Field: "type", Limit: 10, MinCount: 1},
	{Field: "channels", Limit: 10, MinCount: 1},
}

// Params are the raw request parameters of a sound search.
type Params struct {
	Query     string // q
	Filter    string // f
	Sort      string // s
	Page      string // p
	PageSize  string // sounds_per_page
	Group     string // g
	Fields    string // fields
	ClusterID string // cluster_id
}

// Grouping reports whether g asks for grouped results.
func (p Params) Grouping() bool {
	g := strings.TrimSpace(p.Group)
	return g != "" && g != "0"
}

// Limits bound the page size.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Builder turns raw Params into a Query.
type Builder struct {
	limits     Limits
	groupField string
	facets     []Facet
	fields     []string
	web        bool
}

// NewSoundBuilder creates a builder for the API sound search.
func NewSoundBuilder(limits Limits) *Builder {
	if limits.DefaultPageSize <= 0 {
		limits.DefaultPageSize = 15
	}
	if limits.MaxPageSize <= 0 || limits.MaxPageSize > MaxPageSize {
		limits.MaxPageSize = MaxPageSize
	}
	if limits.DefaultPageSize > limits.MaxPageSize {
		limits.DefaultPageSize = limits.MaxPageSize
	}
	return &Builder{
		limits:     limits,
		groupField: SoundGroupField,
		facets:     SoundFacets,
		fields:     []string{"id"},
	}
}

// ForWeb returns a copy that also accepts the web sort labels.
func (b *Builder) ForWeb() *Builder {
	c := *b
	c.web = true
	return &c
}

// Limits returns the page-size bounds.
func (b *Builder) Limits() Limits { return b.limits }

// Build validates p and produces a Query. Sort and text errors are ValidationErrors;
// a filter that does not parse is a QuerySyntaxError.
func (b *Builder) Build(p Params) (Query, error) {
	text := strings.TrimSpace(p.Query)
	if len(text) > MaxTextLength {
		return Query{}, domain.NewValidationError("q", fmt.Sprintf("must be at most %d characters", MaxTextLength))
	}

	lookup := order.Lookup
	if b.web {
		lookup = order.LookupWeb
	}
	o, ok := lookup(p.Sort)
	if !ok {
		return Query{}, domain.NewValidationError("s", fmt.Sprintf("unknown sort option %q", p.Sort))
	}

	expr, err := filter.Parse(p.Filter)
	if err != nil {
		return Query{}, domain.NewQuerySyntax(p.Filter, err.Error())
	}

	opts := []Option{
		WithFacets(b.facets...),
		WithReturnFields(b.fields...),
	}
	if p.Grouping() {
		opts = append(opts, WithGroupBy(b.groupField))
	}

	q, err := New(text, expr, o, ParsePage(p.Page), b.PageSize(p.PageSize), opts...)
	if err != nil {
		return Query{}, domain.NewValidationError("q", err.Error())
	}
	return q, nil
}

// PageSize parses a requested page size, falling back to the default and
// clamping to the configured maximum.
func (b *Builder) PageSize(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return b.limits.DefaultPageSize
	}
	return min(n, b.limits.MaxPageSize)
}

// ParsePage parses a 1-based page number; anything invalid is page 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
