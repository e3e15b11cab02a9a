// Package forum implements forum post search.
package forum

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kailas-cloud/soundsearch/internal/domain"
	domforum "github.com/kailas-cloud/soundsearch/internal/domain/forum"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/order"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/page"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/query"
)

// Index layout of forum posts.
const (
	groupField    = "thread_title_grouped"
	bodyField     = "post_body"
	fragmentSize  = 200
	slugField     = "forum_name_slug"
	createdField  = "thread_created"
	ignoredPrefix = "search in"
)

var returnFields = []string{
	"id", "forum_name", "forum_name_slug", "thread_id", "thread_title",
	"thread_author", "thread_created", "post_author", "post_created", "num_posts",
}

// Params are the raw request parameters of a forum search.
type Params struct {
	Query    string // q
	Filter   string // f
	Page     string // page
	Forum    string // forum
	Advanced string // advanced_search
	DateFrom string // dt_from
	DateTo   string // dt_to
}

// Result is one page of forum posts.
type Result struct {
	Posts []domforum.Post
	Count int
	// Searched is false when there was nothing to search for.
	Searched  bool
	Forum     *domforum.Forum
	Paginator page.Paginator
	// DateFrom and DateTo echo the accepted date bounds, empty when invalid.
	DateFrom string
	DateTo   string
}

// Service searches forum posts, one post per thread.
type Service struct {
	index    Index
	forums   Forums
	pageSize int
}

// New creates a forum search service.
func New(index Index, forums Forums, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 15
	}
	return &Service{index: index, forums: forums, pageSize: pageSize}
}

// Search runs a forum search. An unknown forum slug is domain.ErrNotFound.
// Empty text with an empty filter skips the index.
func (s *Service) Search(ctx context.Context, p Params) (Result, error) {
	pageNum := query.ParsePage(p.Page)
	res := Result{Posts: []domforum.Post{}, Paginator: page.New(pageNum, s.pageSize, 0)}

	if slug := strings.TrimSpace(p.Forum); slug != "" {
		f, err := s.forums.BySlug(ctx, slug)
		if err != nil {
			return Result{}, err
		}
		res.Forum = &f
	}

	from, fromOK := domforum.ParseDate(p.DateFrom)
	to, toOK := domforum.ParseDate(p.DateTo)
	if fromOK {
		res.DateFrom = p.DateFrom
	}
	if toOK {
		res.DateTo = p.DateTo
	}

	text := p.Query
	if strings.HasPrefix(text, ignoredPrefix) {
		text = ""
	}
	text = strings.TrimSpace(text)
	if text == "" && p.Filter == "" {
		return res, nil
	}

	expr, err := filter.Parse(p.Filter)
	if err != nil {
		return Result{}, domain.NewQuerySyntax(p.Filter, err.Error())
	}
	if res.Forum != nil {
		c, err := filter.NewPhrase(slugField, res.Forum.Slug)
		if err != nil {
			return Result{}, err
		}
		if expr, err = narrow(expr, c); err != nil {
			return Result{}, domain.NewValidationError("f", err.Error())
		}
	}
	if (p.Advanced == "1" && fromOK) || toOK {
		c, err := dateRange(from, fromOK, to, toOK)
		if err != nil {
			return Result{}, err
		}
		if expr, err = narrow(expr, c); err != nil {
			return Result{}, domain.NewValidationError("f", err.Error())
		}
	}

	q, err := query.New(text, expr, order.Forum(), pageNum, s.pageSize,
		query.WithGroupBy(groupField),
		query.WithReturnFields(returnFields...),
		query.WithHighlight(query.Highlight{
			Fields:       []string{bodyField},
			FragmentSize: fragmentSize,
			Pre:          "<strong>",
			Post:         "</strong>",
			Alternate:    bodyField,
		}),
	)
	if err != nil {
		return Result{}, domain.NewValidationError("q", err.Error())
	}

	resp, err := s.index.Search(ctx, q)
	if err != nil {
		return Result{}, fmt.Errorf("search forum: %w", err)
	}

	res.Searched = true
	res.Count = resp.Total
	res.Paginator = page.New(pageNum, s.pageSize, resp.Total)
	for _, st := range resp.Stubs {
		res.Posts = append(res.Posts, domforum.PostFromStub(st))
	}
	return res, nil
}

// narrow adds c to the required conditions of expr, keeping the per-group limits.
func narrow(expr filter.Expression, c filter.Condition) (filter.Expression, error) {
	must := append(slices.Clone(expr.Must()), c)
	return filter.NewExpression(must, expr.AnyOf(), expr.MustNot())
}

// dateRange bounds thread creation from the start of the from day up to the
// start of the to day; posts made on the to day itself fall outside.
func dateRange(from time.Time, fromOK bool, to time.Time, toOK bool) (filter.Condition, error) {
	var gte, lte *float64
	if fromOK {
		v := float64(from.Unix())
		gte = &v
	}
	if toOK {
		v := float64(to.Unix())
		lte = &v
	}
	r, err := filter.NewRangeFilter(nil, gte, nil, lte)
	if err != nil {
		return filter.Condition{}, err
	}
	return filter.NewRange(createdField, r)
}
