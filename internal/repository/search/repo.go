package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/soundsearch/internal/db"
	"github.com/kailas-cloud/soundsearch/internal/domain"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/order"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/query"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	Group(ctx context.Context, q *db.GroupQuery) (*db.GroupResult, error)
	Facets(ctx context.Context, q *db.FacetQuery) (map[string][]db.FacetBucket, error)
}

// Repo runs queries against one FT index and interprets the responses.
type Repo struct {
	store store
	index *db.IndexDefinition
}

// New creates a search repository over index.
func New(s store, index *db.IndexDefinition) *Repo {
	return &Repo{store: s, index: index}
}

// Index returns the index definition.
func (r *Repo) Index() *db.IndexDefinition { return r.index }

// Search runs q and returns stubs in engine order plus totals and facets.
// Facets are fetched concurrently with the page.
func (r *Repo) Search(ctx context.Context, q query.Query) (result.Response, error) {
	var (
		resp   result.Response
		facets result.Facets
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if q.Grouped() {
			resp, err = r.grouped(gctx, q)
		} else {
			resp, err = r.flat(gctx, q)
		}
		return err
	})
	if len(q.Facets()) > 0 {
		g.Go(func() error {
			var err error
			facets, err = r.facets(gctx, q)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return result.Response{}, translate(q, err)
	}

	resp.Facets = facets
	return resp, nil
}

// Facets returns only the facet counts of q.
func (r *Repo) Facets(ctx context.Context, q query.Query) (result.Facets, error) {
	facets, err := r.facets(ctx, q)
	if err != nil {
		return nil, translate(q, err)
	}
	return facets, nil
}

func (r *Repo) flat(ctx context.Context, q query.Query) (result.Response, error) {
	sq := r.searchQuery(q)
	sq.Offset = q.Offset()
	sq.Limit = q.PageSize()

	sr, err := r.store.Search(ctx, sq)
	if err != nil {
		return result.Response{}, err
	}

	stubs := make([]result.Stub, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		if stub, ok := r.stub(e, q.Highlight()); ok {
			stubs = append(stubs, stub)
		}
	}
	return result.Response{Stubs: stubs, Total: sr.Total, NonGroupedTotal: sr.Total}, nil
}

// grouped pages over groups, then hydrates the representative documents
// with a second search restricted to their keys.
func (r *Repo) grouped(ctx context.Context, q query.Query) (result.Response, error) {
	gr, err := r.store.Group(ctx, &db.GroupQuery{
		Match:   r.match(q),
		GroupBy: q.GroupBy(),
		SortBy:  sortBy(q.Order()),
		Offset:  q.Offset(),
		Limit:   q.PageSize(),
	})
	if err != nil {
		return result.Response{}, err
	}

	resp := result.Response{Total: gr.TotalGroups, NonGroupedTotal: gr.TotalDocs}
	if len(gr.Groups) == 0 {
		return resp, nil
	}

	keys := make([]string, 0, len(gr.Groups))
	for _, g := range gr.Groups {
		if g.Key != "" {
			keys = append(keys, g.Key)
		}
	}

	byKey := make(map[string]db.SearchEntry, len(keys))
	if len(keys) > 0 {
		sq := r.searchQuery(q)
		sq.Keys = keys
		sq.Limit = len(keys)
		sr, err := r.store.Search(ctx, sq)
		if err != nil {
			return result.Response{}, err
		}
		for _, e := range sr.Entries {
			byKey[e.Key] = e
		}
	}

	resp.Stubs = make([]result.Stub, 0, len(gr.Groups))
	for _, g := range gr.Groups {
		e, ok := byKey[g.Key]
		if !ok {
			e = db.SearchEntry{Key: g.Key}
		}
		stub, ok := r.stub(e, q.Highlight())
		if !ok {
			continue
		}
		resp.Stubs = append(resp.Stubs, stub.WithGroup(g.Value, g.Count))
	}
	return resp, nil
}

func (r *Repo) facets(ctx context.Context, q query.Query) (result.Facets, error) {
	fields := make([]db.FacetField, len(q.Facets()))
	for i, f := range q.Facets() {
		fields[i] = db.FacetField{Name: f.Field, Limit: f.Limit, MinCount: f.MinCount}
	}

	buckets, err := r.store.Facets(ctx, &db.FacetQuery{Match: r.match(q), Fields: fields})
	if err != nil {
		return nil, err
	}

	out := make(result.Facets, len(buckets))
	for field, bs := range buckets {
		values := make([]result.FacetValue, len(bs))
		for i, b := range bs {
			values[i] = result.FacetValue{Value: b.Value, Count: b.Count}
		}
		out[field] = values
	}
	return out, nil
}

func (r *Repo) match(q query.Query) db.Match {
	return db.Match{
		Index:      r.index,
		Text:       q.Text(),
		Filter:     q.Filter(),
		IDs:        q.IDs(),
		Restricted: q.Restricted(),
	}
}

func (r *Repo) searchQuery(q query.Query) *db.SearchQuery {
	sq := &db.SearchQuery{
		Match:  r.match(q),
		Return: q.ReturnFields(),
		SortBy: sortBy(q.Order()),
	}
	if h := q.Highlight(); h != nil {
		sq.Highlight = &db.Highlight{
			Fields:        h.Fields,
			Open:          h.Pre,
			Close:         h.Post,
			FragmentWords: fragmentWords(h.FragmentSize),
		}
		if h.Alternate != "" && !slices.Contains(sq.Return, h.Alternate) {
			sq.Return = append(append([]string(nil), sq.Return...), h.Alternate)
		}
	}
	return sq
}

// stub builds a result stub; the id comes from the id field or the key suffix.
func (r *Repo) stub(e db.SearchEntry, h *query.Highlight) (result.Stub, bool) {
	raw := e.Fields[r.index.IDField]
	if raw == "" {
		raw = strings.TrimPrefix(e.Key, r.index.KeyPrefix())
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return result.Stub{}, false
	}

	var highlights map[string]string
	if h != nil {
		highlights = make(map[string]string, len(h.Fields))
		for _, f := range h.Fields {
			v := e.Fields[f]
			if v == "" && h.Alternate != "" {
				v = e.Fields[h.Alternate]
			}
			if v != "" {
				highlights[f] = v
			}
		}
	}
	return result.NewStub(id, e.Fields, highlights), true
}

func sortBy(o order.Option) *db.SortBy {
	if o.IsZero() || o.IsRelevance() {
		return nil
	}
	return &db.SortBy{Field: o.Field(), Desc: o.Direction() == order.Desc}
}

// fragmentWords converts a fragment size in characters into summarize words.
func fragmentWords(chars int) int {
	if chars <= 0 {
		return 0
	}
	return max(chars/7, 1)
}

// translate maps store failures onto domain errors; raw transport errors never escape.
func translate(q query.Query, err error) error {
	if errors.Is(err, db.ErrSyntax) {
		return domain.NewQuerySyntax(q.Text(), err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
}
