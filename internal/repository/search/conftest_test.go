package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/soundsearch/internal/db"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/order"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/query"
	"github.com/kailas-cloud/soundsearch/internal/repository/index"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFn func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	groupFn  func(ctx context.Context, q *db.GroupQuery) (*db.GroupResult, error)
	facetsFn func(ctx context.Context, q *db.FacetQuery) (map[string][]db.FacetBucket, error)
}

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) Group(ctx context.Context, q *db.GroupQuery) (*db.GroupResult, error) {
	if m.groupFn != nil {
		return m.groupFn(ctx, q)
	}
	return &db.GroupResult{}, nil
}

func (m *mockStore) Facets(ctx context.Context, q *db.FacetQuery) (map[string][]db.FacetBucket, error) {
	if m.facetsFn != nil {
		return m.facetsFn(ctx, q)
	}
	return map[string][]db.FacetBucket{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, index.Sounds("t:", "t:sounds")), ms
}

func mustQuery(t *testing.T, text, f, sort string, page, size int, opts ...query.Option) query.Query {
	t.Helper()
	expr, err := filter.Parse(f)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	o, ok := order.Lookup(sort)
	if !ok {
		t.Fatalf("unknown sort %q", sort)
	}
	q, err := query.New(text, expr, o, page, size, opts...)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return q
}

func entry(key string, fields ...string) db.SearchEntry {
	m := make(map[string]string, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		m[fields[i]] = fields[i+1]
	}
	return db.SearchEntry{Key: key, Fields: m}
}
