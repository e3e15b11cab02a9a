package breaker

import (
	"context"

	"github.com/kailas-cloud/soundsearch/internal/db"
)

// Compile-time check: Searcher implements db.Searcher.
var _ db.Searcher = (*Searcher)(nil)

// Searcher decorates a db.Searcher with a breaker.
type Searcher struct {
	next db.Searcher
	b    *Breaker
}

// NewSearcher wraps next.
func NewSearcher(next db.Searcher, b *Breaker) *Searcher {
	return &Searcher{next: next, b: b}
}

// Search implements db.Searcher.
func (s *Searcher) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	return Do(s.b, func() (*db.SearchResult, error) { return s.next.Search(ctx, q) })
}

// SearchCount implements db.Searcher.
func (s *Searcher) SearchCount(ctx context.Context, m *db.Match) (int, error) {
	return Do(s.b, func() (int, error) { return s.next.SearchCount(ctx, m) })
}

// Group implements db.Searcher.
func (s *Searcher) Group(ctx context.Context, q *db.GroupQuery) (*db.GroupResult, error) {
	return Do(s.b, func() (*db.GroupResult, error) { return s.next.Group(ctx, q) })
}

// Facets implements db.Searcher.
func (s *Searcher) Facets(ctx context.Context, q *db.FacetQuery) (map[string][]db.FacetBucket, error) {
	return Do(s.b, func() (map[string][]db.FacetBucket, error) { return s.next.Facets(ctx, q) })
}
