package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/soundsearch/internal/domain"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/order"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/page"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/query"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/result"
	domsound "github.com/kailas-cloud/soundsearch/internal/domain/sound"
	"github.com/kailas-cloud/soundsearch/internal/logger"
)

// packTagsLimit caps the tag cloud of a pack.
const packTagsLimit = 20

// Request is one sound search.
type Request struct {
	Params query.Params
	// Values are the raw request parameters; they identify the clustering computation.
	Values url.Values
	// Web accepts the human sort labels of the search page.
	Web bool
}

// Hit is a reconciled search result: the index stub and its authoritative record.
type Hit struct {
	Stub   result.Stub
	Record domsound.Record
}

// MoreFromPack returns how many other matches share the hit's pack when grouped.
func (h Hit) MoreFromPack() int { return h.Stub.MoreInGroup() }

// Result is a reconciled page of sound results.
type Result struct {
	Query query.Query
	Hits  []Hit
	// Count is the engine total minus the stubs dropped on this page.
	Count int
	// NonGroupedCount is the number of matching sounds regardless of grouping.
	NonGroupedCount int
	Dropped         int
	Facets          result.Facets
	Paginator       page.Paginator
}

// Service runs sound searches and reconciles them with the record store.
type Service struct {
	index    Index
	records  Records
	clusters Clusters
	api      *query.Builder
	web      *query.Builder
	observer Observer
}

// New creates a sound search service. clusters may be nil when clustering is disabled.
func New(index Index, records Records, clusters Clusters, limits query.Limits) *Service {
	api := query.NewSoundBuilder(limits)
	return &Service{
		index:    index,
		records:  records,
		clusters: clusters,
		api:      api,
		web:      api.ForWeb(),
	}
}

// WithWebPageSize sets the default page size of the search page.
func (s *Service) WithWebPageSize(n int) *Service {
	limits := s.api.Limits()
	limits.DefaultPageSize = n
	s.web = query.NewSoundBuilder(limits).ForWeb()
	return s
}

// WithObserver reports reconciliation outcomes to o.
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// Limits returns the page-size bounds of the API builder.
func (s *Service) Limits() query.Limits { return s.api.Limits() }

// Search builds the query, runs it and reconciles the page. Invalid parameters
// fail before any external call.
func (s *Service) Search(ctx context.Context, req Request) (Result, error) {
	b := s.api
	if req.Web {
		b = s.web
	}
	q, err := b.Build(req.Params)
	if err != nil {
		return Result{}, err
	}

	q, err = s.restrict(ctx, q, req)
	if err != nil {
		return Result{}, err
	}

	resp, err := s.index.Search(ctx, q)
	if err != nil {
		return Result{}, fmt.Errorf("search sounds: %w", err)
	}

	hits, dropped, err := s.reconcile(ctx, resp.Stubs)
	if err != nil {
		return Result{}, err
	}
	if dropped > 0 && s.observer != nil {
		s.observer.RecordsDropped(dropped)
	}

	count := max(resp.Total-dropped, 0)
	return Result{
		Query:           q,
		Hits:            hits,
		Count:           count,
		NonGroupedCount: resp.NonGroupedTotal,
		Dropped:         dropped,
		Facets:          resp.Facets,
		Paginator:       page.New(q.Page(), q.PageSize(), count),
	}, nil
}

func (s *Service) restrict(ctx context.Context, q query.Query, req Request) (query.Query, error) {
	clusterID := strings.TrimSpace(req.Params.ClusterID)
	if clusterID == "" || s.clusters == nil {
		return q, nil
	}
	ids, ok, err := s.clusters.Restrict(ctx, req.Values, clusterID)
	if err != nil {
		return query.Query{}, err
	}
	if !ok {
		logger.FromContext(ctx).Info("cluster restriction not applied",
			zap.String("cluster_id", clusterID))
		return q, nil
	}
	return q.WithIDs(ids), nil
}

// reconcile pairs stubs with records in search order, dropping stubs whose
// record is missing. Records are fetched in a single batch.
func (s *Service) reconcile(ctx context.Context, stubs []result.Stub) ([]Hit, int, error) {
	if len(stubs) == 0 {
		return []Hit{}, 0, nil
	}

	ids := make([]int64, len(stubs))
	for i, st := range stubs {
		ids[i] = st.ID()
	}
	set, err := s.records.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch sound records: %w", err)
	}

	hits := make([]Hit, 0, len(stubs))
	for _, st := range stubs {
		rec, ok := set[st.ID()]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Stub: st, Record: rec})
	}

	dropped := len(stubs) - len(hits)
	if dropped > 0 {
		logger.FromContext(ctx).Warn("search index out of sync with record store",
			zap.Int("dropped", dropped), zap.Int("page_size", len(stubs)))
	}
	return hits, dropped, nil
}

// PackTags returns the most used tags of a pack. ok is false when the index
// could not answer.
func (s *Service) PackTags(ctx context.Context, username, pack string) ([]result.FacetValue, bool) {
	q, err := packTagsQuery(username, pack)
	if err != nil {
		logger.FromContext(ctx).Warn("pack tags query", zap.Error(err))
		return nil, false
	}
	facets, err := s.index.Facets(ctx, q)
	if err != nil {
		logger.FromContext(ctx).Warn("pack tags facet",
			zap.String("username", username), zap.String("pack", pack), zap.Error(err))
		return nil, false
	}
	tags := facets["tag"]
	if tags == nil {
		tags = []result.FacetValue{}
	}
	return tags, true
}

func packTagsQuery(username, pack string) (query.Query, error) {
	user, err := filter.NewPhrase("username", username)
	if err != nil {
		return query.Query{}, err
	}
	p, err := filter.NewPhrase("pack", pack)
	if err != nil {
		return query.Query{}, err
	}
	expr, err := filter.NewExpression([]filter.Condition{user, p}, nil, nil)
	if err != nil {
		return query.Query{}, err
	}
	q, err := query.New("", expr, order.Default(), 1, 1,
		query.WithFacets(query.Facet{Field: "tag", Limit: packTagsLimit, MinCount: 1}),
	)
	if err != nil {
		return query.Query{}, fmt.Errorf("%w: %w", domain.ErrInvalidParam, err)
	}
	return q, nil
}
