// Package clustering polls the out-of-process clustering engine. Lookups never
// block on a computation: an unknown fingerprint is requested once and
// reported as pending.
package clustering

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/soundsearch/internal/domain"
	"github.com/kailas-cloud/soundsearch/internal/domain/cluster"
	"github.com/kailas-cloud/soundsearch/internal/logger"
	repo "github.com/kailas-cloud/soundsearch/internal/repository/clustering"
)

// Outcome is the result of a clustering lookup.
type Outcome struct {
	State    cluster.State
	Clusters []cluster.Cluster
}

// Service resolves clustering status, labels and graphs.
type Service struct {
	cache    Cache
	records  Records
	features string
	baseURL  string
	observer Observer
	group    singleflight.Group
}

// Option configures the Service.
type Option func(*Service)

// WithFeatures selects the feature set clustering runs on.
func WithFeatures(features string) Option {
	return func(s *Service) {
		if features != "" {
			s.features = features
		}
	}
}

// WithBaseURL makes graph node links absolute.
func WithBaseURL(base string) Option {
	return func(s *Service) { s.baseURL = base }
}

// WithObserver reports lookup states to o.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// New creates a clustering service.
func New(cache Cache, records Records, opts ...Option) *Service {
	s := &Service{cache: cache, records: records, features: cluster.DefaultFeatures}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// status returns the current status for params, requesting the computation
// when none exists. Concurrent lookups of one fingerprint share a single call.
func (s *Service) status(ctx context.Context, params url.Values) (cluster.Status, error) {
	fp := cluster.Fingerprint(params, s.features)
	detached := context.WithoutCancel(ctx)

	v, err, _ := s.group.Do(fp, func() (any, error) {
		st, found, err := s.cache.Status(detached, fp)
		if err != nil && !found {
			return cluster.Status{}, err
		}
		if err != nil {
			logger.FromContext(ctx).Warn("undecodable clustering entry",
				zap.String("fingerprint", fp), zap.Error(err))
			return cluster.Status{State: cluster.Failed}, nil
		}
		if found {
			return st, nil
		}

		req := repo.Request{
			ID:          uuid.NewString(),
			Fingerprint: fp,
			Query:       cluster.CanonicalQuery(params),
			Features:    s.features,
		}
		requested, err := s.cache.Request(detached, req)
		if err != nil {
			return cluster.Status{}, err
		}
		if requested {
			logger.FromContext(ctx).Info("clustering requested",
				zap.String("fingerprint", fp), zap.String("request_id", req.ID))
		}
		return cluster.Status{State: cluster.Pending}, nil
	})
	if err != nil {
		return cluster.Status{}, fmt.Errorf("%w: %w", domain.ErrClusteringFailed, err)
	}

	st := v.(cluster.Status)
	if s.observer != nil {
		s.observer.ClusteringStatus(st.State)
	}
	return st, nil
}

// Clusters returns the clusters for params with their labels once finished.
// Labels ignore tags that appear among the terms of queryText.
func (s *Service) Clusters(ctx context.Context, params url.Values, queryText string) (Outcome, error) {
	st, err := s.status(ctx, params)
	if err != nil {
		return Outcome{State: cluster.Failed}, err
	}
	if st.State != cluster.Finished {
		return Outcome{State: st.State}, nil
	}
	return Outcome{
		State:    cluster.Finished,
		Clusters: cluster.Build(st.Clusters, s.memberTags(ctx, st.Clusters), queryText),
	}, nil
}

// memberTags loads the tags of every clustered sound in one batch. A failing
// store leaves clusters unlabeled.
func (s *Service) memberTags(ctx context.Context, clusters [][]int64) map[int64][]string {
	var ids []int64
	for _, c := range clusters {
		ids = append(ids, c...)
	}
	tags := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return tags
	}
	set, err := s.records.FetchByIDs(ctx, ids)
	if err != nil {
		logger.FromContext(ctx).Warn("cluster labels unavailable", zap.Error(err))
		return tags
	}
	for id, rec := range set {
		tags[id] = rec.Tags
	}
	return tags
}

// Restrict resolves clusterID for a search. ok is false when clustering has
// not finished; an out of range or malformed clusterID is a ValidationError.
func (s *Service) Restrict(ctx context.Context, params url.Values, clusterID string) ([]int64, bool, error) {
	st, err := s.status(ctx, params)
	if err != nil {
		logger.FromContext(ctx).Warn("cluster restriction skipped", zap.Error(err))
		return nil, false, nil
	}
	if st.State != cluster.Finished {
		return nil, false, nil
	}
	ids, err := cluster.Select(st.Clusters, clusterID)
	if err != nil {
		return nil, false, err
	}
	return ids, true, nil
}

// Graph returns the clustering graph of params with nodes described from
// their records. Nodes without a record are dropped with their links.
func (s *Service) Graph(ctx context.Context, params url.Values) (cluster.State, cluster.Graph, error) {
	st, err := s.status(ctx, params)
	if err != nil {
		return cluster.Failed, cluster.Graph{}, err
	}
	if st.State != cluster.Finished {
		return st.State, cluster.Graph{}, nil
	}
	if st.Graph == nil {
		return cluster.Finished, cluster.Graph{Nodes: []cluster.Node{}, Links: []cluster.Link{}}, nil
	}

	set, err := s.records.FetchByIDs(ctx, st.Graph.NodeIDs())
	if err != nil {
		return cluster.Finished, cluster.Graph{}, fmt.Errorf("graph records: %w", err)
	}

	g := st.Graph.Prune(func(n cluster.Node) bool {
		_, ok := set[int64(n.ID)]
		return ok
	})
	for i := range g.Nodes {
		rec := set[int64(g.Nodes[i].ID)]
		g.Nodes[i].Name = rec.Name
		g.Nodes[i].Tags = rec.TagString()
		g.Nodes[i].URL = s.baseURL + rec.PreviewPath()
		g.Nodes[i].SoundPageURL = s.baseURL + rec.Path()
	}
	return cluster.Finished, g, nil
}
