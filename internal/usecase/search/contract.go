package search

import (
	"context"
	"net/url"

	"github.com/kailas-cloud/soundsearch/internal/domain/search/query"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/result"
	domsound "github.com/kailas-cloud/soundsearch/internal/domain/sound"
)

// Index runs queries against the sound index.
type Index interface {
	Search(ctx context.Context, q query.Query) (result.Response, error)
	Facets(ctx context.Context, q query.Query) (result.Facets, error)
}

// Records batch-loads authoritative sound records.
type Records interface {
	FetchByIDs(ctx context.Context, ids []int64) (domsound.Set, error)
}

// Clusters resolves a cluster_id into the ids of that cluster.
// ok is false when no restriction applies (clustering pending or failed).
type Clusters interface {
	Restrict(ctx context.Context, params url.Values, clusterID string) (ids []int64, ok bool, err error)
}

// Observer receives reconciliation outcomes.
type Observer interface {
	RecordsDropped(n int)
}
