package chi

import (
	"context"
	"net/url"

	"github.com/kailas-cloud/soundsearch/internal/domain/cluster"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/result"
	clusteringuc "github.com/kailas-cloud/soundsearch/internal/usecase/clustering"
	forumuc "github.com/kailas-cloud/soundsearch/internal/usecase/forum"
	healthuc "github.com/kailas-cloud/soundsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/soundsearch/internal/usecase/search"
)

// SoundSearcher runs reconciled sound searches.
type SoundSearcher interface {
	Search(ctx context.Context, req searchuc.Request) (searchuc.Result, error)
	PackTags(ctx context.Context, username, pack string) ([]result.FacetValue, bool)
}

// Clusterer reads clustering results.
type Clusterer interface {
	Clusters(ctx context.Context, params url.Values, queryText string) (clusteringuc.Outcome, error)
	Graph(ctx context.Context, params url.Values) (cluster.State, cluster.Graph, error)
}

// ForumSearcher runs forum searches.
type ForumSearcher interface {
	Search(ctx context.Context, p forumuc.Params) (forumuc.Result, error)
}

// HealthChecker reports backend health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
