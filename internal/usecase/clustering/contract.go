package clustering

import (
	"context"

	"github.com/kailas-cloud/soundsearch/internal/domain/cluster"
	domsound "github.com/kailas-cloud/soundsearch/internal/domain/sound"
	repo "github.com/kailas-cloud/soundsearch/internal/repository/clustering"
)

// Cache reads clustering status entries and requests computations.
type Cache interface {
	Status(ctx context.Context, fingerprint string) (cluster.Status, bool, error)
	Request(ctx context.Context, req repo.Request) (bool, error)
}

// Records batch-loads sound records for labels and graph nodes.
type Records interface {
	FetchByIDs(ctx context.Context, ids []int64) (domsound.Set, error)
}

// Observer receives the state of every status lookup.
type Observer interface {
	ClusteringStatus(state cluster.State)
}
