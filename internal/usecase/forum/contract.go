package forum

import (
	"context"

	domforum "github.com/kailas-cloud/soundsearch/internal/domain/forum"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/query"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/result"
)

// Index runs queries against the forum index.
type Index interface {
	Search(ctx context.Context, q query.Query) (result.Response, error)
}

// Forums looks up forum boards.
type Forums interface {
	BySlug(ctx context.Context, slug string) (domforum.Forum, error)
}
