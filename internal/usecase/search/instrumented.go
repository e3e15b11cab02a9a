package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/soundsearch/internal/domain/search/query"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/result"
	"github.com/kailas-cloud/soundsearch/internal/logger"
	"github.com/kailas-cloud/soundsearch/internal/metrics"
)

// InstrumentedIndex wraps an Index with request metrics and error logging.
// Syntax errors are logged at warn with the query, unavailability at error.
type InstrumentedIndex struct {
	inner Index
	name  string
}

// NewInstrumentedIndex wraps inner; name labels the metrics (e.g. "sounds").
func NewInstrumentedIndex(inner Index, name string) *InstrumentedIndex {
	return &InstrumentedIndex{inner: inner, name: name}
}

// Search delegates to the inner index and records the outcome.
func (i *InstrumentedIndex) Search(ctx context.Context, q query.Query) (result.Response, error) {
	start := time.Now()
	resp, err := i.inner.Search(ctx, q)
	i.observe(ctx, q, time.Since(start), err)
	return resp, err
}

// Facets delegates to the inner index and records the outcome.
func (i *InstrumentedIndex) Facets(ctx context.Context, q query.Query) (result.Facets, error) {
	start := time.Now()
	facets, err := i.inner.Facets(ctx, q)
	i.observe(ctx, q, time.Since(start), err)
	return facets, err
}

func (i *InstrumentedIndex) observe(ctx context.Context, q query.Query, d time.Duration, err error) {
	outcome := metrics.Outcome(err)
	metrics.SearchRequestsTotal.WithLabelValues(i.name, outcome).Inc()
	metrics.SearchRequestDuration.WithLabelValues(i.name).Observe(d.Seconds())

	switch outcome {
	case metrics.OutcomeSyntaxError:
		logger.FromContext(ctx).Warn("search query rejected",
			zap.String("index", i.name),
			zap.String("q", q.Text()),
			zap.Error(err),
		)
	case metrics.OutcomeUnavailable, metrics.OutcomeError:
		logger.FromContext(ctx).Error("search index request failed",
			zap.String("index", i.name),
			zap.Duration("duration", d),
			zap.Error(err),
		)
	}
}
