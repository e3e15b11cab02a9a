package metrics

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"

	"github.com/kailas-cloud/soundsearch/internal/domain"
	"github.com/kailas-cloud/soundsearch/internal/domain/cluster"
)

const namespace = "soundsearch"

// Search outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeSyntaxError = "syntax_error"
	OutcomeUnavailable = "unavailable"
	OutcomeCanceled    = "canceled"
	OutcomeError       = "error"
)

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search index requests",
		},
		[]string{"index", "outcome"},
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_request_duration_seconds",
			Help:      "Search index request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"index"},
	)

	SearchDroppedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_dropped_records_total",
			Help:      "Search results dropped because the record store had no matching record",
		},
	)

	ClusteringStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clustering_status_total",
			Help:      "Clustering status lookups by resulting state",
		},
		[]string{"state"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

var registerOnce sync.Once

// Register registers every Prometheus collector of the service. Must be called from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			SearchRequestsTotal,
			SearchRequestDuration,
			SearchDroppedRecordsTotal,
			ClusteringStatusTotal,
			BreakerState,
		)
	})
}

// Outcome classifies a search error into an outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrQuerySyntax):
		return OutcomeSyntaxError
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.Is(err, domain.ErrSearchUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}

// Recorder feeds service events into the collectors.
type Recorder struct{}

// RecordsDropped counts search results without a backing record.
func (Recorder) RecordsDropped(n int) {
	SearchDroppedRecordsTotal.Add(float64(n))
}

// ClusteringStatus counts a clustering lookup outcome.
func (Recorder) ClusteringStatus(state cluster.State) {
	ClusteringStatusTotal.WithLabelValues(string(state)).Inc()
}

// BreakerStateChange tracks the current state of a circuit breaker.
func (Recorder) BreakerStateChange(name string, _, to gobreaker.State) {
	BreakerState.WithLabelValues(name).Set(breakerValue(to))
}

func breakerValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
