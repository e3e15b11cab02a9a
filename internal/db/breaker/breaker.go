// Package breaker guards backend calls with a circuit breaker so an unreachable
// search index fails fast instead of stalling every request.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/soundsearch/internal/db"
)

// Config controls when the breaker trips and how long it stays open.
type Config struct {
	Name string
	// ConsecutiveFailures trips the breaker once reached.
	ConsecutiveFailures uint32
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
	// Interval resets closed-state counts; zero never resets.
	Interval time.Duration
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// StateListener observes breaker transitions.
type StateListener func(name string, from, to gobreaker.State)

// Breaker wraps gobreaker with db error semantics.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New creates a breaker. Query syntax errors and caller cancellations do not count as failures.
func New(cfg Config, log *zap.Logger, listeners ...StateListener) *Breaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, db.ErrSyntax) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			for _, l := range listeners {
				l(name, from, to)
			}
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.cb.Name() }

// State returns the current state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Do runs fn through the breaker.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, &db.Error{Op: db.OpBreaker, Err: db.ErrCircuitOpen}
		}
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}
