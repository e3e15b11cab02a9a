// Package clustering talks to the out-of-process clustering engine through Redis:
// status entries are cached under a fingerprint key and computations are
// requested on a stream.
package clustering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/soundsearch/internal/db"
	"github.com/kailas-cloud/soundsearch/internal/domain/cluster"
)

// store is the consumer interface for the clustering cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	XAdd(ctx context.Context, stream string, fields map[string]string) (string, error)
}

// Request describes one clustering computation for the engine.
type Request struct {
	ID          string
	Fingerprint string
	Query       string
	Features    string
}

// Repo implements usecase/clustering.Cache.
type Repo struct {
	store      store
	prefix     string
	stream     string
	pendingTTL time.Duration
}

// New creates a clustering repository. Keys live under prefix; requests go to stream.
func New(s store, prefix, stream string, pendingTTL time.Duration) *Repo {
	if stream == "" {
		stream = prefix + "clustering:requests"
	}
	return &Repo{store: s, prefix: prefix, stream: stream, pendingTTL: pendingTTL}
}

// Status returns the cached status for fingerprint; found is false when no entry exists.
func (r *Repo) Status(ctx context.Context, fingerprint string) (cluster.Status, bool, error) {
	data, err := r.store.Get(ctx, r.key(fingerprint))
	if errors.Is(err, db.ErrKeyNotFound) {
		return cluster.Status{}, false, nil
	}
	if err != nil {
		return cluster.Status{}, false, fmt.Errorf("get clustering status: %w", err)
	}
	st, err := cluster.Decode(data)
	if err != nil {
		return cluster.Status{}, true, err
	}
	return st, true, nil
}

// Request marks the computation pending and enqueues it. The stream entry is
// only written by the caller that created the pending entry; requested is
// false when another caller already did. When enqueueing fails the pending
// entry is removed so the next poll can request again.
func (r *Repo) Request(ctx context.Context, req Request) (requested bool, err error) {
	key := r.key(req.Fingerprint)
	won, err := r.store.SetNX(ctx, key, cluster.EncodePending(), r.pendingTTL)
	if err != nil {
		return false, fmt.Errorf("mark clustering pending: %w", err)
	}
	if !won {
		return false, nil
	}

	_, err = r.store.XAdd(ctx, r.stream, map[string]string{
		"request_id":  req.ID,
		"fingerprint": req.Fingerprint,
		"query":       req.Query,
		"features":    req.Features,
	})
	if err != nil {
		err = fmt.Errorf("enqueue clustering request: %w", err)
		if delErr := r.store.Del(context.WithoutCancel(ctx), key); delErr != nil {
			return false, errors.Join(err, fmt.Errorf("clear pending clustering entry: %w", delErr))
		}
		return false, err
	}
	return true, nil
}

func (r *Repo) key(fingerprint string) string {
	return r.prefix + "clustering:" + fingerprint
}
