// Package forum reads forum boards from PostgreSQL.
package forum

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kailas-cloud/soundsearch/internal/db"
	"github.com/kailas-cloud/soundsearch/internal/domain"
	domforum "github.com/kailas-cloud/soundsearch/internal/domain/forum"
)

// querier is the consumer interface for forum reads (ISP).
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectBySlug = `SELECT id, name, name_slug FROM forum_forum WHERE name_slug = $1`

// Repo implements usecase/forum.Forums.
type Repo struct {
	q querier
}

// New creates a forum repository.
func New(q querier) *Repo {
	return &Repo{q: q}
}

// BySlug returns the forum with the given slug or domain.ErrNotFound.
func (r *Repo) BySlug(ctx context.Context, slug string) (domforum.Forum, error) {
	var f domforum.Forum
	err := r.q.QueryRow(ctx, selectBySlug, slug).Scan(&f.ID, &f.Name, &f.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return domforum.Forum{}, fmt.Errorf("forum %q: %w", slug, domain.ErrNotFound)
	}
	if err != nil {
		return domforum.Forum{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, &db.Error{Op: db.OpQuery, Err: err})
	}
	return f, nil
}
