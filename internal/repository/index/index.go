// Package index defines the FT schemas of the sound and forum indexes.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/soundsearch/internal/db"
)

// manager is the consumer interface for index lifecycle (ISP).
type manager interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Sounds returns the sound index definition. Documents live under <prefix>sound:<id>.
func Sounds(prefix, name string) *db.IndexDefinition {
	return db.NewIndex(name).
		Prefix(prefix+"sound:").
		ID("id").
		Text("name", 4).
		Text("tags", 4).
		Text("description", 3).
		Text("pack_tokenized", 2).
		MultiTag("tag", ",").
		Tag("username").
		TagSeparated("pack", ";").
		TagSeparated("pack_grouped", ";").
		TagSeparated("grouping_pack", ";").
		Tag("type").
		Tag("license").
		Numeric("channels").
		Numeric("samplerate").
		Numeric("bitrate").
		Numeric("bitdepth").
		Numeric("filesize").
		SortableNumeric("duration").
		SortableNumeric("created").
		SortableNumeric("num_downloads").
		SortableNumeric("avg_rating").
		Numeric("num_ratings").
		MustBuild()
}

// Forum returns the forum post index definition. Documents live under <prefix>post:<id>.
func Forum(prefix, name string) *db.IndexDefinition {
	return db.NewIndex(name).
		Prefix(prefix+"post:").
		ID("id").
		Text("thread_title", 4).
		Text("post_body", 1).
		Tag("forum_name").
		Tag("forum_name_slug").
		Numeric("thread_id").
		Tag("thread_author").
		SortableNumeric("thread_created").
		Tag("post_author").
		SortableNumeric("post_created").
		Numeric("num_posts").
		TagSeparated("thread_title_grouped", ";").
		MustBuild()
}

// Ensure creates every missing index. Existing indexes are left untouched.
func Ensure(ctx context.Context, m manager, defs ...*db.IndexDefinition) ([]string, error) {
	var created []string
	for _, def := range defs {
		exists, err := m.IndexExists(ctx, def.Name)
		if err != nil {
			return created, fmt.Errorf("check index %s: %w", def.Name, err)
		}
		if exists {
			continue
		}
		if err := m.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return created, fmt.Errorf("create index %s: %w", def.Name, err)
		}
		created = append(created, def.Name)
	}
	return created, nil
}
