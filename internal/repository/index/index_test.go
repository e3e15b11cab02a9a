package index

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/soundsearch/internal/db"
)

// mockManager implements the consumer interface for tests.
type mockManager struct {
	existing  map[string]bool
	created   []string
	createErr error
	existsErr error
}

func (m *mockManager) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, def.Name)
	return nil
}

func (m *mockManager) IndexExists(_ context.Context, name string) (bool, error) {
	return m.existing[name], m.existsErr
}

func TestSounds_Schema(t *testing.T) {
	def := Sounds("fs:", "fs:sounds")
	if def.KeyPrefix() != "fs:sound:" || def.IDField != "id" {
		t.Errorf("prefix = %q, id = %q", def.KeyPrefix(), def.IDField)
	}
	for _, name := range []string{"duration", "created", "num_downloads", "avg_rating"} {
		f, ok := def.Field(name)
		if !ok || !f.Sortable {
			t.Errorf("%s must be a sortable field", name)
		}
	}
	for _, name := range []string{"samplerate", "pack_grouped", "username", "tag", "bitrate", "bitdepth", "type", "channels"} {
		if _, ok := def.Field(name); !ok {
			t.Errorf("facet field %s missing", name)
		}
	}
	if f, _ := def.Field("tag"); !f.MultiValued() {
		t.Error("tag must be multi-valued")
	}
	if f, _ := def.Field("grouping_pack"); !f.Sortable || f.MultiValued() {
		t.Errorf("grouping_pack = %+v", f)
	}
}

func TestForum_Schema(t *testing.T) {
	def := Forum("fs:", "fs:forum")
	if def.KeyPrefix() != "fs:post:" {
		t.Errorf("prefix = %q", def.KeyPrefix())
	}
	if f, ok := def.Field("post_body"); !ok || f.Type != db.IndexFieldText {
		t.Errorf("post_body = %+v", f)
	}
	if f, ok := def.Field("thread_created"); !ok || f.Type != db.IndexFieldNumeric {
		t.Errorf("thread_created = %+v", f)
	}
}

func TestEnsure_CreatesMissing(t *testing.T) {
	m := &mockManager{existing: map[string]bool{"a": true}}
	created, err := Ensure(context.Background(), m, Sounds("", "a"), Forum("", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 1 || created[0] != "b" || len(m.created) != 1 {
		t.Errorf("created = %v, store saw %v", created, m.created)
	}
}

func TestEnsure_RaceIsNotAnError(t *testing.T) {
	m := &mockManager{createErr: db.ErrIndexExists}
	if _, err := Ensure(context.Background(), m, Sounds("", "a")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEnsure_Errors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := Ensure(context.Background(), &mockManager{existsErr: boom}, Sounds("", "a")); !errors.Is(err, boom) {
		t.Errorf("exists err = %v", err)
	}
	if _, err := Ensure(context.Background(), &mockManager{createErr: boom}, Sounds("", "a")); !errors.Is(err, boom) {
		t.Errorf("create err = %v", err)
	}
}
