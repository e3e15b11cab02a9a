package sound

import "testing"

func TestRecord_Paths(t *testing.T) {
	r := Record{ID: 12345, UserID: 77, Username: "alice", PackID: 9}

	if got := r.Path(); got != "/people/alice/sounds/12345/" {
		t.Errorf("Path() = %q", got)
	}
	if got := r.PreviewPath(); got != "/data/previews/12/12345_77-hq.mp3" {
		t.Errorf("PreviewPath() = %q", got)
	}
	if got := r.PackPath(); got != "/people/alice/packs/9/" {
		t.Errorf("PackPath() = %q", got)
	}
	if (Record{ID: 1}).PackPath() != "" {
		t.Error("PackPath() must be empty without a pack")
	}
}

func TestNewSet(t *testing.T) {
	s := NewSet([]Record{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}})
	if len(s) != 2 || s[2].Name != "b" {
		t.Errorf("unexpected set: %v", s)
	}
	if _, ok := s[3]; ok {
		t.Error("unexpected id 3")
	}
}
