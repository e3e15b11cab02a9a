package cluster

import (
	"errors"
	"net/url"
	"slices"
	"testing"

	"github.com/kailas-cloud/soundsearch/internal/domain"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     State
		clusters int
	}{
		{"pending", `{"status":"pending","result":null}`, Pending, 0},
		{"failed", `{"status":"failed"}`, Failed, 0},
		{"finished", `{"status":"finished","result":[["1","2"],[3]]}`, Finished, 2},
		{"finished empty", `{"status":"finished","result":[]}`, Finished, 0},
		{"finished null", `{"status":"finished","result":null}`, Failed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Decode([]byte(tt.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.State != tt.want {
				t.Errorf("State = %q, want %q", s.State, tt.want)
			}
			if len(s.Clusters) != tt.clusters {
				t.Errorf("clusters = %d, want %d", len(s.Clusters), tt.clusters)
			}
		})
	}
}

func TestDecode_MixedIDs(t *testing.T) {
	s, err := Decode([]byte(`{"status":"finished","result":[["10", 20]]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(s.Clusters[0], []int64{10, 20}) {
		t.Errorf("Clusters[0] = %v", s.Clusters[0])
	}
}

func TestDecode_Errors(t *testing.T) {
	for _, in := range []string{`not json`, `{"status":"exploded"}`, `{"status":"finished","result":[["x"]]}`} {
		if _, err := Decode([]byte(in)); err == nil {
			t.Errorf("Decode(%s) should fail", in)
		}
	}
}

func TestEncodePending_RoundTrip(t *testing.T) {
	s, err := Decode(EncodePending())
	if err != nil || s.State != Pending {
		t.Fatalf("got %+v, %v", s, err)
	}
}

func TestFingerprint_IgnoresPagingAndClusterParams(t *testing.T) {
	base := url.Values{"q": {"dog"}, "f": {"type:wav"}, "s": {"score desc"}}
	withExtra := url.Values{
		"f": {"type:wav"}, "q": {"dog"}, "s": {"score desc"},
		"p": {"3"}, "ajax": {"1"}, "cluster_id": {"2"}, "g": {""},
	}

	if Fingerprint(base, "") != Fingerprint(withExtra, DefaultFeatures) {
		t.Error("paging, ajax, cluster_id and empty params must not change the fingerprint")
	}
	if Fingerprint(base, "audio_as") == Fingerprint(base, "tag") {
		t.Error("feature set must change the fingerprint")
	}
	other := url.Values{"q": {"cat"}, "f": {"type:wav"}, "s": {"score desc"}}
	if Fingerprint(base, "") == Fingerprint(other, "") {
		t.Error("query must change the fingerprint")
	}
}

func TestGraph_Prune(t *testing.T) {
	g := Graph{
		Nodes: []Node{{ID: 1}, {ID: 2}, {ID: 3}},
		Links: []Link{{Source: 1, Target: 2}, {Source: 2, Target: 3}, {Source: 3, Target: 1}},
	}
	pruned := g.Prune(func(n Node) bool { return n.ID != 3 })

	if len(pruned.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(pruned.Nodes))
	}
	if len(pruned.Links) != 1 || pruned.Links[0].Source != 1 || pruned.Links[0].Target != 2 {
		t.Errorf("links = %+v", pruned.Links)
	}
	if !slices.Equal(g.NodeIDs(), []int64{1, 2, 3}) {
		t.Errorf("NodeIDs() = %v", g.NodeIDs())
	}
}

func TestBuild_Labels(t *testing.T) {
	clusters := [][]int64{{1, 2, 3}, {4, 5}}
	tags := map[int64][]string{
		1: {"Dog", "bark", "field-recording", "loud"},
		2: {"dog", "Bark", "outdoor"},
		3: {"bark", "outdoor", "loud"},
		4: {"dog", "Cat"},
		5: {"cat"},
	}

	got := Build(clusters, tags, "DOG barking")

	if got[0].Number != 1 || got[1].Number != 2 {
		t.Errorf("numbers = %d, %d", got[0].Number, got[1].Number)
	}
	// bark:3, loud:2, outdoor:2, field-recording:1; "dog" is a query term.
	want := []string{"bark", "loud", "outdoor"}
	if !slices.Equal(got[0].Label, want) {
		t.Errorf("Label = %v, want %v", got[0].Label, want)
	}
	if got[0].LabelText() != "bark loud outdoor" {
		t.Errorf("LabelText() = %q", got[0].LabelText())
	}
	// only "cat" remains: too few distinct tags.
	if got[1].Labeled() {
		t.Errorf("cluster 2 should not be labeled, got %v", got[1].Label)
	}
	if len(got[1].IDs) != 2 {
		t.Error("unlabeled clusters keep their ids")
	}
}

func TestBuild_QueryTermsNeverInLabel(t *testing.T) {
	tags := map[int64][]string{1: {"RAIN", "thunder", "storm", "wind", "Rain"}}
	got := Build([][]int64{{1}}, tags, "rain")
	for _, tag := range got[0].Label {
		if tag == "rain" {
			t.Fatalf("query term in label: %v", got[0].Label)
		}
	}
}

func TestSelect(t *testing.T) {
	clusters := [][]int64{{1, 2}, {3}}

	ids, err := Select(clusters, "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(ids, []int64{3}) {
		t.Errorf("ids = %v", ids)
	}

	for _, raw := range []string{"0", "3", "-1", "two", ""} {
		_, err := Select(clusters, raw)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) || ve.Field != "cluster_id" {
			t.Errorf("Select(%q): expected cluster_id ValidationError, got %v", raw, err)
		}
	}
}
