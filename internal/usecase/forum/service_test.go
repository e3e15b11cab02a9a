package forum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kailas-cloud/soundsearch/internal/domain"
	domforum "github.com/kailas-cloud/soundsearch/internal/domain/forum"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/query"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/result"
)

// --- Mocks ---

type mockIndex struct {
	resp  result.Response
	err   error
	calls int
	last  query.Query
}

func (m *mockIndex) Search(_ context.Context, q query.Query) (result.Response, error) {
	m.calls++
	m.last = q
	return m.resp, m.err
}

type mockForums struct {
	forums map[string]domforum.Forum
	err    error
}

func (m *mockForums) BySlug(_ context.Context, slug string) (domforum.Forum, error) {
	if m.err != nil {
		return domforum.Forum{}, m.err
	}
	f, ok := m.forums[slug]
	if !ok {
		return domforum.Forum{}, domain.ErrNotFound
	}
	return f, nil
}

func forums() *mockForums {
	return &mockForums{forums: map[string]domforum.Forum{
		"sound-design": {ID: 3, Name: "Sound Design", Slug: "sound-design"},
	}}
}

func postStub(id int64, title string, more int) result.Stub {
	return result.NewStub(id,
		map[string]string{"thread_title": title, "post_body": "plain body", "thread_created": "1262304000"},
		map[string]string{"post_body": "a <strong>field</strong> recorder"},
	).WithGroup(title, more+1)
}

func conditionKeys(e filter.Expression) []string {
	keys := make([]string, 0, len(e.Must()))
	for _, c := range e.Must() {
		keys = append(keys, c.Key())
	}
	return keys
}

// --- Tests ---

func TestSearch(t *testing.T) {
	idx := &mockIndex{resp: result.Response{
		Stubs: []result.Stub{postStub(10, "Recorders", 2), postStub(11, "Mics", 0)},
		Total: 31,
	}}
	svc := New(idx, forums(), 15)

	res, err := svc.Search(context.Background(), Params{Query: "field recorder", Page: "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Searched || res.Count != 31 || len(res.Posts) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Posts[0].MoreInThread != 2 || res.Posts[0].Body != "a <strong>field</strong> recorder" {
		t.Errorf("post = %+v", res.Posts[0])
	}
	if res.Paginator.Page() != 2 || res.Paginator.NumPages() != 3 {
		t.Errorf("paginator = %+v", res.Paginator)
	}

	q := idx.last
	if q.GroupBy() != "thread_title_grouped" {
		t.Errorf("group by = %q", q.GroupBy())
	}
	if q.Order().Field() != "thread_created" {
		t.Errorf("order = %q", q.Order().Clause())
	}
	h := q.Highlight()
	if h == nil || h.FragmentSize != 200 || h.Pre != "<strong>" || h.Alternate != "post_body" {
		t.Errorf("highlight = %+v", h)
	}
	if q.Offset() != 15 {
		t.Errorf("offset = %d", q.Offset())
	}
}

func TestSearch_SkipsEmpty(t *testing.T) {
	idx := &mockIndex{}
	for _, text := range []string{"", "   ", "search in Sound Design"} {
		res, err := New(idx, forums(), 15).Search(context.Background(), Params{Query: text})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Searched || res.Posts == nil {
			t.Errorf("Search(%q) = %+v", text, res)
		}
	}
	if idx.calls != 0 {
		t.Errorf("index queried %d times", idx.calls)
	}
}

func TestSearch_FilterOnly(t *testing.T) {
	idx := &mockIndex{}
	if _, err := New(idx, forums(), 15).Search(context.Background(), Params{Filter: "post_author:bob"}); err != nil {
		t.Fatal(err)
	}
	if idx.calls != 1 || idx.last.Text() != "" {
		t.Errorf("calls = %d text = %q", idx.calls, idx.last.Text())
	}
}

func TestSearch_ForumScope(t *testing.T) {
	idx := &mockIndex{}
	res, err := New(idx, forums(), 15).Search(context.Background(), Params{Query: "mic", Forum: "sound-design"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Forum == nil || res.Forum.Name != "Sound Design" {
		t.Errorf("forum = %+v", res.Forum)
	}
	keys := conditionKeys(idx.last.Filter())
	if len(keys) != 1 || keys[0] != "forum_name_slug" {
		t.Errorf("filter keys = %v", keys)
	}

	_, err = New(idx, forums(), 15).Search(context.Background(), Params{Query: "mic", Forum: "nope"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearch_DateRange(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		wantCond bool
		gte, lte float64
	}{
		{"advanced both", Params{Advanced: "1", DateFrom: "2010-01-01", DateTo: "2010-01-02"}, true, 1262304000, 1262390400},
		{"advanced from only", Params{Advanced: "1", DateFrom: "2010-01-01"}, true, 1262304000, 0},
		{"from without advanced", Params{DateFrom: "2010-01-01"}, false, 0, 0},
		{"to without advanced", Params{DateTo: "2010-01-02"}, true, 0, 1262390400},
		{"invalid dates", Params{Advanced: "1", DateFrom: "01/01/2010", DateTo: "x"}, false, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			idx := &mockIndex{}
			tc.params.Query = "mic"
			if _, err := New(idx, forums(), 15).Search(context.Background(), tc.params); err != nil {
				t.Fatal(err)
			}
			must := idx.last.Filter().Must()
			if !tc.wantCond {
				if len(must) != 0 {
					t.Errorf("unexpected conditions %v", conditionKeys(idx.last.Filter()))
				}
				return
			}
			if len(must) != 1 || must[0].Key() != "thread_created" || must[0].Kind() != filter.KindRange {
				t.Fatalf("conditions = %v", conditionKeys(idx.last.Filter()))
			}
			r := must[0].Range()
			if tc.gte != 0 && (r.GTE() == nil || *r.GTE() != tc.gte) {
				t.Errorf("gte = %v, want %v", r.GTE(), tc.gte)
			}
			if tc.lte != 0 && (r.LTE() == nil || *r.LTE() != tc.lte) {
				t.Errorf("lte = %v, want %v", r.LTE(), tc.lte)
			}
		})
	}
}

func TestSearch_Errors(t *testing.T) {
	_, err := New(&mockIndex{}, forums(), 15).Search(context.Background(), Params{Filter: "thread_author:(a OR"})
	if !errors.Is(err, domain.ErrQuerySyntax) {
		t.Errorf("err = %v, want ErrQuerySyntax", err)
	}

	idx := &mockIndex{err: domain.ErrSearchUnavailable}
	_, err = New(idx, forums(), 15).Search(context.Background(), Params{Query: "mic"})
	if !errors.Is(err, domain.ErrSearchUnavailable) {
		t.Errorf("err = %v, want ErrSearchUnavailable", err)
	}
}

func TestSearch_ScopeRespectsConditionLimit(t *testing.T) {
	clauses := make([]string, filter.MaxConditionsPerGroup)
	for i := range clauses {
		clauses[i] = fmt.Sprintf("f%d:x", i)
	}
	idx := &mockIndex{}
	_, err := New(idx, forums(), 15).Search(context.Background(), Params{
		Query:  "mic",
		Filter: strings.Join(clauses, " "),
		Forum:  "sound-design",
	})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "f" {
		t.Fatalf("err = %v, want ValidationError on f", err)
	}
	if idx.calls != 0 {
		t.Error("index must not be called")
	}
}
