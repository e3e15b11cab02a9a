package forum

import (
	"testing"
	"time"

	"github.com/kailas-cloud/soundsearch/internal/domain/search/result"
)

func TestPostFromStub(t *testing.T) {
	stub := result.NewStub(7, map[string]string{
		"forum_name":      "Technical Questions",
		"forum_name_slug": "technical-questions",
		"thread_id":       "99",
		"thread_title":    "Sample rates",
		"thread_created":  "1262304000",
		"post_author":     "bob",
		"post_body":       "raw body",
		"num_posts":       "12",
	}, map[string]string{"post_body": "a <strong>rate</strong> question"}).WithGroup("Sample rates", 3)

	p := PostFromStub(stub)

	if p.ID != 7 || p.ThreadID != 99 || p.NumPosts != 12 {
		t.Errorf("ids: %+v", p)
	}
	if p.Body != "a <strong>rate</strong> question" {
		t.Errorf("Body = %q, want highlighted snippet", p.Body)
	}
	if !p.ThreadCreated.Equal(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ThreadCreated = %v", p.ThreadCreated)
	}
	if !p.PostCreated.IsZero() {
		t.Errorf("missing post_created must be zero, got %v", p.PostCreated)
	}
	if p.MoreInThread != 2 {
		t.Errorf("MoreInThread = %d", p.MoreInThread)
	}
}

func TestPostFromStub_BodyFallback(t *testing.T) {
	p := PostFromStub(result.NewStub(1, map[string]string{"post_body": "plain"}, nil))
	if p.Body != "plain" {
		t.Errorf("Body = %q, want stored body", p.Body)
	}
}

func TestParseDate(t *testing.T) {
	if _, ok := ParseDate("2012-02-30"); ok {
		t.Error("impossible date accepted")
	}
	if _, ok := ParseDate("01-02-2012"); ok {
		t.Error("wrong layout accepted")
	}
	d, ok := ParseDate("2012-02-29")
	if !ok || d.Day() != 29 {
		t.Errorf("ParseDate = %v, %v", d, ok)
	}
}
