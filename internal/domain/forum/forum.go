// Package forum holds forum entities and forum search hits.
package forum

import (
	"strconv"
	"time"

	"github.com/kailas-cloud/soundsearch/internal/domain/search/result"
)

// DateLayout is the accepted format of forum search date bounds.
const DateLayout = "2006-01-02"

// Forum is a discussion board.
type Forum struct {
	ID   int64
	Name string
	Slug string
}

// Post is a forum search hit.
type Post struct {
	ID            int64
	ForumName     string
	ForumSlug     string
	ThreadID      int64
	ThreadTitle   string
	ThreadAuthor  string
	ThreadCreated time.Time
	PostAuthor    string
	PostCreated   time.Time
	// Body is the highlighted snippet of the post body.
	Body     string
	NumPosts int
	// MoreInThread counts further matching posts in the same thread.
	MoreInThread int
}

// PostFromStub reads a post out of a forum index stub.
func PostFromStub(s result.Stub) Post {
	body := s.Highlight("post_body")
	if body == "" {
		body = s.Field("post_body")
	}
	return Post{
		ID:            s.ID(),
		ForumName:     s.Field("forum_name"),
		ForumSlug:     s.Field("forum_name_slug"),
		ThreadID:      parseInt(s.Field("thread_id")),
		ThreadTitle:   s.Field("thread_title"),
		ThreadAuthor:  s.Field("thread_author"),
		ThreadCreated: parseUnix(s.Field("thread_created")),
		PostAuthor:    s.Field("post_author"),
		PostCreated:   parseUnix(s.Field("post_created")),
		Body:          body,
		NumPosts:      int(parseInt(s.Field("num_posts"))),
		MoreInThread:  s.MoreInGroup(),
	}
}

// ParseDate parses a YYYY-MM-DD bound; ok is false for anything else.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseUnix(s string) time.Time {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(f), 0).UTC()
}
