package chi

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/soundsearch/internal/domain/search/filter"
)

// Site paths.
const (
	apiSearchPath = "/apiv2/search/text/"
	webSearchPath = "/search/"
	forumPath     = "/forum/search/"
	clusterPath   = "/search/clustering/"
	graphPath     = "/search/clustered_graph/"
)

// Links builds absolute links back into the service.
type Links struct {
	base string
}

// NewLinks creates a link builder rooted at base (e.g. https://freesound.org).
func NewLinks(base string) Links {
	return Links{base: strings.TrimRight(base, "/")}
}

// Absolute prefixes a site path with the base URL.
func (l Links) Absolute(path string) string { return l.base + path }

// linkParams are the search parameters a pagination link re-serializes.
// PageSize and Fields are carried only when the originating request had them.
type linkParams struct {
	Query    string
	Filter   string
	Sort     string
	Group    string
	PageSize string
	Fields   string
}

// Page returns the API link of another page of the same search.
func (l Links) Page(p linkParams, page int) string {
	return l.search(p.Query, strconv.Itoa(page), p.Filter, p.Sort, p.Group, p)
}

// SamePack returns the API link listing every match from one pack, ungrouped.
func (l Links) SamePack(p linkParams, pack string) string {
	return l.search(p.Query, "", packFilter(pack, p.Filter), p.Sort, "", p)
}

func (l Links) search(q, page, f, s, g string, p linkParams) string {
	var b strings.Builder
	b.WriteString(l.base)
	b.WriteString(apiSearchPath)
	b.WriteString("?q=")
	b.WriteString(url.QueryEscape(q))
	if page != "" {
		b.WriteString("&p=")
		b.WriteString(page)
	}
	b.WriteString("&f=")
	b.WriteString(url.QueryEscape(f))
	b.WriteString("&s=")
	b.WriteString(url.QueryEscape(s))
	b.WriteString("&g=")
	b.WriteString(url.QueryEscape(g))
	if p.PageSize != "" {
		b.WriteString("&sounds_per_page=")
		b.WriteString(url.QueryEscape(p.PageSize))
	}
	if p.Fields != "" {
		b.WriteString("&fields=")
		b.WriteString(url.QueryEscape(p.Fields))
	}
	return b.String()
}

// packFilter narrows the filter f to one pack.
func packFilter(pack, f string) string {
	return strings.TrimSpace(filter.Phrase("pack", pack) + " " + f)
}

// withParams returns path with values encoded, applying set and dropping the empty entries of set.
func withParams(path string, values url.Values, set map[string]string) string {
	v := make(url.Values, len(values)+len(set))
	for k, vs := range values {
		v[k] = append([]string(nil), vs...)
	}
	for k, val := range set {
		if val == "" {
			v.Del(k)
			continue
		}
		v.Set(k, val)
	}
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}
