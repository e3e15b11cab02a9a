package chi

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/soundsearch/internal/domain"
	"github.com/kailas-cloud/soundsearch/internal/domain/cluster"
	domforum "github.com/kailas-cloud/soundsearch/internal/domain/forum"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/order"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/page"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/query"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/result"
	"github.com/kailas-cloud/soundsearch/internal/logger"
	forumuc "github.com/kailas-cloud/soundsearch/internal/usecase/forum"
	searchuc "github.com/kailas-cloud/soundsearch/internal/usecase/search"
)

// pageRadius is the number of page links shown on each side of the current page.
const pageRadius = 3

var viewFuncs = template.FuncMap{
	"seconds": func(d float64) string { return strconv.FormatFloat(d, 'f', 1, 64) },
}

var highlightMarkup = strings.NewReplacer("&lt;strong&gt;", "<strong>", "&lt;/strong&gt;", "</strong>")

// highlightHTML escapes a snippet but keeps the highlight markup.
func highlightHTML(s string) template.HTML {
	return template.HTML(highlightMarkup.Replace(template.HTMLEscapeString(s))) //nolint:gosec // only <strong> survives escaping
}

type sortChoice struct {
	Label    string
	Selected bool
}

type soundRow struct {
	ID              int64
	Name            string
	URL             string
	Username        string
	PreviewURL      string
	Tags            []string
	Duration        float64
	PackName        string
	PackURL         string
	MoreFromPack    int
	MoreFromPackURL string
}

type facetLink struct {
	Value string
	Count int
	URL   string
}

type facetView struct {
	Field  string
	Values []facetLink
}

type pageLink struct {
	Number  int
	URL     string
	Current bool
}

type pagerView struct {
	Show        bool
	Pages       []pageLink
	PreviousURL string
	NextURL     string
}

type searchView struct {
	Query           string
	Filter          string
	Grouping        bool
	SortOptions     []sortChoice
	ErrorText       string
	Searched        bool
	Sounds          []soundRow
	Count           int
	NonGroupedCount int
	Facets          []facetView
	Pager           pagerView
	ClusteringOn    bool
	ClusteringURL   string
	GraphURL        string
}

type clusterRow struct {
	Number int
	Size   int
	Label  string
	URL    string
}

type postRow struct {
	ThreadTitle  string
	ThreadURL    string
	PostURL      string
	ForumName    string
	ForumURL     string
	PostAuthor   string
	PostCreated  string
	Body         template.HTML
	MoreInThread int
}

type forumView struct {
	Query     string
	Filter    string
	ForumName string
	ForumSlug string
	Advanced  bool
	DateFrom  string
	DateTo    string
	ErrorText string
	Searched  bool
	Count     int
	Posts     []postRow
	Pager     pagerView
}

// SearchPage handles GET /search/. ajax=1 renders only the results fragment.
func (s *Server) SearchPage(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	status := http.StatusOK

	params, err := bindSearchParams(values)
	view := searchView{
		Query:        params.Query,
		Filter:       params.Filter,
		Grouping:     params.Grouping(),
		SortOptions:  sortChoices(params.Sort),
		ClusteringOn: s.clusters != nil,
	}
	if view.ClusteringOn {
		view.ClusteringURL = withParams(clusterPath, values, map[string]string{"ajax": "", "p": ""})
		view.GraphURL = withParams(graphPath, values, map[string]string{"ajax": "", "p": ""})
	}

	var res searchuc.Result
	if err == nil {
		res, err = s.sounds.Search(r.Context(), searchuc.Request{Params: params, Values: values, Web: true})
	}
	if err != nil {
		logWebError(r, err, params.Query, params.Filter)
		view.ErrorText, status = webErrorText(err)
	} else {
		view.Searched = true
		view.Count = res.Count
		view.NonGroupedCount = res.NonGroupedCount
		view.Sounds = s.soundRows(res, values, params)
		view.Facets = facetViews(res.Facets, values, params.Filter)
		view.Pager = pager(res.Paginator, func(n int) string {
			return withParams(webSearchPath, values, map[string]string{"p": strconv.Itoa(n), "ajax": ""})
		})
	}

	name := "search.html"
	if values.Get("ajax") == "1" {
		name = "search_ajax.html"
	}
	s.render(w, r, status, name, view)
}

// ClusterFacet handles GET /search/clustering/. It answers with the pending or
// failed status as JSON, or the cluster facet fragment once finished.
func (s *Server) ClusterFacet(w http.ResponseWriter, r *http.Request) {
	if s.clusters == nil {
		http.NotFound(w, r)
		return
	}
	values := r.URL.Query()

	out, err := s.clusters.Clusters(r.Context(), values, values.Get("q"))
	if err != nil {
		logger.FromContext(r.Context()).Error("clustering lookup", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{"status": string(cluster.Failed)})
		return
	}
	if out.State != cluster.Finished {
		writeJSON(w, http.StatusOK, map[string]string{"status": string(out.State)})
		return
	}

	rows := make([]clusterRow, len(out.Clusters))
	for i, c := range out.Clusters {
		n := strconv.Itoa(c.Number)
		rows[i] = clusterRow{
			Number: c.Number,
			Size:   len(c.IDs),
			Label:  c.LabelText(),
			URL: withParams(webSearchPath, values, map[string]string{
				"cluster_id": n, "ajax": "", "p": "",
			}),
		}
	}
	s.render(w, r, http.StatusOK, "clustering_facet.html", rows)
}

// ClusteredGraph handles GET /search/clustered_graph/.
func (s *Server) ClusteredGraph(w http.ResponseWriter, r *http.Request) {
	if s.clusters == nil {
		http.NotFound(w, r)
		return
	}

	state, graph, err := s.clusters.Graph(r.Context(), r.URL.Query())
	if err != nil {
		logger.FromContext(r.Context()).Error("clustering graph", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{"status": string(cluster.Failed)})
		return
	}
	if state != cluster.Finished {
		writeJSON(w, http.StatusOK, map[string]string{"status": string(state)})
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

// ForumSearch handles GET /forum/search/.
func (s *Server) ForumSearch(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	p := forumuc.Params{
		Query:    values.Get("q"),
		Filter:   values.Get("f"),
		Page:     values.Get("page"),
		Forum:    values.Get("forum"),
		Advanced: values.Get("advanced_search"),
		DateFrom: values.Get("dt_from"),
		DateTo:   values.Get("dt_to"),
	}
	view := forumView{Query: p.Query, Filter: p.Filter, Advanced: p.Advanced == "1"}
	status := http.StatusOK

	res, err := s.forum.Search(r.Context(), p)
	if err != nil {
		logWebError(r, err, p.Query, p.Filter)
		view.ErrorText, status = webErrorText(err)
		s.render(w, r, status, "search_forum.html", view)
		return
	}

	if res.Forum != nil {
		view.ForumName = res.Forum.Name
		view.ForumSlug = res.Forum.Slug
	}
	view.DateFrom = res.DateFrom
	view.DateTo = res.DateTo
	view.Searched = res.Searched
	view.Count = res.Count
	view.Posts = make([]postRow, len(res.Posts))
	for i, post := range res.Posts {
		view.Posts[i] = postView(post)
	}
	view.Pager = pager(res.Paginator, func(n int) string {
		return withParams(forumPath, values, map[string]string{"page": strconv.Itoa(n)})
	})
	s.render(w, r, status, "search_forum.html", view)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.views.ExecuteTemplate(&buf, name, data); err != nil {
		logger.FromContext(r.Context()).Error("render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func logWebError(r *http.Request, err error, q, f string) {
	log := logger.FromContext(r.Context())
	switch {
	case errors.Is(err, domain.ErrInvalidParam), errors.Is(err, domain.ErrNotFound):
		log.Info("search request rejected", zap.Error(err))
	case errors.Is(err, domain.ErrQuerySyntax):
		log.Warn("search error", zap.String("q", q), zap.String("f", f), zap.Error(err))
	default:
		log.Error("search backend unreachable", zap.Error(err))
	}
}

func sortChoices(current string) []sortChoice {
	selected, ok := order.LookupWeb(current)
	if !ok {
		selected = order.Default()
	}
	opts := order.All()
	out := make([]sortChoice, len(opts))
	for i, o := range opts {
		out[i] = sortChoice{Label: o.Label(), Selected: o.Name() == selected.Name()}
	}
	return out
}

func (s *Server) soundRows(res searchuc.Result, values url.Values, params query.Params) []soundRow {
	rows := make([]soundRow, len(res.Hits))
	for i, h := range res.Hits {
		rec := h.Record
		row := soundRow{
			ID:         rec.ID,
			Name:       rec.Name,
			URL:        rec.Path(),
			Username:   rec.Username,
			PreviewURL: rec.PreviewPath(),
			Tags:       rec.Tags,
			Duration:   rec.Duration,
			PackName:   rec.PackName,
			PackURL:    rec.PackPath(),
		}
		if res.Query.Grouped() && h.MoreFromPack() > 0 && rec.HasPack() {
			row.MoreFromPack = h.MoreFromPack()
			row.MoreFromPackURL = withParams(webSearchPath, values, map[string]string{
				"f": packFilter(rec.PackName, params.Filter), "g": "", "p": "", "ajax": "", "cluster_id": "",
			})
		}
		rows[i] = row
	}
	return rows
}

// facetViews lists facets in display order, each value linking to the narrowed search.
func facetViews(facets result.Facets, values url.Values, filterText string) []facetView {
	out := make([]facetView, 0, len(query.SoundFacets))
	for _, f := range query.SoundFacets {
		buckets := facets[f.Field]
		if len(buckets) == 0 {
			continue
		}
		fv := facetView{Field: f.Field, Values: make([]facetLink, len(buckets))}
		for i, b := range buckets {
			narrowed := strings.TrimSpace(filterText + " " + filter.Phrase(f.Field, b.Value))
			fv.Values[i] = facetLink{
				Value: b.Value,
				Count: b.Count,
				URL:   withParams(webSearchPath, values, map[string]string{"f": narrowed, "p": "", "ajax": ""}),
			}
		}
		out = append(out, fv)
	}
	return out
}

func pager(p page.Paginator, link func(int) string) pagerView {
	v := pagerView{Show: p.HasOtherPages()}
	if !v.Show {
		return v
	}
	if p.HasPrevious() {
		v.PreviousURL = link(p.PreviousPage())
	}
	if p.HasNext() {
		v.NextURL = link(p.NextPage())
	}
	for _, n := range p.Range(pageRadius) {
		v.Pages = append(v.Pages, pageLink{Number: n, URL: link(n), Current: n == p.Page()})
	}
	return v
}

func postView(p domforum.Post) postRow {
	threadURL := fmt.Sprintf("/forum/%s/%d/", p.ForumSlug, p.ThreadID)
	row := postRow{
		ThreadTitle:  p.ThreadTitle,
		ThreadURL:    threadURL,
		PostURL:      fmt.Sprintf("%s%d/", threadURL, p.ID),
		ForumName:    p.ForumName,
		ForumURL:     fmt.Sprintf("/forum/%s/", p.ForumSlug),
		PostAuthor:   p.PostAuthor,
		Body:         highlightHTML(p.Body),
		MoreInThread: p.MoreInThread,
	}
	if !p.PostCreated.IsZero() {
		row.PostCreated = p.PostCreated.Format(domforum.DateLayout)
	}
	return row
}
