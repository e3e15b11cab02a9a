package chi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/soundsearch/internal/domain/search/query"
	domsound "github.com/kailas-cloud/soundsearch/internal/domain/sound"
	searchuc "github.com/kailas-cloud/soundsearch/internal/usecase/search"
)

// Keys added to grouped results that stand for more sounds of the same pack.
const (
	samePackLinkKey  = "results_from_the_same_pack"
	samePackCountKey = "n_results_from_the_same_pack"
)

// SearchTextResponse is the body of GET /apiv2/search/text/.
type SearchTextResponse struct {
	Count    int              `json:"count"`
	NumPages int              `json:"num_pages"`
	Next     string           `json:"next,omitempty"`
	Previous string           `json:"previous,omitempty"`
	Results  []map[string]any `json:"results"`
}

// FacetBucket is one tag and its frequency.
type FacetBucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PackTagsResponse is the body of GET /apiv2/packs/{username}/{pack}/tags/.
type PackTagsResponse struct {
	Tags []FacetBucket `json:"tags"`
}

// SearchText handles GET /apiv2/search/text/.
func (s *Server) SearchText(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	params, err := bindSearchParams(values)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	res, err := s.sounds.Search(r.Context(), searchuc.Request{Params: params, Values: values})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	lp := apiLinkParams(params, res.Query)
	resp := SearchTextResponse{
		Count:    res.Count,
		NumPages: res.Paginator.NumPages(),
		Results:  make([]map[string]any, 0, len(res.Hits)),
	}
	if res.Paginator.HasNext() {
		resp.Next = s.links.Page(lp, res.Paginator.NextPage())
	}
	if res.Paginator.HasPrevious() {
		resp.Previous = s.links.Page(lp, res.Paginator.PreviousPage())
	}

	for _, h := range res.Hits {
		sound := selectFields(s.soundJSON(h.Record), params.Fields)
		if res.Query.Grouped() && h.MoreFromPack() > 0 && h.Record.HasPack() {
			sound[samePackLinkKey] = s.links.SamePack(lp, h.Record.PackName)
			sound[samePackCountKey] = h.MoreFromPack()
		}
		resp.Results = append(resp.Results, sound)
	}
	writeJSON(w, http.StatusOK, resp)
}

// PackTags handles GET /apiv2/packs/{username}/{pack}/tags/.
func (s *Server) PackTags(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	pack := chi.URLParam(r, "pack")

	tags, ok := s.sounds.PackTags(r.Context(), username, pack)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, CodeSearchUnavailable, textUnavailable)
		return
	}
	resp := PackTagsResponse{Tags: make([]FacetBucket, len(tags))}
	for i, t := range tags {
		resp.Tags[i] = FacetBucket{Name: t.Value, Count: t.Count}
	}
	writeJSON(w, http.StatusOK, resp)
}

// apiLinkParams re-serializes a search with its sort as an API option name.
func apiLinkParams(p query.Params, q query.Query) linkParams {
	g := p.Group
	if !p.Grouping() {
		g = ""
	}
	return linkParams{
		Query:    p.Query,
		Filter:   p.Filter,
		Sort:     q.Order().Name(),
		Group:    g,
		PageSize: p.PageSize,
		Fields:   p.Fields,
	}
}

func (s *Server) soundJSON(rec domsound.Record) map[string]any {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	var pack any
	if rec.HasPack() {
		pack = s.links.Absolute(rec.PackPath())
	}
	return map[string]any{
		"id":            rec.ID,
		"url":           s.links.Absolute(rec.Path()),
		"name":          rec.Name,
		"tags":          tags,
		"description":   rec.Description,
		"license":       rec.License,
		"type":          rec.Type,
		"username":      rec.Username,
		"pack":          pack,
		"pack_name":     rec.PackName,
		"duration":      rec.Duration,
		"samplerate":    rec.Samplerate,
		"bitrate":       rec.Bitrate,
		"bitdepth":      rec.Bitdepth,
		"channels":      rec.Channels,
		"filesize":      rec.Filesize,
		"num_downloads": rec.NumDownloads,
		"avg_rating":    rec.AvgRating,
		"num_ratings":   rec.NumRatings,
		"created":       rec.Created.Format(time.RFC3339),
		"previews": map[string]string{
			"preview-hq-mp3": s.links.Absolute(rec.PreviewPath()),
		},
	}
}

// selectFields keeps only the comma separated fields; an empty list keeps everything.
func selectFields(sound map[string]any, fields string) map[string]any {
	if strings.TrimSpace(fields) == "" {
		return sound
	}
	out := make(map[string]any)
	for _, f := range strings.Split(fields, ",") {
		f = strings.TrimSpace(f)
		if v, ok := sound[f]; ok {
			out[f] = v
		}
	}
	return out
}
