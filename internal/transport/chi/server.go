package chi

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kailas-cloud/soundsearch/internal/domain"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/query"
	healthuc "github.com/kailas-cloud/soundsearch/internal/usecase/health"
	"github.com/kailas-cloud/soundsearch/internal/version"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server serves the search API, the search pages and the operational endpoints.
type Server struct {
	sounds        SoundSearcher
	clusters      Clusterer
	forum         ForumSearcher
	health        HealthChecker
	links         Links
	views         *template.Template
	errorHandlers []errorHandler
}

// Option configures the Server.
type Option func(*Server)

// WithClustering enables the clustering endpoints.
func WithClustering(c Clusterer) Option {
	return func(s *Server) { s.clusters = c }
}

// WithBaseURL makes API links absolute.
func WithBaseURL(base string) Option {
	return func(s *Server) { s.links = NewLinks(base) }
}

// NewServer creates the HTTP server. It panics if the embedded templates do not parse.
func NewServer(sounds SoundSearcher, forum ForumSearcher, health HealthChecker, opts ...Option) *Server {
	s := &Server{
		sounds:        sounds,
		forum:         forum,
		health:        health,
		views:         template.Must(template.New("").Funcs(viewFuncs).ParseFS(templateFS, "templates/*.html")),
		errorHandlers: defaultErrorHandlers(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount registers the routes on r. apiMiddlewares wrap only the /apiv2 routes.
func (s *Server) Mount(r chi.Router, apiMiddlewares ...func(http.Handler) http.Handler) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/apiv2", func(r chi.Router) {
		r.Use(apiMiddlewares...)
		r.Get("/search/text/", s.SearchText)
		r.Get("/packs/{username}/{pack}/tags/", s.PackTags)
	})

	r.Get(webSearchPath, s.SearchPage)
	r.Get(clusterPath, s.ClusterFacet)
	r.Get(graphPath, s.ClusteredGraph)
	r.Get(forumPath, s.ForumSearch)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  healthuc.Status                 `json:"status"`
	Checks  map[string]healthuc.CheckResult `json:"checks"`
	Version string                          `json:"version"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{
		Status:  report.Status,
		Checks:  report.Checks,
		Version: version.String(),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// searchParamNames lists the sound search parameters in binding order.
var searchParamNames = []string{"q", "f", "s", "p", "sounds_per_page", "g", "fields", "cluster_id"}

// bindSearchParams reads the sound search parameters. A parameter given more
// than once is rejected.
func bindSearchParams(values url.Values) (query.Params, error) {
	bound := make(map[string]*string, len(searchParamNames))
	for _, name := range searchParamNames {
		var v *string
		if err := runtime.BindQueryParameter("form", true, false, name, values, &v); err != nil {
			return query.Params{}, domain.NewValidationError(name, "must be given at most once")
		}
		bound[name] = v
	}
	return query.Params{
		Query:     deref(bound["q"]),
		Filter:    deref(bound["f"]),
		Sort:      deref(bound["s"]),
		Page:      deref(bound["p"]),
		PageSize:  deref(bound["sounds_per_page"]),
		Group:     deref(bound["g"]),
		Fields:    deref(bound["fields"]),
		ClusterID: deref(bound["cluster_id"]),
	}, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
