// Package order holds the allow-listed sort choices for sound search.
package order

import "strings"

// Direction is the sort direction of an index field.
type Direction string

const (
	// Asc sorts ascending.
	Asc Direction = "asc"
	// Desc sorts descending.
	Desc Direction = "desc"
)

// RelevanceField is the pseudo-field meaning "engine relevance order".
const RelevanceField = "score"

// Option is one allow-listed sort choice.
type Option struct {
	name  string
	label string
	field string
	dir   Direction
}

// Name returns the API option name (e.g. "duration_desc").
func (o Option) Name() string { return o.name }

// Label returns the human label shown in the web form.
func (o Option) Label() string { return o.label }

// Field returns the index field the option sorts on.
func (o Option) Field() string { return o.field }

// Direction returns the sort direction.
func (o Option) Direction() Direction { return o.dir }

// Clause returns the sort clause (e.g. "duration desc").
func (o Option) Clause() string { return o.field + " " + string(o.dir) }

// IsRelevance reports whether the option keeps the engine's relevance order.
func (o Option) IsRelevance() bool { return o.field == RelevanceField }

// IsZero reports whether o is the zero Option.
func (o Option) IsZero() bool { return o.name == "" }

// options is ordered: the first entry is the default.
var options = []Option{
	{name: "score", label: "Automatic by relevance", field: RelevanceField, dir: Desc},
	{name: "duration_desc", label: "Duration (long first)", field: "duration", dir: Desc},
	{name: "duration_asc", label: "Duration (short first)", field: "duration", dir: Asc},
	{name: "created_desc", label: "Date added (newest first)", field: "created", dir: Desc},
	{name: "created_asc", label: "Date added (oldest first)", field: "created", dir: Asc},
	{name: "downloads_desc", label: "Downloads (most first)", field: "num_downloads", dir: Desc},
	{name: "downloads_asc", label: "Downloads (least first)", field: "num_downloads", dir: Asc},
	{name: "rating_desc", label: "Rating (highest first)", field: "avg_rating", dir: Desc},
	{name: "rating_asc", label: "Rating (lowest first)", field: "avg_rating", dir: Asc},
}

// threadCreatedDesc is the fixed order of forum search results.
var threadCreatedDesc = Option{
	name: "thread_created_desc", label: "Newest threads first", field: "thread_created", dir: Desc,
}

var (
	byName   = make(map[string]Option, len(options))
	byLabel  = make(map[string]Option, len(options))
	byClause = make(map[string]Option, len(options))
)

func init() {
	for _, o := range options {
		byName[o.name] = o
		byLabel[strings.ToLower(o.label)] = o
		byClause[o.Clause()] = o
	}
}

// Default returns the relevance option.
func Default() Option { return options[0] }

// Forum returns the order of forum search results: newest thread first.
func Forum() Option { return threadCreatedDesc }

// All returns the allow-list in display order.
func All() []Option {
	out := make([]Option, len(options))
	copy(out, options)
	return out
}

// Lookup resolves an API option name or a sort clause. Empty input yields Default.
func Lookup(s string) (Option, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Default(), true
	}
	if o, ok := byName[s]; ok {
		return o, true
	}
	if o, ok := byClause[normalizeClause(s)]; ok {
		return o, true
	}
	return Option{}, false
}

// LookupWeb resolves a web label, falling back to Lookup.
func LookupWeb(s string) (Option, bool) {
	if o, ok := byLabel[strings.ToLower(strings.TrimSpace(s))]; ok {
		return o, true
	}
	return Lookup(s)
}

// normalizeClause collapses "duration   DESC" into "duration desc".
func normalizeClause(s string) string {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return s
	}
	return parts[0] + " " + strings.ToLower(parts[1])
}
