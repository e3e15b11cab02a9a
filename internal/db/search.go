package db

import "github.com/kailas-cloud/soundsearch/internal/domain/search/filter"

// Match selects documents: free text ANDed with a filter, optionally
// restricted to an explicit id set.
type Match struct {
	Index  *IndexDefinition
	Text   string
	Filter filter.Expression
	// IDs restricts matches to these values of the index id field when Restricted is set.
	IDs        []int64
	Restricted bool
}

// MatchesNothing reports a restriction to an empty id set.
func (m *Match) MatchesNothing() bool {
	return m.Restricted && len(m.IDs) == 0
}

// SortBy orders results by an index field.
type SortBy struct {
	Field string
	Desc  bool
}

// Highlight asks for highlighted, summarized field snippets.
type Highlight struct {
	Fields        []string
	Open          string
	Close         string
	FragmentWords int
}

// SearchQuery is the input of a paginated FT.SEARCH.
type SearchQuery struct {
	Match
	// Keys limits the search to these document keys (INKEYS).
	Keys      []string
	SortBy    *SortBy
	Highlight *Highlight
	Return    []string
	Offset    int
	Limit     int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}

// GroupQuery collapses matches by a field and pages over the groups.
type GroupQuery struct {
	Match
	GroupBy string
	// SortBy orders groups by their best member; nil keeps relevance order.
	SortBy *SortBy
	Offset int
	Limit  int
}

// GroupResult is a page of groups.
type GroupResult struct {
	Groups      []GroupEntry
	TotalGroups int
	TotalDocs   int
}

// GroupEntry is one group with the key of its representative document.
type GroupEntry struct {
	Value string
	Count int
	Key   string
}

// FacetField requests value counts for one field.
type FacetField struct {
	Name     string
	Limit    int
	MinCount int
}

// FacetQuery counts field values over the matching documents.
type FacetQuery struct {
	Match
	Fields []FacetField
}

// FacetBucket is a single value count.
type FacetBucket struct {
	Value string
	Count int
}
