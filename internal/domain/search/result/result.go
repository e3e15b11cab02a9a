package result

// Stub is the index-side partial representation of a record.
type Stub struct {
	id         int64
	fields     map[string]string
	highlights map[string]string
	group      *Group
}

// Group describes the collapsed group a grouped stub stands for.
type Group struct {
	Value string
	Count int
}

// NewStub creates a document stub.
func NewStub(id int64, fields, highlights map[string]string) Stub {
	return Stub{id: id, fields: fields, highlights: highlights}
}

// WithGroup returns a copy carrying group information.
func (s Stub) WithGroup(value string, count int) Stub {
	s.group = &Group{Value: value, Count: count}
	return s
}

// ID returns the record identifier.
func (s Stub) ID() int64 { return s.id }

// Field returns a stored field value, empty when absent.
func (s Stub) Field(name string) string { return s.fields[name] }

// Fields returns the stored fields.
func (s Stub) Fields() map[string]string { return s.fields }

// Highlight returns the highlighted snippet of a field, empty when absent.
func (s Stub) Highlight(name string) string { return s.highlights[name] }

// Highlights returns all highlighted snippets.
func (s Stub) Highlights() map[string]string { return s.highlights }

// Group returns the group this stub represents, nil for ungrouped results.
func (s Stub) Group() *Group { return s.group }

// MoreInGroup returns how many other matches share this stub's group.
func (s Stub) MoreInGroup() int {
	if s.group == nil || s.group.Count < 1 {
		return 0
	}
	return s.group.Count - 1
}

// FacetValue is a single facet bucket.
type FacetValue struct {
	Value string
	Count int
}

// Facets maps a field name to its buckets, most frequent first.
type Facets map[string][]FacetValue

// Response is an interpreted search response.
type Response struct {
	Stubs []Stub
	// Total is the number of matches, or of groups when grouped.
	Total int
	// NonGroupedTotal is the number of matching documents regardless of grouping.
	NonGroupedTotal int
	Facets          Facets
}

// IDs returns the stub identifiers in response order.
func (r Response) IDs() []int64 {
	ids := make([]int64, len(r.Stubs))
	for i, s := range r.Stubs {
		ids[i] = s.id
	}
	return ids
}
