// Package cluster models clustering results computed out of process.
package cluster

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultFeatures is the feature set clustering runs on unless configured otherwise.
const DefaultFeatures = "audio_as"

// State is the clustering computation state.
type State string

const (
	// Pending means the computation was requested but has not finished.
	Pending State = "pending"
	// Finished means a result is available.
	Finished State = "finished"
	// Failed means the computation errored; there is no retry.
	Failed State = "failed"
)

// ID is a record identifier that decodes from either a JSON number or a JSON string.
type ID int64

// UnmarshalJSON accepts 123 and "123".
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("cluster id %q: %w", b, err)
	}
	*id = ID(n)
	return nil
}

// Graph is the optional visualization structure of a clustering result.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Node is one graph vertex. The descriptive fields are filled from records.
type Node struct {
	ID           ID     `json:"id"`
	Group        int    `json:"group"`
	Name         string `json:"name,omitempty"`
	Tags         string `json:"tags,omitempty"`
	URL          string `json:"url,omitempty"`
	SoundPageURL string `json:"sound_page_url,omitempty"`
}

// Link is one graph edge.
type Link struct {
	Source ID `json:"source"`
	Target ID `json:"target"`
}

// Prune drops nodes for which keep returns false, together with their links.
func (g Graph) Prune(keep func(Node) bool) Graph {
	kept := make(map[ID]struct{}, len(g.Nodes))
	out := Graph{Nodes: make([]Node, 0, len(g.Nodes)), Links: make([]Link, 0, len(g.Links))}
	for _, n := range g.Nodes {
		if keep(n) {
			kept[n.ID] = struct{}{}
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, l := range g.Links {
		_, src := kept[l.Source]
		_, dst := kept[l.Target]
		if src && dst {
			out.Links = append(out.Links, l)
		}
	}
	return out
}

// NodeIDs returns the record ids referenced by the graph nodes.
func (g Graph) NodeIDs() []int64 {
	ids := make([]int64, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = int64(n.ID)
	}
	return ids
}

// Status is a decoded clustering status entry.
type Status struct {
	State    State
	Clusters [][]int64
	Graph    *Graph
}

type wireStatus struct {
	Status string  `json:"status"`
	Result *[][]ID `json:"result"`
	Graph  *Graph  `json:"graph"`
}

// Decode parses a cached status entry. A finished entry without a result is Failed.
func Decode(data []byte) (Status, error) {
	var w wireStatus
	if err := json.Unmarshal(data, &w); err != nil {
		return Status{}, fmt.Errorf("decode clustering status: %w", err)
	}

	switch State(w.Status) {
	case Pending:
		return Status{State: Pending}, nil
	case Failed:
		return Status{State: Failed}, nil
	case Finished:
		if w.Result == nil {
			return Status{State: Failed}, nil
		}
		clusters := make([][]int64, len(*w.Result))
		for i, c := range *w.Result {
			clusters[i] = make([]int64, len(c))
			for j, id := range c {
				clusters[i][j] = int64(id)
			}
		}
		return Status{State: Finished, Clusters: clusters, Graph: w.Graph}, nil
	default:
		return Status{}, fmt.Errorf("unknown clustering status %q", w.Status)
	}
}

// EncodePending returns the wire form of a pending status entry.
func EncodePending() []byte {
	return []byte(`{"status":"pending","result":null}`)
}

// excludedParams do not change which results are clustered.
var excludedParams = map[string]struct{}{
	"cluster_id": {},
	"ajax":       {},
	"p":          {},
}

// CanonicalQuery returns the sorted, URL-encoded parameters that identify a clustering request.
func CanonicalQuery(params url.Values) string {
	kept := make(url.Values, len(params))
	for k, vs := range params {
		if _, skip := excludedParams[k]; skip {
			continue
		}
		nonEmpty := make([]string, 0, len(vs))
		for _, v := range vs {
			if strings.TrimSpace(v) != "" {
				nonEmpty = append(nonEmpty, v)
			}
		}
		if len(nonEmpty) > 0 {
			kept[k] = nonEmpty
		}
	}
	return kept.Encode()
}

// Fingerprint derives the cache key of a clustering computation.
func Fingerprint(params url.Values, features string) string {
	if features == "" {
		features = DefaultFeatures
	}
	sum := sha256.Sum256([]byte(CanonicalQuery(params) + "\x00" + features))
	return hex.EncodeToString(sum[:])
}
