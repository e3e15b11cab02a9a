package cluster

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/kailas-cloud/soundsearch/internal/domain"
)

// Label sizing.
const (
	// MaxLabelTags is the number of tags shown per cluster label.
	MaxLabelTags = 3
	// MinDistinctTags is the number of distinct tags a cluster needs above which it gets a label.
	MinDistinctTags = 2
)

// Cluster is a finished cluster with its derived label.
type Cluster struct {
	// Number is the 1-based cluster index used by cluster_id.
	Number int
	IDs    []int64
	// Label holds up to MaxLabelTags tags, nil when the cluster is not labeled.
	Label []string
}

// Labeled reports whether the cluster has a label.
func (c Cluster) Labeled() bool { return len(c.Label) > 0 }

// LabelText joins the label tags with spaces.
func (c Cluster) LabelText() string { return strings.Join(c.Label, " ") }

// Build labels every cluster with its most frequent member tags. Tags that
// appear among the query terms are ignored, compared case-insensitively.
func Build(clusters [][]int64, tags map[int64][]string, queryText string) []Cluster {
	fold := cases.Fold()

	excluded := make(map[string]struct{})
	for _, term := range strings.Fields(queryText) {
		excluded[fold.String(term)] = struct{}{}
	}

	out := make([]Cluster, len(clusters))
	for i, ids := range clusters {
		counts := make(map[string]int)
		for _, id := range ids {
			for _, t := range tags[id] {
				ft := fold.String(strings.TrimSpace(t))
				if ft == "" {
					continue
				}
				if _, skip := excluded[ft]; skip {
					continue
				}
				counts[ft]++
			}
		}
		out[i] = Cluster{Number: i + 1, IDs: ids, Label: topTags(counts)}
	}
	return out
}

func topTags(counts map[string]int) []string {
	if len(counts) <= MinDistinctTags {
		return nil
	}
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	slices.SortFunc(tags, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return tags[:min(MaxLabelTags, len(tags))]
}

// Select resolves a 1-based cluster_id to the ids of that cluster.
func Select(clusters [][]int64, raw string) ([]int64, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, domain.NewValidationError("cluster_id", fmt.Sprintf("%q is not a number", raw))
	}
	if n < 1 || n > len(clusters) {
		return nil, domain.NewValidationError("cluster_id",
			fmt.Sprintf("must be between 1 and %d, got %d", len(clusters), n))
	}
	return clusters[n-1], nil
}
