package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/soundsearch/internal/db"
)

const (
	scoreField     = "__score"
	facetAlias     = "__facet"
	groupCountAs   = "group_count"
	groupKeyAs     = "key"
	groupSortAs    = "sort_value"
	groupsTotalAs  = "groups"
	facetCountAs   = "count"
	aggregateCount = 3
)

// Group collapses matching documents by q.GroupBy and returns one page of groups.
// The page, the total group count and the total document count are fetched
// in a single pipelined round-trip.
func (s *Store) Group(ctx context.Context, q *db.GroupQuery) (*db.GroupResult, error) {
	if q.GroupBy == "" {
		return nil, errors.New("group field is required")
	}
	if q.Limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	if q.MatchesNothing() {
		return &db.GroupResult{}, nil
	}

	query, err := renderMatch(&q.Match)
	if err != nil {
		return nil, err
	}
	count, err := s.countCmd(&q.Match)
	if err != nil {
		return nil, err
	}

	cmds := make([]rueidis.Completed, 0, aggregateCount)
	cmds = append(cmds,
		s.b().Arbitrary("FT.AGGREGATE").Args(buildGroupPageArgs(q, query)...).Build(),
		s.b().Arbitrary("FT.AGGREGATE").Args(
			q.Index.Name, query,
			"GROUPBY", "0",
			"REDUCE", "COUNT_DISTINCT", "1", "@"+q.GroupBy, "AS", groupsTotalAs,
			"DIALECT", "2",
		).Build(),
		count,
	)

	results := s.client.DoMulti(ctx, cmds...)
	raws := make([][]rueidis.RedisMessage, len(results))
	for i, res := range results {
		raw, err := res.ToArray()
		if err != nil {
			op := db.OpAggregate
			if i == 2 {
				op = db.OpSearch
			}
			return nil, wrapErr(op, err)
		}
		raws[i] = raw
	}

	out := &db.GroupResult{}
	for _, row := range parseAggregateRows(raws[0]) {
		n, _ := strconv.Atoi(row[groupCountAs])
		out.Groups = append(out.Groups, db.GroupEntry{
			Value: row[q.GroupBy],
			Count: n,
			Key:   row[groupKeyAs],
		})
	}
	if rows := parseAggregateRows(raws[1]); len(rows) > 0 {
		out.TotalGroups, _ = strconv.Atoi(rows[0][groupsTotalAs])
	}
	if out.TotalDocs, err = parseTotal(raws[2]); err != nil {
		return nil, err
	}
	return out, nil
}

func buildGroupPageArgs(q *db.GroupQuery, query string) []string {
	sortField, desc := scoreField, true
	if q.SortBy != nil {
		sortField, desc = q.SortBy.Field, q.SortBy.Desc
	}
	dir := direction(desc)
	reducer := "MIN"
	if desc {
		reducer = "MAX"
	}

	args := []string{q.Index.Name, query}
	if sortField == scoreField {
		args = append(args, "ADDSCORES")
	}
	args = append(args,
		"LOAD", "1", "@__key",
		"GROUPBY", "1", "@"+q.GroupBy,
		"REDUCE", "COUNT", "0", "AS", groupCountAs,
		"REDUCE", "FIRST_VALUE", "4", "@__key", "BY", "@"+sortField, dir, "AS", groupKeyAs,
		"REDUCE", reducer, "1", "@"+sortField, "AS", groupSortAs,
		"SORTBY", "2", "@"+groupSortAs, dir,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)
	return args
}

// Facets counts values of each requested field over the matching documents,
// one pipelined FT.AGGREGATE per field.
func (s *Store) Facets(ctx context.Context, q *db.FacetQuery) (map[string][]db.FacetBucket, error) {
	if len(q.Fields) == 0 || q.MatchesNothing() {
		return map[string][]db.FacetBucket{}, nil
	}

	query, err := renderMatch(&q.Match)
	if err != nil {
		return nil, err
	}

	cmds := make([]rueidis.Completed, 0, len(q.Fields))
	keys := make([]string, 0, len(q.Fields))
	for _, f := range q.Fields {
		field, ok := q.Index.Field(f.Name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown facet field %q", db.ErrSyntax, f.Name)
		}
		args, key := buildFacetArgs(q.Index.Name, query, field, f)
		cmds = append(cmds, s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build())
		keys = append(keys, key)
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make(map[string][]db.FacetBucket, len(q.Fields))
	for i, res := range results {
		raw, err := res.ToArray()
		if err != nil {
			return nil, wrapErr(db.OpAggregate, err)
		}
		buckets := make([]db.FacetBucket, 0)
		for _, row := range parseAggregateRows(raw) {
			value := row[keys[i]]
			if value == "" {
				continue
			}
			n, _ := strconv.Atoi(row[facetCountAs])
			buckets = append(buckets, db.FacetBucket{Value: value, Count: n})
		}
		out[q.Fields[i].Name] = buckets
	}
	return out, nil
}

// buildFacetArgs returns the FT.AGGREGATE args and the row key holding the value.
// Multi-valued tags are split so every value is counted on its own.
func buildFacetArgs(index, query string, field db.IndexField, f db.FacetField) ([]string, string) {
	args := []string{index, query}
	key := field.Name
	if field.MultiValued() {
		sep := field.TagSeparator
		if sep == "" {
			sep = ","
		}
		key = facetAlias
		args = append(args,
			"LOAD", "1", "@"+field.Name,
			"APPLY", fmt.Sprintf(`split(@%s, "%s")`, field.Name, sep), "AS", facetAlias,
		)
	}

	args = append(args,
		"GROUPBY", "1", "@"+key,
		"REDUCE", "COUNT", "0", "AS", facetCountAs,
	)
	if f.MinCount > 1 {
		args = append(args, "FILTER", "@"+facetCountAs+">="+strconv.Itoa(f.MinCount))
	}
	args = append(args, "SORTBY", "2", "@"+facetCountAs, "DESC")
	if f.Limit > 0 {
		args = append(args, "LIMIT", "0", strconv.Itoa(f.Limit))
	}
	args = append(args, "DIALECT", "2")
	return args, key
}

// parseAggregateRows reads the RESP2 shape [total, [k, v, ...], [k, v, ...], ...].
func parseAggregateRows(raw []rueidis.RedisMessage) []map[string]string {
	if len(raw) < 2 {
		return nil
	}
	rows := make([]map[string]string, 0, len(raw)-1)
	for _, msg := range raw[1:] {
		fields, err := msg.ToArray()
		if err != nil {
			continue
		}
		rows = append(rows, parseFieldPairs(fields))
	}
	return rows
}
