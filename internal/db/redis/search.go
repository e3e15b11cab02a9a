package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/soundsearch/internal/db"
)

// Search runs a paginated query via FT.SEARCH.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.Limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	if q.MatchesNothing() {
		return &db.SearchResult{}, nil
	}

	args, err := buildSearchArgs(q)
	if err != nil {
		return nil, err
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, wrapErr(db.OpSearch, err)
	}

	return parseListResult(raw)
}

// SearchCount returns the number of matching documents via FT.SEARCH with LIMIT 0 0.
func (s *Store) SearchCount(ctx context.Context, m *db.Match) (int, error) {
	if m.MatchesNothing() {
		return 0, nil
	}
	cmd, err := s.countCmd(m)
	if err != nil {
		return 0, err
	}
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, wrapErr(db.OpSearch, err)
	}
	return parseTotal(raw)
}

func (s *Store) countCmd(m *db.Match) (rueidis.Completed, error) {
	query, err := renderMatch(m)
	if err != nil {
		return rueidis.Completed{}, err
	}
	return s.b().Arbitrary("FT.SEARCH").
		Args(m.Index.Name, query, "LIMIT", "0", "0", "DIALECT", "2").
		Build(), nil
}

func buildSearchArgs(q *db.SearchQuery) ([]string, error) {
	query, err := renderMatch(&q.Match)
	if err != nil {
		return nil, err
	}

	args := []string{q.Index.Name, query}

	if len(q.Keys) > 0 {
		args = append(args, "INKEYS", strconv.Itoa(len(q.Keys)))
		args = append(args, q.Keys...)
	}

	fields := slices.Clone(q.Return)
	if h := q.Highlight; h != nil {
		for _, f := range h.Fields {
			if !slices.Contains(fields, f) {
				fields = append(fields, f)
			}
		}
	}
	if len(fields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	if h := q.Highlight; h != nil && len(h.Fields) > 0 {
		if h.FragmentWords > 0 {
			args = append(args, "SUMMARIZE", "FIELDS", strconv.Itoa(len(h.Fields)))
			args = append(args, h.Fields...)
			args = append(args, "FRAGS", "1", "LEN", strconv.Itoa(h.FragmentWords), "SEPARATOR", "...")
		}
		args = append(args, "HIGHLIGHT", "FIELDS", strconv.Itoa(len(h.Fields)))
		args = append(args, h.Fields...)
		args = append(args, "TAGS", h.Open, h.Close)
	}

	if q.SortBy != nil {
		args = append(args, "SORTBY", q.SortBy.Field, direction(q.SortBy.Desc))
	}

	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)
	return args, nil
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

// --- Result parsing ---

func parseTotal(raw []rueidis.RedisMessage) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse total: %w", err)
	}
	return int(total), nil
}

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	total, err := parseTotal(raw)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, len(raw)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
