package redis

import (
	"context"
	"errors"
	"slices"

	"github.com/kailas-cloud/soundsearch/internal/db"
)

// XAdd appends an entry with an auto-generated id and returns that id.
// Fields are written in key order.
func (s *Store) XAdd(ctx context.Context, stream string, fields map[string]string) (string, error) {
	if len(fields) == 0 {
		return "", errors.New("stream entry needs at least one field")
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	slices.Sort(names)

	args := make([]string, 0, 1+2*len(names))
	args = append(args, "*")
	for _, k := range names {
		args = append(args, k, fields[k])
	}

	cmd := s.b().Arbitrary("XADD").Keys(stream).Args(args...).Build()
	id, err := s.do(ctx, cmd).ToString()
	if err != nil {
		return "", &db.Error{Op: db.OpXAdd, Err: err}
	}
	return id, nil
}
